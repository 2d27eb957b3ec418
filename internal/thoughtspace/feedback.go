package thoughtspace

import (
	"context"

	"go.uber.org/zap"
)

// ApplyImplicitFeedback adds a small reinforcement to each of the given
// thoughts. Missing ids and individual write failures are logged and
// skipped. Returns the number of thoughts reinforced.
func (s *Service) ApplyImplicitFeedback(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	points, err := s.store.Get(ctx, s.collection, ids)
	if err != nil {
		return 0, WrapError(CodeStoreError, err, "loading thoughts for feedback")
	}

	reinforced := 0
	for _, p := range points {
		weight := clampWeight(asFloat(p.Payload[fieldPheromoneWeight]) + FeedbackReinforcement)
		fields := map[string]interface{}{fieldPheromoneWeight: weight}
		if err := s.store.SetPayload(ctx, s.collection, p.ID, fields); err != nil {
			s.logger.Warn("feedback write failed",
				zap.String("id", p.ID),
				zap.Error(err))
			continue
		}
		reinforced++
	}

	return reinforced, nil
}

// ApplySessionFeedback reinforces every thought previously returned in the
// given session. Called after a contribution lands in a known session: the
// retrieved context evidently led to a new, kept insight.
func (s *Service) ApplySessionFeedback(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" || s.queries == nil {
		return 0, nil
	}

	ids, err := s.queries.ReturnedIDsBySession(ctx, sessionID)
	if err != nil {
		return 0, WrapError(CodeStoreError, err, "looking up session retrievals")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	reinforced, err := s.ApplyImplicitFeedback(ctx, ids)
	if err != nil {
		return reinforced, err
	}

	s.logger.Debug("session feedback applied",
		zap.String("session_id", sessionID),
		zap.Int("reinforced", reinforced))
	return reinforced, nil
}
