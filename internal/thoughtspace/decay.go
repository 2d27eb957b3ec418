package thoughtspace

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/vectorstore"
)

// RunDecayPass multiplies the pheromone weight of every thought idle longer
// than DecayIdleThreshold by DecayFactor, flooring at MinPheromoneWeight.
// Returns the number of thoughts updated.
//
// The pass is paginated and checks ctx between pages, so shutdown can
// interrupt it cleanly. Races with concurrent reinforcement are
// last-writer-wins on the weight field; the value is advisory, not
// transactional. Individual write failures are logged and skipped.
func (s *Service) RunDecayPass(ctx context.Context) (int, error) {
	cutoff := float64(s.now().Add(-DecayIdleThreshold).Unix())
	filter := &vectorstore.Filter{
		Must: []vectorstore.Condition{
			{Field: fieldLastAccessedUnix, Range: &vectorstore.Range{Lt: &cutoff}},
		},
	}

	updated := 0
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		page, err := s.store.Scroll(ctx, s.collection, filter, scrollPageSize, cursor)
		if err != nil {
			return updated, WrapError(CodeStoreError, err, "scanning idle thoughts")
		}

		for _, p := range page.Points {
			weight := asFloat(p.Payload[fieldPheromoneWeight])
			decayed := clampWeight(weight * DecayFactor)
			if decayed >= weight {
				continue
			}

			fields := map[string]interface{}{fieldPheromoneWeight: decayed}
			if err := s.store.SetPayload(ctx, s.collection, p.ID, fields); err != nil {
				s.logger.Warn("decay write failed",
					zap.String("id", p.ID),
					zap.Error(err))
				continue
			}
			updated++
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	s.logger.Debug("decay pass complete", zap.Int("updated", updated))
	return updated, nil
}
