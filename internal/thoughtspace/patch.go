package thoughtspace

import (
	"context"

	"go.uber.org/zap"
)

// patchableFields is the allow-list for metadata patches. Content,
// embedding, provenance, lineage, and telemetry fields are never patchable.
var patchableFields = map[string]bool{
	fieldCategory:      true,
	fieldTopic:         true,
	fieldTemporalScope: true,
	fieldQualityFlags:  true,
	fieldCorrectedFact: true,
	fieldCorrectFact:   true,
	fieldSupersedes:    true,
	fieldTags:          true,
}

// PatchMetadata updates classification metadata on an existing thought.
// Fields outside the allow-list are rejected before any store interaction.
func (s *Service) PatchMetadata(ctx context.Context, id string, fields map[string]interface{}) error {
	if id == "" {
		return NewError(CodeValidation, "thought id is required")
	}
	if len(fields) == 0 {
		return NewError(CodeValidation, "no fields to patch")
	}
	for name := range fields {
		if !patchableFields[name] {
			return NewError(CodeValidation, "field %q is not patchable", name)
		}
	}

	// Existence check so a patch of a missing id is NOT_FOUND, not a silent
	// payload write to nothing.
	points, err := s.store.Get(ctx, s.collection, []string{id})
	if err != nil {
		return WrapError(CodeStoreError, err, "loading thought %s", id)
	}
	if len(points) == 0 {
		return NewError(CodeNotFound, "thought %s not found", id)
	}

	if err := s.store.SetPayload(ctx, s.collection, id, fields); err != nil {
		return WrapError(CodeStoreError, err, "patching thought %s", id)
	}

	s.logger.Info("thought metadata patched",
		zap.String("id", id),
		zap.Int("fields", len(fields)))
	return nil
}
