package annotation

import (
	"context"
	"fmt"

	"github.com/ppiankov/intralign/internal/model"
)

// SeedMachine stores detected strategies as machine annotations in status
// created. It stops at the first failure and returns what was stored.
func (s *Store) SeedMachine(ctx context.Context, session string, strategies []model.DetectedStrategy) ([]model.Annotation, error) {
	out := make([]model.Annotation, 0, len(strategies))
	for _, ds := range strategies {
		a, err := s.Create(ctx, CreateParams{
			SessionID:     session,
			StrategyCode:  ds.Code,
			Origin:        model.OriginMachine,
			SourceOffsets: ds.SourceSpan,
			TargetOffsets: ds.TargetSpan,
			Confidence:    ds.Confidence,
			Explanation:   ds.Explanation.Text,
		})
		if err != nil {
			return out, fmt.Errorf("seed %s: %w", ds.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}
