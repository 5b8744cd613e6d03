package http

import (
	"context"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// Readiness is ready when every member is. Nil members are skipped.
type Readiness []sharedobs.ReadinessChecker

// CheckReadiness returns the first member error.
func (r Readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if c == nil {
			continue
		}
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
