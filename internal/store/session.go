package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// WithSession runs fn inside one unit-of-work against db's pool: a single
// transaction, committed when fn returns nil and rolled back when fn returns
// an error or panics. The borrowed connection is returned to the pool exactly
// once on every exit path; a panic propagates after rollback.
//
// Sessions are never shared across concurrent logical operations. A caller
// touching two logical databases must open two independent sessions and
// accepts that there is no two-phase commit between them.
func (r *Registry) WithSession(ctx context.Context, db LogicalDatabase, fn func(tx *gorm.DB) error) error {
	gdb, err := r.DB(db)
	if err != nil {
		return fmt.Errorf("acquiring %s session: %w", db.String(), err)
	}

	start := time.Now()
	status := "rolled_back"
	if r.metrics != nil {
		r.metrics.SessionsActive.WithLabelValues(db.String()).Inc()
	}
	defer func() {
		if r.metrics != nil {
			r.metrics.SessionsActive.WithLabelValues(db.String()).Dec()
			r.metrics.SessionsTotal.WithLabelValues(db.String(), status).Inc()
			r.metrics.SessionDuration.WithLabelValues(db.String()).Observe(time.Since(start).Seconds())
		}
	}()

	// gorm's Transaction rolls back on error and on panic (the panic is
	// re-raised after the rollback), which is exactly the release guarantee
	// the broker owes its callers.
	err = gdb.WithContext(ctx).Transaction(fn)
	if err == nil {
		status = "committed"
	}
	return err
}
