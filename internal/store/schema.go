package store

import (
	"context"
	"fmt"
	"time"
)

const (
	// schemaInitAttempts bounds connection retries per database at startup.
	schemaInitAttempts = 5
	// schemaInitDelay is the fixed wait between attempts.
	schemaInitDelay = 5 * time.Second
)

// InitializeAll creates the entity tables of every logical database. It must
// run once at process startup before traffic is served. Table creation is
// idempotent (create-if-absent), so a second run is a no-op.
//
// Connectivity failures are retried up to schemaInitAttempts times with a
// fixed schemaInitDelay between attempts. If any database stays unreachable
// the error is returned and startup must abort: a partially initialized set
// of databases is not an acceptable running state.
func (r *Registry) InitializeAll(ctx context.Context) error {
	for _, db := range All() {
		if _, ok := r.dialectors[db]; !ok {
			continue
		}
		if err := r.initialize(ctx, db); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) initialize(ctx context.Context, db LogicalDatabase) error {
	models, err := Models(db)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= r.initAttempts; attempt++ {
		r.log.Info("initializing database schema",
			"database", db.String(),
			"attempt", attempt,
			"max_attempts", r.initAttempts,
		)

		gdb, err := r.DB(db)
		if err == nil {
			err = gdb.WithContext(ctx).AutoMigrate(models...)
		}
		if err == nil {
			if r.metrics != nil {
				r.metrics.SchemaInitAttempts.WithLabelValues(db.String(), "success").Inc()
			}
			r.log.Info("database schema ready", "database", db.String())
			return nil
		}

		lastErr = err
		if r.metrics != nil {
			r.metrics.SchemaInitAttempts.WithLabelValues(db.String(), "error").Inc()
		}
		r.log.Warn("database schema initialization failed",
			"database", db.String(),
			"attempt", attempt,
			"error", err,
		)

		if attempt < r.initAttempts {
			select {
			case <-ctx.Done():
				return fmt.Errorf("initializing %s database: %w", db.String(), ctx.Err())
			case <-time.After(r.initDelay):
			}
		}
	}

	return fmt.Errorf("initializing %s database after %d attempts: %w", db.String(), r.initAttempts, lastErr)
}
