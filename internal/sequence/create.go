package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"southerniot.dev/erp/internal/store"
)

// Record is a persisted entity carrying a sequenced identifier.
type Record interface {
	SetPublicID(id string)
}

// ErrConflict reports that concurrent writers exhausted the duplicate-key
// retry budget. The operation is retryable by the caller.
var ErrConflict = errors.New("sequenced identifier conflict")

// createAttempts bounds the allocate-and-insert retry loop. Two concurrent
// writers against the same prefix serialize on the identifier column's unique
// index; the loser re-reads and re-allocates.
const createAttempts = 3

// Create allocates the next identifier for sp and persists rec, both within
// one session against db. When the store reports a uniqueness violation the
// whole unit retries with a fresh transaction and a fresh read, so the
// scan-and-increment is never the last line of defense.
func Create(ctx context.Context, reg *store.Registry, db store.LogicalDatabase, sp Spec, rec Record, log *slog.Logger) error {
	m := reg.Metrics()

	for attempt := 1; attempt <= createAttempts; attempt++ {
		err := reg.WithSession(ctx, db, func(tx *gorm.DB) error {
			id, err := NextID(tx, sp, log)
			if err != nil {
				return err
			}
			rec.SetPublicID(id)
			return tx.Create(rec).Error
		})

		switch {
		case err == nil:
			if m != nil {
				m.SequenceAllocations.WithLabelValues(sp.Table, "success").Inc()
			}
			return nil

		case errors.Is(err, gorm.ErrDuplicatedKey):
			if m != nil {
				m.SequenceConflicts.WithLabelValues(sp.Table).Inc()
			}
			if log != nil {
				log.Warn("identifier conflict, reallocating",
					"table", sp.Table,
					"attempt", attempt,
				)
			}

		default:
			if m != nil {
				m.SequenceAllocations.WithLabelValues(sp.Table, "error").Inc()
			}
			return err
		}
	}

	if m != nil {
		m.SequenceAllocations.WithLabelValues(sp.Table, "conflict").Inc()
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrConflict, sp.Table, createAttempts)
}
