// Package sequence allocates year-scoped, zero-padded human identifiers of
// the form PREFIX-YEAR-NNNN. One routine serves every entity family; families
// differ only in table, identifier column, and prefix template.
package sequence

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Spec parameterizes the allocator for one entity family.
type Spec struct {
	// Table is the entity table holding the identifier column.
	Table string
	// Column is the identifier column, unique-indexed.
	Column string
	// Template formats the year into the identifier prefix, e.g. "CLI-%d-".
	Template string
}

// The four sequenced entity families.
var (
	ClientIDs    = Spec{Table: "clients", Column: "client_id", Template: "CLI-%d-"}
	OrderIDs     = Spec{Table: "order_management", Column: "order_id", Template: "ORD-%d-"}
	EndDeviceIDs = Spec{Table: "end-device", Column: "end_device_id", Template: "ED-%d-"}
	GatewayIDs   = Spec{Table: "gateway", Column: "gateway_id", Template: "G-%d-"}
)

// Prefix returns the identifier prefix for year, e.g. "CLI-2025-".
func (s Spec) Prefix(year int) string {
	return fmt.Sprintf(s.Template, year)
}

// Suffix extracts the numeric suffix of id under the given prefix.
// ok is false when the suffix is not a plain decimal number.
func Suffix(id, prefix string) (n int, ok bool) {
	rest := strings.TrimPrefix(id, prefix)
	if rest == id || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Format renders a full identifier: 4-digit zero-padded suffix, growing in
// digit count past 9999 rather than wrapping.
func Format(prefix string, n int) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}

// NextID computes the next identifier for sp using the current year, reading
// through tx. The caller must persist the identifier within the same
// transaction that produced this read, or the value may be stale by the time
// it is inserted.
func NextID(tx *gorm.DB, sp Spec, log *slog.Logger) (string, error) {
	return nextIDForYear(tx, sp, time.Now().UTC().Year(), log)
}

func nextIDForYear(tx *gorm.DB, sp Spec, year int, log *slog.Logger) (string, error) {
	prefix := sp.Prefix(year)

	// Lexicographically greatest identifier under this year's prefix. The
	// fixed-width zero padding makes lexicographic and numeric order agree.
	var last []string
	err := tx.Table(sp.Table).
		Where(sp.Column+" LIKE ?", prefix+"%").
		Order(clause.OrderByColumn{Column: clause.Column{Name: sp.Column}, Desc: true}).
		Limit(1).
		Pluck(sp.Column, &last).Error
	if err != nil {
		return "", fmt.Errorf("scanning %s for prefix %s: %w", sp.Table, prefix, err)
	}

	next := 1
	if len(last) > 0 {
		n, ok := Suffix(last[0], prefix)
		if ok {
			next = n + 1
		} else if log != nil {
			// Deliberate leniency: malformed stored data restarts the
			// sequence rather than failing the request.
			log.Warn("malformed stored identifier, restarting sequence",
				"table", sp.Table,
				"identifier", last[0],
				"prefix", prefix,
			)
		}
	}

	return Format(prefix, next), nil
}
