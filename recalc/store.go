/*
store.go - Persistence contracts the recalculation engine depends on

PURPOSE:
  The engine never touches a database directly; it speaks to this
  interface and the store packages (sqlite, memory) implement it. The
  cost engine itself (package costs) is pure - every read and write in
  the system flows through here.

READ CONTRACT:
  Lookups return (nil, nil) when the record is absent. Callers treat
  absence as "skip this session silently", never as a failure.

WRITE CONTRACT:
  Cost history is APPEND-ONLY: breakdowns are added, never updated or
  deleted. Recomputing a session appends a fresh record; duplicate
  appends from overlapping triggers are tolerated (each row has its own
  id and timestamp). A legacy single-value mirror on the
  session row is refreshed for consumers that expect one photographer
  per session.

SEE ALSO:
  - store/sqlite: production implementation
  - store/memory: test/demo implementation
*/
package recalc

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/focalops/cost-engine/costs"
)

// CostRecord is one append-only cost-history row: a computed breakdown
// plus provenance.
type CostRecord struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	PhotographerID string          `json:"photographer_id"`
	Breakdown      costs.Breakdown `json:"breakdown"`
	ComputedAt     time.Time       `json:"computed_at"`
}

// SessionWithCost pairs a session with its legacy mirror columns, so
// list reads resolve costs in one store round trip.
type SessionWithCost struct {
	Session   costs.Session
	Cost      decimal.Decimal
	Breakdown *costs.Breakdown
}

// Store is everything the recalculation engine needs from persistence.
type Store interface {
	// Lookups return (nil, nil) when absent.
	GetSession(ctx context.Context, id string) (*costs.Session, error)
	GetPhotographer(ctx context.Context, id string) (*costs.Photographer, error)
	GetSchool(ctx context.Context, id string) (*costs.School, error)

	// Session listings for the batch call sites. Ordering is not
	// significant; the engine processes items independently.
	ListSessions(ctx context.Context) ([]costs.Session, error)
	SessionsForPhotographer(ctx context.Context, photographerID string) ([]costs.Session, error)
	SessionsForSchool(ctx context.Context, schoolID string) ([]costs.Session, error)

	// TimeEntriesInRange returns the photographer's raw time records
	// with dates inside [from, to]. Shapes are heterogeneous; the cost
	// engine normalizes them.
	TimeEntriesInRange(ctx context.Context, photographerID string, from, to time.Time) ([]costs.RawTimeEntry, error)

	// AppendCostRecord adds to the session's cost history. Append-only:
	// implementations must not overwrite prior records.
	AppendCostRecord(ctx context.Context, rec CostRecord) error

	// MirrorSessionCost refreshes the legacy cost/costBreakdown mirror
	// on the session row.
	MirrorSessionCost(ctx context.Context, sessionID string, breakdown costs.Breakdown) error
}
