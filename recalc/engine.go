/*
Package recalc orchestrates cost recalculation around the pure engine.

PURPOSE:
  The cost engine (package costs) is a pure function. This package owns
  its four call sites:

    1. Session write      - a session was created or updated
    2. Photographer change - a compensation-relevant field was edited
    3. School change       - the school's location moved
    4. Manual backfill     - recompute everything on demand

  All four fetch the same inputs (session, photographer, school, sibling
  time records for the pay week), invoke the same pure calculation, and
  persist through the same write contract - so the four call sites
  cannot drift apart behaviorally.

SKIP SEMANTICS:
  Time-off sessions, sessions missing required fields, and sessions
  whose photographer or school no longer exists are skipped silently
  (counted, logged, never errored). This mirrors the engine's own
  degrade-to-zero philosophy: a recalculation trigger must not abort an
  otherwise-valid write.

BATCH SEMANTICS:
  Batch entry points are fail-soft: a failure on one session is tallied
  in the BatchResult and the batch continues. Only a store-level listing
  failure (persistence unreachable) aborts the whole operation.
*/
package recalc

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/focalops/cost-engine/costs"
)

// Engine drives cost recalculation. Stateless apart from its store
// dependency; safe for concurrent use by independent triggers.
type Engine struct {
	store Store

	// now is swappable for tests.
	now func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// =============================================================================
// SINGLE-SESSION CALL SITE
// =============================================================================

// RecalculateSession recomputes one session's cost breakdown and
// persists it (history append + legacy mirror refresh).
//
// Returns (nil, nil) when the session was skipped: time-off, missing
// required fields, or an absent photographer/school. Errors are
// reserved for persistence failures and unknown session ids.
func (e *Engine) RecalculateSession(ctx context.Context, sessionID string) (*costs.Breakdown, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session %s: %w", sessionID, err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return e.recalculate(ctx, session)
}

// recalculate is the shared path behind every call site.
func (e *Engine) recalculate(ctx context.Context, session *costs.Session) (*costs.Breakdown, error) {
	if !session.Costable() {
		log.Printf("[Recalc] Skipping session %s: time off or incomplete", session.ID)
		return nil, nil
	}

	photographer, err := e.store.GetPhotographer(ctx, session.PhotographerID)
	if err != nil {
		return nil, fmt.Errorf("fetch photographer %s: %w", session.PhotographerID, err)
	}
	if photographer == nil {
		log.Printf("[Recalc] Skipping session %s: photographer %s not found", session.ID, session.PhotographerID)
		return nil, nil
	}

	school, err := e.store.GetSchool(ctx, session.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("fetch school %s: %w", session.SchoolID, err)
	}
	if school == nil {
		log.Printf("[Recalc] Skipping session %s: school %s not found", session.ID, session.SchoolID)
		return nil, nil
	}

	week, ok := costs.WeekOf(session.Date)
	if !ok {
		// Costable() already vetted the date.
		return nil, nil
	}
	siblings, err := e.store.TimeEntriesInRange(ctx, photographer.ID, week.Start, week.End)
	if err != nil {
		return nil, fmt.Errorf("fetch time entries for %s: %w", photographer.ID, err)
	}

	// The weekly hour budget counts scheduled sessions and clocked time
	// alike, so the photographer's other sessions in the pay week join
	// the sibling set. The aggregator drops this session's own record.
	scheduled, err := e.store.SessionsForPhotographer(ctx, photographer.ID)
	if err != nil {
		return nil, fmt.Errorf("list sessions for %s: %w", photographer.ID, err)
	}
	siblings = append(siblings, sessionSiblings(scheduled, week, siblings)...)

	breakdown := costs.Calculate(session, photographer, school, siblings)

	rec := CostRecord{
		ID:             uuid.NewString(),
		SessionID:      session.ID,
		PhotographerID: photographer.ID,
		Breakdown:      breakdown,
		ComputedAt:     e.now().UTC(),
	}
	if err := e.store.AppendCostRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("append cost record for session %s: %w", session.ID, err)
	}
	if err := e.store.MirrorSessionCost(ctx, session.ID, breakdown); err != nil {
		return nil, fmt.Errorf("mirror cost for session %s: %w", session.ID, err)
	}

	return &breakdown, nil
}

// sessionSiblings converts the photographer's scheduled sessions inside
// the pay week into raw sibling records. Time-off sessions carry no
// workable hours and are left out. A session already represented by a
// clock record (a time entry carrying its id) is skipped too: clocked
// time wins over the schedule, and one session must not count twice.
func sessionSiblings(sessions []costs.Session, week costs.WeekRange, clocked []costs.RawTimeEntry) []costs.RawTimeEntry {
	alreadyClocked := make(map[string]bool, len(clocked))
	for _, entry := range clocked {
		if entry.SessionID != "" {
			alreadyClocked[entry.SessionID] = true
		}
	}

	var entries []costs.RawTimeEntry
	for _, s := range sessions {
		if s.IsTimeOff || alreadyClocked[s.ID] {
			continue
		}
		d, ok := costs.ParseDateValue(s.Date)
		if !ok || !week.Contains(d) {
			continue
		}
		entries = append(entries, costs.RawTimeEntry{
			ID:             s.ID,
			SessionID:      s.ID,
			PhotographerID: s.PhotographerID,
			Date:           s.Date,
			StartTime:      s.StartTime,
			EndTime:        s.EndTime,
		})
	}
	return entries
}

// =============================================================================
// BATCH CALL SITES
// =============================================================================

// BatchResult tallies one batch recalculation. Errors holds the
// per-session failures; their presence never aborts the batch.
type BatchResult struct {
	Processed int         `json:"processed"`
	Skipped   int         `json:"skipped"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// RecalculateForPhotographer recomputes every session assigned to the
// photographer. Invoked when a compensation-relevant field changes.
func (e *Engine) RecalculateForPhotographer(ctx context.Context, photographerID string) (BatchResult, error) {
	photographer, err := e.store.GetPhotographer(ctx, photographerID)
	if err != nil {
		return BatchResult{}, err
	}
	if photographer == nil {
		return BatchResult{}, fmt.Errorf("%w: %s", ErrPhotographerNotFound, photographerID)
	}

	sessions, err := e.store.SessionsForPhotographer(ctx, photographerID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list sessions for photographer %s: %w", photographerID, err)
	}
	result := e.runBatch(ctx, sessions)
	log.Printf("[Recalc] Photographer %s: %d recalculated, %d skipped, %d failed",
		photographerID, result.Processed, result.Skipped, result.Failed)
	return result, nil
}

// RecalculateForSchool recomputes every session at the school. Invoked
// when the school's location changes.
func (e *Engine) RecalculateForSchool(ctx context.Context, schoolID string) (BatchResult, error) {
	school, err := e.store.GetSchool(ctx, schoolID)
	if err != nil {
		return BatchResult{}, err
	}
	if school == nil {
		return BatchResult{}, fmt.Errorf("%w: %s", ErrSchoolNotFound, schoolID)
	}

	sessions, err := e.store.SessionsForSchool(ctx, schoolID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list sessions for school %s: %w", schoolID, err)
	}
	result := e.runBatch(ctx, sessions)
	log.Printf("[Recalc] School %s: %d recalculated, %d skipped, %d failed",
		schoolID, result.Processed, result.Skipped, result.Failed)
	return result, nil
}

// Backfill recomputes every session in the store. The manual catch-all:
// used after imports, schema fixes, or historical drift.
func (e *Engine) Backfill(ctx context.Context) (BatchResult, error) {
	sessions, err := e.store.ListSessions(ctx)
	if err != nil {
		// Whole-operation failure: the store itself is unreachable.
		return BatchResult{}, fmt.Errorf("list sessions: %w", err)
	}
	result := e.runBatch(ctx, sessions)
	log.Printf("[Recalc] Backfill: %d recalculated, %d skipped, %d failed",
		result.Processed, result.Skipped, result.Failed)
	return result, nil
}

// runBatch processes sessions independently; one failure never stops
// the rest.
func (e *Engine) runBatch(ctx context.Context, sessions []costs.Session) BatchResult {
	var result BatchResult
	for i := range sessions {
		session := sessions[i]
		breakdown, err := e.recalculate(ctx, &session)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, ItemError{SessionID: session.ID, Err: err})
			log.Printf("[Recalc] Session %s failed: %v", session.ID, err)
		case breakdown == nil:
			result.Skipped++
		default:
			result.Processed++
		}
	}
	return result
}
