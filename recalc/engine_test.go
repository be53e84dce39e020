package recalc_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focalops/cost-engine/costs"
	"github.com/focalops/cost-engine/recalc"
	"github.com/focalops/cost-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dollars(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedHourly(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SavePhotographer(ctx, costs.Photographer{
		ID:               "ph-1",
		Name:             "Avery",
		CompensationType: costs.CompHourly,
		HourlyRate:       dollars("20"),
		AmountPerMile:    dollars("0.5"),
		HomeAddress:      "40.0,-75.0",
	}))
	require.NoError(t, store.SaveSchool(ctx, costs.School{
		ID:          "sch-1",
		Name:        "Lakeside Elementary",
		Coordinates: "40.1,-75.0",
	}))
	require.NoError(t, store.SaveSession(ctx, costs.Session{
		ID:             "sess-1",
		PhotographerID: "ph-1",
		SchoolID:       "sch-1",
		Date:           "2025-03-12",
		StartTime:      "08:00",
		EndTime:        "12:00",
	}))
}

// =============================================================================
// SINGLE-SESSION TRIGGER
// =============================================================================

func TestRecalculateSession_AppendsHistoryAndMirror(t *testing.T) {
	// GIVEN: a priced hourly session ($80 labor + $6.90 mileage)
	// WHEN:  its write trigger fires
	// THEN:  one history record is appended and the legacy mirror set
	store := memory.New()
	seedHourly(t, store)
	engine := recalc.NewEngine(store)
	ctx := context.Background()

	breakdown, err := engine.RecalculateSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, breakdown)
	assert.True(t, breakdown.TotalCost.Equal(dollars("86.90")), "total: %s", breakdown.TotalCost)

	history, err := store.CostHistory(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID)
	assert.Equal(t, "ph-1", history[0].PhotographerID)

	total, mirrored, err := store.SessionCostMirror(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, mirrored)
	assert.True(t, total.Equal(dollars("86.90")))
}

func TestRecalculateSession_DuplicateTriggersAppend(t *testing.T) {
	// Overlapping triggers recompute the same session twice; the ledger
	// tolerates the duplicate rather than deduplicating.
	store := memory.New()
	seedHourly(t, store)
	engine := recalc.NewEngine(store)
	ctx := context.Background()

	_, err := engine.RecalculateSession(ctx, "sess-1")
	require.NoError(t, err)
	_, err = engine.RecalculateSession(ctx, "sess-1")
	require.NoError(t, err)

	history, err := store.CostHistory(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.True(t, history[0].Breakdown.TotalCost.Equal(history[1].Breakdown.TotalCost))
}

func TestRecalculateSession_SkipsSilently(t *testing.T) {
	store := memory.New()
	seedHourly(t, store)
	engine := recalc.NewEngine(store)
	ctx := context.Background()

	// Time off: skipped, not errored.
	require.NoError(t, store.SaveSession(ctx, costs.Session{
		ID: "sess-off", PhotographerID: "ph-1", SchoolID: "sch-1",
		Date: "2025-03-12", StartTime: "08:00", EndTime: "12:00", IsTimeOff: true,
	}))
	breakdown, err := engine.RecalculateSession(ctx, "sess-off")
	assert.NoError(t, err)
	assert.Nil(t, breakdown)

	// Photographer missing: skipped.
	require.NoError(t, store.SaveSession(ctx, costs.Session{
		ID: "sess-orphan", PhotographerID: "ph-gone", SchoolID: "sch-1",
		Date: "2025-03-12", StartTime: "08:00", EndTime: "12:00",
	}))
	breakdown, err = engine.RecalculateSession(ctx, "sess-orphan")
	assert.NoError(t, err)
	assert.Nil(t, breakdown)

	// Nothing landed in history for either.
	for _, id := range []string{"sess-off", "sess-orphan"} {
		history, err := store.CostHistory(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, history)
	}
}

func TestRecalculateSession_UnknownID(t *testing.T) {
	engine := recalc.NewEngine(memory.New())

	_, err := engine.RecalculateSession(context.Background(), "nope")
	assert.ErrorIs(t, err, recalc.ErrSessionNotFound)
}

// =============================================================================
// OVERTIME VIA STORED TIME ENTRIES
// =============================================================================

func TestRecalculateSession_OvertimeFromWeeklySiblings(t *testing.T) {
	// GIVEN: salary+OT photographer with 38 clocked hours earlier in the
	//        pay week
	// WHEN:  a 4-hour Friday session is recalculated
	// THEN:  2 hours bill as overtime
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SavePhotographer(ctx, costs.Photographer{
		ID:                "ph-2",
		Name:              "Blake",
		CompensationType:  costs.CompSalaryWithOvertime,
		HourlyRate:        dollars("25"),
		SalaryAmount:      dollars("52000"),
		OvertimeThreshold: 40,
	}))
	require.NoError(t, store.SaveSchool(ctx, costs.School{ID: "sch-1", Name: "Lakeside"}))
	require.NoError(t, store.SaveSession(ctx, costs.Session{
		ID: "sess-fri", PhotographerID: "ph-2", SchoolID: "sch-1",
		Date: "2025-03-14", StartTime: "08:00", EndTime: "12:00",
	}))

	// 38 hours Monday-Thursday, in the heterogeneous clock shape.
	for i, day := range []string{"2025-03-10", "2025-03-11", "2025-03-12"} {
		require.NoError(t, store.SaveTimeEntry(ctx, costs.RawTimeEntry{
			ID: fmt.Sprintf("te-%d", i), PhotographerID: "ph-2", Date: day,
			ClockInTime: "06:00", ClockOutTime: "16:00", // 10h each
		}))
	}
	require.NoError(t, store.SaveTimeEntry(ctx, costs.RawTimeEntry{
		ID: "te-thu", PhotographerID: "ph-2", Date: "2025-03-13",
		ClockInTime: "08:00", ClockOutTime: "16:00", // 8h
	}))

	breakdown, err := recalc.NewEngine(store).RecalculateSession(ctx, "sess-fri")
	require.NoError(t, err)
	require.NotNil(t, breakdown)

	assert.True(t, breakdown.IsOvertimeShift)
	assert.True(t, breakdown.OvertimePay.Equal(dollars("50")), "got %s", breakdown.OvertimePay)
	assert.True(t, breakdown.TotalCost.Equal(dollars("50")))
}

func TestRecalculateSession_ScheduledSessionsFeedWeeklyBudget(t *testing.T) {
	// GIVEN: salary+OT photographer with 38 hours of OTHER scheduled
	//        sessions Monday-Thursday and no clock records at all
	// WHEN:  the 4-hour Friday session is recalculated
	// THEN:  the schedule alone fills the weekly budget; 2 hours bill as
	//        overtime
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SavePhotographer(ctx, costs.Photographer{
		ID:                "ph-2",
		Name:              "Blake",
		CompensationType:  costs.CompSalaryWithOvertime,
		HourlyRate:        dollars("25"),
		SalaryAmount:      dollars("52000"),
		OvertimeThreshold: 40,
	}))
	require.NoError(t, store.SaveSchool(ctx, costs.School{ID: "sch-1", Name: "Lakeside"}))

	// 10h Monday-Wednesday, 8h Thursday: 38 scheduled hours.
	for i, day := range []string{"2025-03-10", "2025-03-11", "2025-03-12"} {
		require.NoError(t, store.SaveSession(ctx, costs.Session{
			ID: fmt.Sprintf("sess-%d", i), PhotographerID: "ph-2", SchoolID: "sch-1",
			Date: day, StartTime: "06:00", EndTime: "16:00",
		}))
	}
	require.NoError(t, store.SaveSession(ctx, costs.Session{
		ID: "sess-thu", PhotographerID: "ph-2", SchoolID: "sch-1",
		Date: "2025-03-13", StartTime: "08:00", EndTime: "16:00",
	}))
	require.NoError(t, store.SaveSession(ctx, costs.Session{
		ID: "sess-fri", PhotographerID: "ph-2", SchoolID: "sch-1",
		Date: "2025-03-14", StartTime: "08:00", EndTime: "12:00",
	}))

	breakdown, err := recalc.NewEngine(store).RecalculateSession(ctx, "sess-fri")
	require.NoError(t, err)
	require.NotNil(t, breakdown)

	assert.True(t, breakdown.IsOvertimeShift)
	assert.True(t, breakdown.OvertimePay.Equal(dollars("50")), "got %s", breakdown.OvertimePay)
	assert.True(t, breakdown.TotalCost.Equal(dollars("50")))
}

func TestRecalculateSession_ClockedSessionNotCountedTwice(t *testing.T) {
	// A session that also has a clock record referencing it must count
	// once, not once per shape.
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SavePhotographer(ctx, costs.Photographer{
		ID: "ph-2", Name: "Blake", CompensationType: costs.CompSalaryWithOvertime,
		HourlyRate: dollars("25"), OvertimeThreshold: 12,
	}))
	require.NoError(t, store.SaveSchool(ctx, costs.School{ID: "sch-1", Name: "Lakeside"}))

	// Monday: 10 scheduled hours AND the matching clock record.
	require.NoError(t, store.SaveSession(ctx, costs.Session{
		ID: "sess-mon", PhotographerID: "ph-2", SchoolID: "sch-1",
		Date: "2025-03-10", StartTime: "08:00", EndTime: "18:00",
	}))
	require.NoError(t, store.SaveTimeEntry(ctx, costs.RawTimeEntry{
		ID: "te-mon", SessionID: "sess-mon", PhotographerID: "ph-2",
		Date: "2025-03-10", ClockInTime: "08:00", ClockOutTime: "18:00",
	}))
	require.NoError(t, store.SaveSession(ctx, costs.Session{
		ID: "sess-fri", PhotographerID: "ph-2", SchoolID: "sch-1",
		Date: "2025-03-14", StartTime: "08:00", EndTime: "12:00",
	}))

	breakdown, err := recalc.NewEngine(store).RecalculateSession(ctx, "sess-fri")
	require.NoError(t, err)
	require.NotNil(t, breakdown)

	// 10 prior hours + 4 = 14 against a threshold of 12: a straddling
	// shift with 2 OT hours. Double counting (20 prior) would price the
	// whole session as overtime instead.
	assert.True(t, breakdown.IsOvertimeShift)
	assert.True(t, breakdown.OvertimePay.Equal(dollars("50")), "got %s", breakdown.OvertimePay)
}

// =============================================================================
// DEPENDENCY-CHANGE TRIGGERS
// =============================================================================

func TestRecalculateForPhotographer_RateChangeReflected(t *testing.T) {
	// GIVEN: a session priced at $20/h
	// WHEN:  the rate changes to $30/h and the photographer trigger runs
	// THEN:  a new history record carries the new price; the old record
	//        survives (append-only)
	store := memory.New()
	seedHourly(t, store)
	engine := recalc.NewEngine(store)
	ctx := context.Background()

	_, err := engine.RecalculateSession(ctx, "sess-1")
	require.NoError(t, err)

	p, err := store.GetPhotographer(ctx, "ph-1")
	require.NoError(t, err)
	p.HourlyRate = dollars("30")
	require.NoError(t, store.SavePhotographer(ctx, *p))

	result, err := engine.RecalculateForPhotographer(ctx, "ph-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Failed)

	history, err := store.CostHistory(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	totals := []decimal.Decimal{history[0].Breakdown.TotalCost, history[1].Breakdown.TotalCost}
	assert.True(t, totals[0].Equal(dollars("126.90")) || totals[1].Equal(dollars("126.90")),
		"new rate should appear: %s, %s", totals[0], totals[1])
	assert.True(t, totals[0].Equal(dollars("86.90")) || totals[1].Equal(dollars("86.90")),
		"old record must survive: %s, %s", totals[0], totals[1])
}

func TestRecalculateForSchool_LocationChangeReflected(t *testing.T) {
	store := memory.New()
	seedHourly(t, store)
	engine := recalc.NewEngine(store)
	ctx := context.Background()

	// Move the school twice as far away.
	require.NoError(t, store.SaveSchool(ctx, costs.School{
		ID: "sch-1", Name: "Lakeside Elementary", Coordinates: "40.2,-75.0",
	}))

	result, err := engine.RecalculateForSchool(ctx, "sch-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)

	history, err := store.CostHistory(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 27.6, history[0].Breakdown.Distance)
}

func TestRecalculateBatch_UnknownDependency(t *testing.T) {
	engine := recalc.NewEngine(memory.New())
	ctx := context.Background()

	_, err := engine.RecalculateForPhotographer(ctx, "nope")
	assert.ErrorIs(t, err, recalc.ErrPhotographerNotFound)

	_, err = engine.RecalculateForSchool(ctx, "nope")
	assert.ErrorIs(t, err, recalc.ErrSchoolNotFound)
}

// =============================================================================
// BACKFILL - fail-soft batches
// =============================================================================

// faultyStore injects a time-entry read failure for one photographer to
// exercise the fail-soft path.
type faultyStore struct {
	*memory.Store
	failFor string
}

func (f *faultyStore) TimeEntriesInRange(ctx context.Context, photographerID string, from, to time.Time) ([]costs.RawTimeEntry, error) {
	if photographerID == f.failFor {
		return nil, errors.New("simulated read failure")
	}
	return f.Store.TimeEntriesInRange(ctx, photographerID, from, to)
}

func TestBackfill_OneFailureDoesNotAbortTheBatch(t *testing.T) {
	// GIVEN: three sessions - one healthy, one time-off, one whose
	//        sibling fetch fails
	// WHEN:  backfill runs
	// THEN:  1 processed, 1 skipped, 1 failed with a tallied error
	base := memory.New()
	seedHourly(t, base)
	ctx := context.Background()

	require.NoError(t, base.SavePhotographer(ctx, costs.Photographer{
		ID: "ph-bad", Name: "Corrupt", CompensationType: costs.CompSalaryWithOvertime, HourlyRate: dollars("25"),
	}))
	require.NoError(t, base.SaveSession(ctx, costs.Session{
		ID: "sess-bad", PhotographerID: "ph-bad", SchoolID: "sch-1",
		Date: "2025-03-12", StartTime: "08:00", EndTime: "12:00",
	}))
	require.NoError(t, base.SaveSession(ctx, costs.Session{
		ID: "sess-off", PhotographerID: "ph-1", SchoolID: "sch-1",
		Date: "2025-03-12", StartTime: "08:00", EndTime: "12:00", IsTimeOff: true,
	}))

	engine := recalc.NewEngine(&faultyStore{Store: base, failFor: "ph-bad"})

	result, err := engine.Backfill(ctx)
	require.NoError(t, err, "item failures must not become fatal")

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "sess-bad", result.Errors[0].SessionID)

	// The healthy session still got its breakdown.
	history, err := base.CostHistory(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
