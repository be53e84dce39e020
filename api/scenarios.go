/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates photographers,
	schools, sessions, and time entries, then runs a backfill so every
	session carries a cost breakdown.

AVAILABLE SCENARIOS:

	hourly-crew:     Hourly photographers with mileage reimbursement
	overtime-week:   A salary+OT photographer pushed past the threshold
	mixed-staff:     All three compensation models side by side

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create photographers and schools
 3. Create a week of sessions and time entries
 4. Backfill cost breakdowns

NOTE:

	Scenarios reset the database. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
  - recalc/engine.go: Backfill
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/focalops/cost-engine/costs"
)

// mustMoney parses a dollar literal; scenario data is hardcoded so a
// bad literal is a programming error.
func mustMoney(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "hourly-crew",
		Name:        "Hourly Crew",
		Description: "Two hourly photographers covering fall picture days, with mileage",
	},
	{
		ID:          "overtime-week",
		Name:        "Overtime Week",
		Description: "Salary+overtime photographer pushed past the 40-hour threshold",
	},
	{
		ID:          "mixed-staff",
		Name:        "Mixed Staff",
		Description: "Hourly, salaried, and salary+overtime photographers side by side",
	},
}

// =============================================================================
// HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "hourly-crew":
		err = h.loadHourlyCrew(ctx)
	case "overtime-week":
		err = h.loadOvertimeWeek(ctx)
	case "mixed-staff":
		err = h.loadMixedStaff(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	result, err := h.Engine.Backfill(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to backfill scenario costs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario":      req.ScenarioID,
		"recalculation": toRecalcResultDTO(result),
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadHourlyCrew(ctx context.Context) error {
	photographers := []costs.Photographer{
		{
			ID: "ph-avery", Name: "Avery Quinn",
			CompensationType: costs.CompHourly,
			HourlyRate:       mustMoney("22.50"),
			AmountPerMile:    mustMoney("0.585"),
			HomeAddress:      "39.95,-75.16",
		},
		{
			ID: "ph-jordan", Name: "Jordan Lee",
			CompensationType: costs.CompHourly,
			HourlyRate:       mustMoney("20"),
			AmountPerMile:    mustMoney("0.5"),
			HomeAddress:      "40.03,-75.12",
		},
	}
	schools := []costs.School{
		{ID: "sch-lakeside", Name: "Lakeside Elementary", Coordinates: "40.05,-75.20"},
		{ID: "sch-ridgeview", Name: "Ridgeview High", SchoolAddress: "39.90,-75.30"},
	}
	sessions := []costs.Session{
		{ID: "sess-1", PhotographerID: "ph-avery", SchoolID: "sch-lakeside",
			Date: "2025-09-15", StartTime: "08:00", EndTime: "14:00"},
		{ID: "sess-2", PhotographerID: "ph-jordan", SchoolID: "sch-ridgeview",
			Date: "2025-09-15", StartTime: "07:30", EndTime: "12:30"},
		{ID: "sess-3", PhotographerID: "ph-avery", SchoolID: "sch-ridgeview",
			Date: "2025-09-17", StartTime: "09:00", EndTime: "15:00"},
	}
	return h.seed(ctx, photographers, schools, sessions, nil)
}

func (h *Handler) loadOvertimeWeek(ctx context.Context) error {
	photographers := []costs.Photographer{
		{
			ID: "ph-casey", Name: "Casey Morgan",
			CompensationType:  costs.CompSalaryWithOvertime,
			HourlyRate:        mustMoney("28"),
			SalaryAmount:      mustMoney("54000"),
			OvertimeThreshold: 40,
			AmountPerMile:     mustMoney("0.585"),
			HomeAddress:       "40.00,-75.00",
		},
	}
	schools := []costs.School{
		{ID: "sch-lakeside", Name: "Lakeside Elementary", Coordinates: "40.10,-75.00"},
	}
	// 38 hours of clocked work Monday-Thursday; the Friday session
	// straddles the threshold.
	entries := []costs.RawTimeEntry{
		{ID: "te-mon", PhotographerID: "ph-casey", Date: "2025-09-15", ClockInTime: "07:00", ClockOutTime: "17:00"},
		{ID: "te-tue", PhotographerID: "ph-casey", Date: "2025-09-16", ClockInTime: "07:00", ClockOutTime: "17:00"},
		{ID: "te-wed", PhotographerID: "ph-casey", Date: "2025-09-17", ClockInTime: "07:00", ClockOutTime: "17:00"},
		{ID: "te-thu", PhotographerID: "ph-casey", Date: "2025-09-18", ClockInTime: "08:00", ClockOutTime: "16:00"},
	}
	sessions := []costs.Session{
		{ID: "sess-friday", PhotographerID: "ph-casey", SchoolID: "sch-lakeside",
			Date: "2025-09-19", StartTime: "08:00", EndTime: "14:00"},
	}
	return h.seed(ctx, photographers, schools, sessions, entries)
}

func (h *Handler) loadMixedStaff(ctx context.Context) error {
	photographers := []costs.Photographer{
		{
			ID: "ph-avery", Name: "Avery Quinn",
			CompensationType: costs.CompHourly,
			HourlyRate:       mustMoney("22.50"),
			AmountPerMile:    mustMoney("0.585"),
			HomeAddress:      "39.95,-75.16",
		},
		{
			ID: "ph-drew", Name: "Drew Santos",
			CompensationType: costs.CompSalary,
			SalaryAmount:     mustMoney("62000"),
			AmountPerMile:    mustMoney("0.585"),
			HomeAddress:      "40.02,-75.08",
		},
		{
			ID: "ph-casey", Name: "Casey Morgan",
			CompensationType:  costs.CompSalaryWithOvertime,
			HourlyRate:        mustMoney("28"),
			SalaryAmount:      mustMoney("54000"),
			OvertimeThreshold: 40,
			AmountPerMile:     mustMoney("0.585"),
			HomeAddress:       "40.00,-75.00",
		},
	}
	schools := []costs.School{
		{ID: "sch-lakeside", Name: "Lakeside Elementary", Coordinates: "40.05,-75.20"},
		{ID: "sch-ridgeview", Name: "Ridgeview High", SchoolAddress: "39.90,-75.30"},
	}
	sessions := []costs.Session{
		{ID: "sess-1", PhotographerID: "ph-avery", SchoolID: "sch-lakeside",
			Date: "2025-09-15", StartTime: "08:00", EndTime: "14:00"},
		{ID: "sess-2", PhotographerID: "ph-drew", SchoolID: "sch-ridgeview",
			Date: "2025-09-16", StartTime: "08:00", EndTime: "16:00"},
		{ID: "sess-3", PhotographerID: "ph-casey", SchoolID: "sch-lakeside",
			Date: "2025-09-17", StartTime: "08:00", EndTime: "14:00"},
		// Time off: saved but never costed.
		{ID: "sess-off", PhotographerID: "ph-avery", SchoolID: "sch-lakeside",
			Date: "2025-09-18", StartTime: "08:00", EndTime: "16:00", IsTimeOff: true},
	}
	return h.seed(ctx, photographers, schools, sessions, nil)
}

func (h *Handler) seed(ctx context.Context, photographers []costs.Photographer, schools []costs.School, sessions []costs.Session, entries []costs.RawTimeEntry) error {
	for _, p := range photographers {
		if err := h.Store.SavePhotographer(ctx, p); err != nil {
			return err
		}
	}
	for _, s := range schools {
		if err := h.Store.SaveSchool(ctx, s); err != nil {
			return err
		}
	}
	for _, s := range sessions {
		if err := h.Store.SaveSession(ctx, s); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := h.Store.SaveTimeEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
