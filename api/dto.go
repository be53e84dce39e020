/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY FIELDS:
  Dollar amounts travel as strings ("20.00", "0.585") to avoid float
  precision loss at the JSON boundary; they parse to decimal.Decimal in
  the handlers.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/focalops/cost-engine/costs"
	"github.com/focalops/cost-engine/recalc"
)

// =============================================================================
// PHOTOGRAPHERS
// =============================================================================

type PhotographerDTO struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	CompensationType  string  `json:"compensation_type"`
	HourlyRate        string  `json:"hourly_rate"`
	SalaryAmount      string  `json:"salary_amount"`
	OvertimeThreshold float64 `json:"overtime_threshold,omitempty"`
	AmountPerMile     string  `json:"amount_per_mile"`
	HomeAddress       string  `json:"home_address,omitempty"`
}

type SavePhotographerRequest struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	CompensationType  string  `json:"compensation_type"`
	HourlyRate        string  `json:"hourly_rate"`
	SalaryAmount      string  `json:"salary_amount"`
	OvertimeThreshold float64 `json:"overtime_threshold"`
	AmountPerMile     string  `json:"amount_per_mile"`
	HomeAddress       string  `json:"home_address"`
}

func toPhotographerDTO(p costs.Photographer) PhotographerDTO {
	return PhotographerDTO{
		ID:                p.ID,
		Name:              p.Name,
		CompensationType:  string(p.CompensationType),
		HourlyRate:        p.HourlyRate.String(),
		SalaryAmount:      p.SalaryAmount.String(),
		OvertimeThreshold: p.OvertimeThreshold,
		AmountPerMile:     p.AmountPerMile.String(),
		HomeAddress:       p.HomeAddress,
	}
}

// =============================================================================
// SCHOOLS
// =============================================================================

type SchoolDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Coordinates   string `json:"coordinates,omitempty"`
	SchoolAddress string `json:"school_address,omitempty"`
}

type SaveSchoolRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Coordinates   string `json:"coordinates"`
	SchoolAddress string `json:"school_address"`
}

func toSchoolDTO(s costs.School) SchoolDTO {
	return SchoolDTO{
		ID:            s.ID,
		Name:          s.Name,
		Coordinates:   s.Coordinates,
		SchoolAddress: s.SchoolAddress,
	}
}

// =============================================================================
// SESSIONS
// =============================================================================

type SessionDTO struct {
	ID             string `json:"id"`
	PhotographerID string `json:"photographer_id"`
	SchoolID       string `json:"school_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	IsTimeOff      bool   `json:"is_time_off"`

	// Cost is the legacy single-value mirror, populated on reads when a
	// breakdown exists.
	Cost          string           `json:"cost,omitempty"`
	CostBreakdown *costs.Breakdown `json:"cost_breakdown,omitempty"`
}

type SaveSessionRequest struct {
	ID             string `json:"id"`
	PhotographerID string `json:"photographer_id"`
	SchoolID       string `json:"school_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	IsTimeOff      bool   `json:"is_time_off"`
}

func toSessionDTO(s costs.Session, cost decimal.Decimal, breakdown *costs.Breakdown) SessionDTO {
	date, _ := costs.ParseDateValue(s.Date)
	dto := SessionDTO{
		ID:             s.ID,
		PhotographerID: s.PhotographerID,
		SchoolID:       s.SchoolID,
		Date:           date.String(),
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		IsTimeOff:      s.IsTimeOff,
		CostBreakdown:  breakdown,
	}
	if breakdown != nil {
		dto.Cost = cost.StringFixed(2)
	}
	return dto
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

type SaveTimeEntryRequest struct {
	ID             string `json:"id"`
	SessionID      string `json:"session_id"`
	PhotographerID string `json:"photographer_id"`
	Date           string `json:"date"`
	ClockInTime    string `json:"clock_in_time"`
	ClockOutTime   string `json:"clock_out_time"`
}

// =============================================================================
// COST HISTORY
// =============================================================================

type CostRecordDTO struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	PhotographerID string          `json:"photographer_id"`
	Breakdown      costs.Breakdown `json:"breakdown"`
	ComputedAt     string          `json:"computed_at"`
}

func toCostRecordDTO(rec recalc.CostRecord) CostRecordDTO {
	return CostRecordDTO{
		ID:             rec.ID,
		SessionID:      rec.SessionID,
		PhotographerID: rec.PhotographerID,
		Breakdown:      rec.Breakdown,
		ComputedAt:     rec.ComputedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// RECALCULATION RESULTS
// =============================================================================

// RecalcResultDTO wraps the outcome of a dependency-change or backfill
// trigger for API display.
type RecalcResultDTO struct {
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

func toRecalcResultDTO(result recalc.BatchResult) RecalcResultDTO {
	dto := RecalcResultDTO{
		Processed: result.Processed,
		Skipped:   result.Skipped,
		Failed:    result.Failed,
	}
	for _, itemErr := range result.Errors {
		dto.Errors = append(dto.Errors, itemErr.Error())
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
