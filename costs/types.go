/*
Package costs is the session cost calculation engine.

PURPOSE:
  Computes the labor and mileage cost of one scheduled photography
  session, given the photographer's compensation profile, the school's
  location, and the photographer's other time records in the same pay
  week. This is the payroll-grade core of the system: everything in
  here is a pure function - plain data in, cost breakdown out.

KEY CONCEPTS IN THIS FILE (types.go):
  - Session: one scheduled unit of work at one school
  - Photographer: a compensation profile (hourly / salary / salary+OT)
  - School: a shoot location with coordinates
  - RawTimeEntry / TimeEntry: sibling time-clock records competing for
    the same weekly hour budget
  - Breakdown: the immutable computed cost record

DESIGN PRINCIPLES:
  1. Purity: no I/O, no clocks, no globals. Persistence and triggering
     live in the recalc and store packages.
  2. Silent degradation: missing or malformed domain data produces a
     zero/neutral result, never an error. The engine runs inside write
     triggers where a thrown error would abort an otherwise-valid write.
  3. Precision: dollar math uses decimal.Decimal; hours and miles stay
     float64 and are rounded only where the contract says so.

SEE ALSO:
  - labor.go: per-compensation-model labor cost + overtime apportionment
  - geo.go: coordinate parsing, Haversine distance, mileage cost
  - breakdown.go: the aggregator composing labor + mileage
  - date.go: canonical dates and pay-week boundaries
*/
package costs

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// COMPENSATION MODELS
// =============================================================================

type CompensationType string

const (
	CompHourly             CompensationType = "hourly"
	CompSalary             CompensationType = "salary"
	CompSalaryWithOvertime CompensationType = "salary_with_overtime"
)

// DefaultOvertimeThreshold is the weekly hour count after which a
// salary_with_overtime photographer earns hourly pay, when the profile
// does not set its own threshold.
const DefaultOvertimeThreshold = 40.0

// =============================================================================
// DOMAIN RECORDS
// =============================================================================

// Session is one scheduled unit of work by a photographer at a school.
// StartTime and EndTime are naive wall-clock "HH:MM" strings on the
// session's calendar date.
type Session struct {
	ID             string
	PhotographerID string
	SchoolID       string
	Date           any // ISO date string, time.Time, or ToDate() wrapper
	StartTime      string
	EndTime        string

	// IsTimeOff marks non-working time. Time-off sessions are excluded
	// from cost calculation entirely; callers skip them before invoking
	// the engine.
	IsTimeOff bool
}

// Costable reports whether the session carries everything the engine
// needs. Callers skip sessions that fail this check.
func (s *Session) Costable() bool {
	if s == nil || s.IsTimeOff {
		return false
	}
	if s.PhotographerID == "" || s.SchoolID == "" {
		return false
	}
	if _, ok := ParseDateValue(s.Date); !ok {
		return false
	}
	return s.StartTime != "" && s.EndTime != ""
}

// Photographer is the compensation profile the engine prices against.
type Photographer struct {
	ID               string
	Name             string
	CompensationType CompensationType

	// HourlyRate prices hourly sessions and the overtime premium under
	// salary_with_overtime.
	HourlyRate decimal.Decimal

	// SalaryAmount is echoed into breakdowns for audit; the engine never
	// consumes it in cost math.
	SalaryAmount decimal.Decimal

	// OvertimeThreshold in hours/week; zero or negative means unset
	// (DefaultOvertimeThreshold applies).
	OvertimeThreshold float64

	// AmountPerMile is the round-trip mileage reimbursement rate.
	AmountPerMile decimal.Decimal

	// HomeAddress is a "lat,lng" coordinate string, the mileage origin.
	HomeAddress string
}

// School is a shoot location. Coordinates is the current field; legacy
// records carry the coordinate string in SchoolAddress instead.
type School struct {
	ID   string
	Name string

	Coordinates   string
	SchoolAddress string // legacy field, same "lat,lng" format
}

// LocationString resolves the school's coordinate string through the
// ordered field-fallback chain: Coordinates first, then the legacy
// SchoolAddress. This is the single place the fallback order lives.
func (s *School) LocationString() string {
	if s == nil {
		return ""
	}
	if s.Coordinates != "" {
		return s.Coordinates
	}
	return s.SchoolAddress
}

// =============================================================================
// SIBLING TIME RECORDS
// =============================================================================

// RawTimeEntry is a sibling time record as persisted: shapes vary
// (scheduled sessions carry StartTime/EndTime strings, time-clock
// records carry ClockInTime/ClockOutTime as timestamps). Normalized via
// NormalizeTimeEntries before the labor calculator sees it.
type RawTimeEntry struct {
	ID             string
	SessionID      string
	PhotographerID string
	Date           any
	StartTime      string
	EndTime        string
	ClockInTime    any
	ClockOutTime   any
}

// TimeEntry is the canonical sibling record the labor calculator
// consumes: one photographer, one calendar date, wall-clock span.
type TimeEntry struct {
	PhotographerID string
	Date           Date
	StartTime      string
	EndTime        string
}

// =============================================================================
// COST BREAKDOWN - the engine's output
// =============================================================================

// Breakdown is the computed cost record for one session/photographer
// pairing. It is a value object: callers append it to the session's
// cost history rather than mutating prior entries.
type Breakdown struct {
	SessionID      string `json:"session_id,omitempty"`
	PhotographerID string `json:"photographer_id,omitempty"`

	// Mileage
	Distance    float64         `json:"distance"` // round-trip miles, 1 decimal
	MileageRate decimal.Decimal `json:"mileage_rate"`
	MileageCost decimal.Decimal `json:"mileage_cost"` // 2 decimals

	// Labor
	Hours           float64         `json:"hours"`
	LaborCost       decimal.Decimal `json:"labor_cost"`
	RegularPay      decimal.Decimal `json:"regular_pay"`
	OvertimePay     decimal.Decimal `json:"overtime_pay"`
	IsOvertimeShift bool            `json:"is_overtime_shift"`

	// Echoed from the photographer for audit.
	CompensationType CompensationType `json:"compensation_type"`
	HourlyRate       decimal.Decimal  `json:"hourly_rate"`
	SalaryAmount     decimal.Decimal  `json:"salary_amount"`

	TotalCost decimal.Decimal `json:"total_cost"` // labor + mileage, 2 decimals

	// Note carries audit/debug context (e.g. why a salaried session
	// costs zero). Empty for most breakdowns.
	Note string `json:"note,omitempty"`
}

// LaborResult is the labor-only portion of a breakdown, produced by
// CalculateLaborCost and folded into a Breakdown by the aggregator.
type LaborResult struct {
	Hours           float64
	RegularPay      decimal.Decimal
	OvertimePay     decimal.Decimal
	IsOvertimeShift bool
	TotalCost       decimal.Decimal
	Note            string
}

func zeroLaborResult() LaborResult {
	return LaborResult{
		RegularPay:  decimal.Zero,
		OvertimePay: decimal.Zero,
		TotalCost:   decimal.Zero,
	}
}
