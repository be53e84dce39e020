/*
labor.go - Per-session labor cost with weekly overtime apportionment

PURPOSE:
  Prices one session under the photographer's compensation model:

    hourly                - session hours times the hourly rate
    salary                - always zero; base salary covers the work
    salary_with_overtime  - zero until the weekly threshold, hourly rate
                            for the excess

  The salary_with_overtime path is the reason this engine exists. A
  session that pushes the photographer past the weekly threshold is
  split: hours up to the threshold are covered by base salary (priced at
  zero here), hours beyond it earn the hourly rate. "Hours already
  worked" counts sibling records strictly earlier in the same Sunday-
  Saturday pay week.

INVARIANTS:
  - Missing session or employee yields the all-zero result.
  - Unrecognized compensation types fall through to all-zero; new pay
    models must not break existing write triggers.
  - regularPay is always zero under salary_with_overtime: the regular
    portion is covered by salary, only the excess is priced. totalCost
    therefore equals overtimePay on that path.
*/
package costs

import (
	"github.com/shopspring/decimal"
)

// CalculateLaborCost prices one session under the employee's
// compensation model. siblings is the employee's OTHER time records
// (the session itself must not appear; the aggregator filters it out).
func CalculateLaborCost(session *Session, employee *Photographer, siblings []TimeEntry) LaborResult {
	if session == nil || employee == nil {
		return zeroLaborResult()
	}

	hours := SpanHours(session.StartTime, session.EndTime)

	switch employee.CompensationType {
	case CompHourly:
		// Per-session cost only. Weekly overtime for hourly employees is
		// a pay-period concern settled by the payroll system downstream.
		total := decimal.NewFromFloat(hours).Mul(employee.HourlyRate)
		return LaborResult{
			Hours:       hours,
			RegularPay:  total,
			OvertimePay: decimal.Zero,
			TotalCost:   total,
		}

	case CompSalary:
		r := zeroLaborResult()
		r.Hours = hours
		r.Note = "salaried: session cost covered by base salary"
		return r

	case CompSalaryWithOvertime:
		return salaryWithOvertime(session, employee, siblings, hours)

	default:
		r := zeroLaborResult()
		r.Hours = hours
		return r
	}
}

func salaryWithOvertime(session *Session, employee *Photographer, siblings []TimeEntry, hours float64) LaborResult {
	threshold := employee.OvertimeThreshold
	if threshold <= 0 {
		threshold = DefaultOvertimeThreshold
	}

	result := zeroLaborResult()
	result.Hours = hours

	sessionDate, ok := ParseDateValue(session.Date)
	if !ok {
		return result
	}
	week, _ := WeekOf(sessionDate)

	before := hoursWorkedBefore(employee.ID, sessionDate, week, siblings)
	after := before + hours

	switch {
	case before >= threshold:
		// Already past the threshold: the whole session is overtime.
		result.OvertimePay = decimal.NewFromFloat(hours).Mul(employee.HourlyRate)
		result.IsOvertimeShift = true

	case after > threshold:
		// Session straddles the boundary. The regular portion is covered
		// by base salary, so only the excess hours are priced.
		regularHours := threshold - before
		overtimeHours := hours - regularHours
		result.OvertimePay = decimal.NewFromFloat(overtimeHours).Mul(employee.HourlyRate)
		result.IsOvertimeShift = true

	default:
		// Entirely within the salaried threshold.
	}

	result.TotalCost = result.RegularPay.Add(result.OvertimePay)
	return result
}

// hoursWorkedBefore sums the spans of sibling records belonging to the
// same photographer, inside the pay week, on calendar dates strictly
// before the session's date.
//
// Ordering is by date only: two records on the identical calendar date
// are not ordered by time-of-day, so same-day siblings never count as
// "before" this session. That is the established business rule; a
// photographer's second session of a day does not see the first's hours
// until the next day.
func hoursWorkedBefore(photographerID string, sessionDate Date, week WeekRange, siblings []TimeEntry) float64 {
	var total float64
	for _, entry := range siblings {
		if entry.PhotographerID != photographerID {
			continue
		}
		if entry.Date.IsZero() || !week.Contains(entry.Date) {
			continue
		}
		if !entry.Date.Before(sessionDate) {
			continue
		}
		total += SpanHours(entry.StartTime, entry.EndTime)
	}
	return total
}
