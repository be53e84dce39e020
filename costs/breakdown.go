/*
breakdown.go - Total-cost aggregator

PURPOSE:
  Composes the mileage and labor calculators into one Breakdown for a
  session/photographer/school triple. This is the only entry point the
  orchestration layer calls; it owns sibling normalization so the labor
  calculator always sees canonical records.

PIPELINE:
  1. Round-trip distance and mileage dollars (geo.go)
  2. Normalize raw sibling time records: resolve heterogeneous clock
     shapes to "HH:MM" strings, keep only the same photographer's
     records, drop the session's own record, silently drop anything
     that fails normalization
  3. Labor cost with overtime apportionment (labor.go)
  4. Total = labor + mileage, rounded to 2 decimals
*/
package costs

import "github.com/shopspring/decimal"

// Calculate produces the full cost breakdown for one session. rawEntries
// is every time record fetched for the photographer's pay week,
// unfiltered; the session's own record is excluded here so it never
// counts itself as a prior sibling.
//
// Never errors: missing or malformed inputs degrade to zero-valued
// fields per the engine's contract.
func Calculate(session *Session, photographer *Photographer, school *School, rawEntries []RawTimeEntry) Breakdown {
	b := Breakdown{
		MileageRate:  decimal.Zero,
		MileageCost:  decimal.Zero,
		LaborCost:    decimal.Zero,
		RegularPay:   decimal.Zero,
		OvertimePay:  decimal.Zero,
		HourlyRate:   decimal.Zero,
		SalaryAmount: decimal.Zero,
		TotalCost:    decimal.Zero,
	}
	if session != nil {
		b.SessionID = session.ID
		b.PhotographerID = session.PhotographerID
	}

	// Mileage
	b.Distance = SessionDistance(photographer, school)
	if photographer != nil {
		b.MileageRate = photographer.AmountPerMile
	}
	b.MileageCost = MileageCost(b.Distance, b.MileageRate)

	// Labor
	var siblings []TimeEntry
	if session != nil && photographer != nil {
		siblings = NormalizeTimeEntries(rawEntries, photographer.ID, session.ID)
	}
	labor := CalculateLaborCost(session, photographer, siblings)
	b.Hours = labor.Hours
	b.LaborCost = labor.TotalCost
	b.RegularPay = labor.RegularPay
	b.OvertimePay = labor.OvertimePay
	b.IsOvertimeShift = labor.IsOvertimeShift
	b.Note = labor.Note

	// Audit echo
	if photographer != nil {
		b.CompensationType = photographer.CompensationType
		b.HourlyRate = photographer.HourlyRate
		b.SalaryAmount = photographer.SalaryAmount
	}

	b.TotalCost = b.LaborCost.Add(b.MileageCost).Round(2)
	return b
}

// NormalizeTimeEntries converts raw sibling records to the canonical
// TimeEntry shape the labor calculator expects:
//
//   - only records for photographerID are kept
//   - the record for excludeSessionID is dropped (a session must not
//     count itself as a prior-week sibling)
//   - explicit StartTime/EndTime strings win; otherwise clock-in/out
//     timestamps are rendered to "HH:MM"
//   - records with no resolvable date or clock span are silently
//     dropped, not errored
func NormalizeTimeEntries(raw []RawTimeEntry, photographerID, excludeSessionID string) []TimeEntry {
	entries := make([]TimeEntry, 0, len(raw))
	for _, r := range raw {
		if r.PhotographerID != photographerID {
			continue
		}
		if excludeSessionID != "" && r.SessionID == excludeSessionID {
			continue
		}
		date, ok := ParseDateValue(r.Date)
		if !ok {
			continue
		}

		start, end := r.StartTime, r.EndTime
		if start == "" || end == "" {
			var okIn, okOut bool
			start, okIn = FormatClock(r.ClockInTime)
			end, okOut = FormatClock(r.ClockOutTime)
			if !okIn || !okOut {
				continue
			}
		}

		entries = append(entries, TimeEntry{
			PhotographerID: r.PhotographerID,
			Date:           date,
			StartTime:      start,
			EndTime:        end,
		})
	}
	return entries
}
