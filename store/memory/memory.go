// Package memory provides an in-memory recalc.Store for testing/dev.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/focalops/cost-engine/costs"
	"github.com/focalops/cost-engine/recalc"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu            sync.RWMutex
	photographers map[string]costs.Photographer
	schools       map[string]costs.School
	sessions      map[string]costs.Session
	timeEntries   map[string]costs.RawTimeEntry
	history       map[string][]recalc.CostRecord // keyed by session id
	mirrors       map[string]costs.Breakdown     // legacy single-value mirror
}

func New() *Store {
	return &Store{
		photographers: make(map[string]costs.Photographer),
		schools:       make(map[string]costs.School),
		sessions:      make(map[string]costs.Session),
		timeEntries:   make(map[string]costs.RawTimeEntry),
		history:       make(map[string][]recalc.CostRecord),
		mirrors:       make(map[string]costs.Breakdown),
	}
}

// =============================================================================
// PHOTOGRAPHERS
// =============================================================================

func (m *Store) SavePhotographer(_ context.Context, p costs.Photographer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photographers[p.ID] = p
	return nil
}

func (m *Store) GetPhotographer(_ context.Context, id string) (*costs.Photographer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.photographers[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Store) ListPhotographers(_ context.Context) ([]costs.Photographer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]costs.Photographer, 0, len(m.photographers))
	for _, p := range m.photographers {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// =============================================================================
// SCHOOLS
// =============================================================================

func (m *Store) SaveSchool(_ context.Context, school costs.School) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schools[school.ID] = school
	return nil
}

func (m *Store) GetSchool(_ context.Context, id string) (*costs.School, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	school, ok := m.schools[id]
	if !ok {
		return nil, nil
	}
	return &school, nil
}

func (m *Store) ListSchools(_ context.Context) ([]costs.School, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]costs.School, 0, len(m.schools))
	for _, school := range m.schools {
		result = append(result, school)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

func (m *Store) SaveSession(_ context.Context, session costs.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *Store) GetSession(_ context.Context, id string) (*costs.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (m *Store) ListSessions(_ context.Context) ([]costs.Session, error) {
	return m.filterSessions(func(costs.Session) bool { return true }), nil
}

func (m *Store) ListSessionsWithCosts(_ context.Context) ([]recalc.SessionWithCost, error) {
	sessions := m.filterSessions(func(costs.Session) bool { return true })

	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]recalc.SessionWithCost, 0, len(sessions))
	for _, session := range sessions {
		item := recalc.SessionWithCost{Session: session, Cost: decimal.Zero}
		if breakdown, ok := m.mirrors[session.ID]; ok {
			b := breakdown
			item.Breakdown = &b
			item.Cost = b.TotalCost
		}
		result = append(result, item)
	}
	return result, nil
}

func (m *Store) SessionsForPhotographer(_ context.Context, photographerID string) ([]costs.Session, error) {
	return m.filterSessions(func(s costs.Session) bool { return s.PhotographerID == photographerID }), nil
}

func (m *Store) SessionsForSchool(_ context.Context, schoolID string) ([]costs.Session, error) {
	return m.filterSessions(func(s costs.Session) bool { return s.SchoolID == schoolID }), nil
}

func (m *Store) filterSessions(keep func(costs.Session) bool) []costs.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []costs.Session
	for _, session := range m.sessions {
		if keep(session) {
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func (m *Store) SaveTimeEntry(_ context.Context, entry costs.RawTimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeEntries[entry.ID] = entry
	return nil
}

func (m *Store) TimeEntriesInRange(_ context.Context, photographerID string, from, to time.Time) ([]costs.RawTimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []costs.RawTimeEntry
	for _, entry := range m.timeEntries {
		if entry.PhotographerID != photographerID {
			continue
		}
		date, ok := costs.ParseDateValue(entry.Date)
		if !ok {
			continue
		}
		if date.Time().Before(from) || date.Time().After(to) {
			continue
		}
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// COST HISTORY - append-only
// =============================================================================

func (m *Store) AppendCostRecord(_ context.Context, rec recalc.CostRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[rec.SessionID] = append(m.history[rec.SessionID], rec)
	return nil
}

func (m *Store) CostHistory(_ context.Context, sessionID string) ([]recalc.CostRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]recalc.CostRecord, len(m.history[sessionID]))
	copy(records, m.history[sessionID])
	// Newest first, matching the sqlite store.
	sort.Slice(records, func(i, j int) bool { return records[i].ComputedAt.After(records[j].ComputedAt) })
	return records, nil
}

func (m *Store) MirrorSessionCost(_ context.Context, sessionID string, breakdown costs.Breakdown) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirrors[sessionID] = breakdown
	return nil
}

func (m *Store) SessionCostMirror(_ context.Context, sessionID string) (decimal.Decimal, *costs.Breakdown, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	breakdown, ok := m.mirrors[sessionID]
	if !ok {
		return decimal.Zero, nil, nil
	}
	return breakdown.TotalCost, &breakdown, nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

func (m *Store) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photographers = make(map[string]costs.Photographer)
	m.schools = make(map[string]costs.School)
	m.sessions = make(map[string]costs.Session)
	m.timeEntries = make(map[string]costs.RawTimeEntry)
	m.history = make(map[string][]recalc.CostRecord)
	m.mirrors = make(map[string]costs.Breakdown)
	return nil
}
