/*
handlers.go - HTTP API handlers for the cost engine

PURPOSE:
  Exposes scheduling records and the cost-recalculation engine via REST.
  Handles HTTP request/response, JSON serialization, and delegates to
  the recalc engine and store.

TRIGGER SEMANTICS:
  The write handlers are the system's write triggers:
  - Session create/update  -> recalculate that session
  - Photographer update    -> recalculate all their sessions, but only
                              when a compensation-relevant field changed
  - School update          -> recalculate all its sessions, but only
                              when the location changed
  Recalculation failures on a dependency edit do not fail the edit
  itself; the batch tally is returned alongside the saved record.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - recalc/engine.go: The four call sites behind these handlers
*/
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/focalops/cost-engine/costs"
	"github.com/focalops/cost-engine/recalc"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence surface the HTTP layer needs: everything the
// recalc engine uses, plus the CRUD and read-back methods.
type Store interface {
	recalc.Store

	SavePhotographer(ctx context.Context, p costs.Photographer) error
	ListPhotographers(ctx context.Context) ([]costs.Photographer, error)

	SaveSchool(ctx context.Context, s costs.School) error
	ListSchools(ctx context.Context) ([]costs.School, error)

	SaveSession(ctx context.Context, s costs.Session) error
	ListSessionsWithCosts(ctx context.Context) ([]recalc.SessionWithCost, error)
	SaveTimeEntry(ctx context.Context, e costs.RawTimeEntry) error

	CostHistory(ctx context.Context, sessionID string) ([]recalc.CostRecord, error)
	SessionCostMirror(ctx context.Context, sessionID string) (decimal.Decimal, *costs.Breakdown, error)

	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Store
	Engine *recalc.Engine
}

// NewHandler creates a new handler over the given store.
func NewHandler(store Store) *Handler {
	return &Handler{
		Store:  store,
		Engine: recalc.NewEngine(store),
	}
}

// =============================================================================
// PHOTOGRAPHERS
// =============================================================================

func (h *Handler) ListPhotographers(w http.ResponseWriter, r *http.Request) {
	photographers, err := h.Store.ListPhotographers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list photographers", err)
		return
	}

	dtos := make([]PhotographerDTO, len(photographers))
	for i, p := range photographers {
		dtos[i] = toPhotographerDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetPhotographer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.Store.GetPhotographer(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get photographer", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Photographer not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPhotographerDTO(*p))
}

func (h *Handler) CreatePhotographer(w http.ResponseWriter, r *http.Request) {
	var req SavePhotographerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := photographerFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid photographer", err)
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	if err := h.Store.SavePhotographer(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save photographer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPhotographerDTO(p))
}

// UpdatePhotographer saves the profile and, when a compensation-relevant
// field changed, recalculates every session assigned to them.
func (h *Handler) UpdatePhotographer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.Store.GetPhotographer(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get photographer", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Photographer not found", nil)
		return
	}

	var req SavePhotographerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = id

	updated, err := photographerFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid photographer", err)
		return
	}

	if err := h.Store.SavePhotographer(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save photographer", err)
		return
	}

	resp := map[string]any{"photographer": toPhotographerDTO(updated)}
	if compensationChanged(*existing, updated) {
		result, err := h.Engine.RecalculateForPhotographer(r.Context(), id)
		if err != nil {
			// The edit itself succeeded; surface the recalc failure
			// instead of a zero-valued tally.
			log.Printf("[API] Recalculation after photographer %s edit failed: %v", id, err)
			resp["recalculation_error"] = err.Error()
		} else {
			resp["recalculation"] = toRecalcResultDTO(result)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// compensationChanged reports whether any field the cost engine reads
// differs between the two profiles.
func compensationChanged(old, updated costs.Photographer) bool {
	return old.CompensationType != updated.CompensationType ||
		!old.HourlyRate.Equal(updated.HourlyRate) ||
		!old.SalaryAmount.Equal(updated.SalaryAmount) ||
		old.OvertimeThreshold != updated.OvertimeThreshold ||
		!old.AmountPerMile.Equal(updated.AmountPerMile) ||
		old.HomeAddress != updated.HomeAddress
}

func photographerFromRequest(req SavePhotographerRequest) (costs.Photographer, error) {
	hourlyRate, err := parseMoney(req.HourlyRate)
	if err != nil {
		return costs.Photographer{}, err
	}
	salaryAmount, err := parseMoney(req.SalaryAmount)
	if err != nil {
		return costs.Photographer{}, err
	}
	amountPerMile, err := parseMoney(req.AmountPerMile)
	if err != nil {
		return costs.Photographer{}, err
	}
	return costs.Photographer{
		ID:                req.ID,
		Name:              req.Name,
		CompensationType:  costs.CompensationType(req.CompensationType),
		HourlyRate:        hourlyRate,
		SalaryAmount:      salaryAmount,
		OvertimeThreshold: req.OvertimeThreshold,
		AmountPerMile:     amountPerMile,
		HomeAddress:       req.HomeAddress,
	}, nil
}

// parseMoney parses a dollar string; empty means zero.
func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// =============================================================================
// SCHOOLS
// =============================================================================

func (h *Handler) ListSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := h.Store.ListSchools(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schools", err)
		return
	}

	dtos := make([]SchoolDTO, len(schools))
	for i, s := range schools {
		dtos[i] = toSchoolDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetSchool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	school, err := h.Store.GetSchool(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get school", err)
		return
	}
	if school == nil {
		writeError(w, http.StatusNotFound, "School not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSchoolDTO(*school))
}

func (h *Handler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	var req SaveSchoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	school := schoolFromRequest(req)
	if school.ID == "" {
		school.ID = uuid.NewString()
	}

	if err := h.Store.SaveSchool(r.Context(), school); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save school", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSchoolDTO(school))
}

// UpdateSchool saves the school and, when its location changed,
// recalculates every session scheduled there.
func (h *Handler) UpdateSchool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.Store.GetSchool(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get school", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "School not found", nil)
		return
	}

	var req SaveSchoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = id

	updated := schoolFromRequest(req)
	if err := h.Store.SaveSchool(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save school", err)
		return
	}

	resp := map[string]any{"school": toSchoolDTO(updated)}
	if existing.LocationString() != updated.LocationString() {
		result, err := h.Engine.RecalculateForSchool(r.Context(), id)
		if err != nil {
			log.Printf("[API] Recalculation after school %s edit failed: %v", id, err)
			resp["recalculation_error"] = err.Error()
		} else {
			resp["recalculation"] = toRecalcResultDTO(result)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func schoolFromRequest(req SaveSchoolRequest) costs.School {
	return costs.School{
		ID:            req.ID,
		Name:          req.Name,
		Coordinates:   req.Coordinates,
		SchoolAddress: req.SchoolAddress,
	}
}

// =============================================================================
// SESSIONS
// =============================================================================

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListSessionsWithCosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions", err)
		return
	}

	dtos := make([]SessionDTO, len(records))
	for i, rec := range records {
		dtos[i] = toSessionDTO(rec.Session, rec.Cost, rec.Breakdown)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, err := h.Store.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get session", err)
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return
	}

	cost, breakdown, err := h.Store.SessionCostMirror(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read session cost", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(*session, cost, breakdown))
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	h.saveSession(w, r, "", http.StatusCreated)
}

func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	h.saveSession(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

// saveSession is the shared create/update path: persist, then fire the
// session-write trigger. Time-off and incomplete sessions save fine and
// simply skip recalculation.
func (h *Handler) saveSession(w http.ResponseWriter, r *http.Request, id string, status int) {
	var req SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if id != "" {
		req.ID = id
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.PhotographerID == "" || req.SchoolID == "" || req.Date == "" {
		writeError(w, http.StatusBadRequest, "photographer_id, school_id and date are required", nil)
		return
	}
	if _, ok := costs.ParseDateValue(req.Date); !ok {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
		return
	}

	session := costs.Session{
		ID:             req.ID,
		PhotographerID: req.PhotographerID,
		SchoolID:       req.SchoolID,
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		IsTimeOff:      req.IsTimeOff,
	}
	if err := h.Store.SaveSession(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save session", err)
		return
	}

	breakdown, err := h.Engine.RecalculateSession(r.Context(), session.ID)
	if err != nil {
		log.Printf("[API] Recalculation after session %s write failed: %v", session.ID, err)
	}

	var cost decimal.Decimal
	if breakdown != nil {
		cost = breakdown.TotalCost
	}
	writeJSON(w, status, toSessionDTO(session, cost, breakdown))
}

// GetSessionCosts returns the session's full cost history, newest first.
func (h *Handler) GetSessionCosts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, err := h.Store.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get session", err)
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return
	}

	history, err := h.Store.CostHistory(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read cost history", err)
		return
	}

	dtos := make([]CostRecordDTO, len(history))
	for i, rec := range history {
		dtos[i] = toCostRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func (h *Handler) CreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req SaveTimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PhotographerID == "" || req.Date == "" {
		writeError(w, http.StatusBadRequest, "photographer_id and date are required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	entry := costs.RawTimeEntry{
		ID:             req.ID,
		SessionID:      req.SessionID,
		PhotographerID: req.PhotographerID,
		Date:           req.Date,
		ClockInTime:    req.ClockInTime,
		ClockOutTime:   req.ClockOutTime,
	}
	if err := h.Store.SaveTimeEntry(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save time entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": entry.ID})
}

// =============================================================================
// ADMIN
// =============================================================================

// Backfill recomputes every session's cost breakdown.
func (h *Handler) Backfill(w http.ResponseWriter, r *http.Request) {
	result, err := h.Engine.Backfill(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Backfill failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecalcResultDTO(result))
}

// ResetDatabase clears all data. Dev only.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	payload := map[string]string{"error": message}
	if err != nil {
		payload["detail"] = err.Error()
	}
	writeJSON(w, status, payload)
}
