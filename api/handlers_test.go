/*
handlers_test.go - HTTP handler tests over the in-memory store

Tests for:
- Session create triggers a cost breakdown
- Photographer rate edit re-prices their sessions
- School move re-prices its sessions
- Cost history endpoint (append-only, newest first)
- Validation errors
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focalops/cost-engine/costs"
	"github.com/focalops/cost-engine/store/memory"
)

// =============================================================================
// FIXTURE
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	handler := NewHandler(store)
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// seedHourlyWorld creates one hourly photographer and one school with a
// known driving distance (13.8 round-trip miles at these coordinates).
func seedHourlyWorld(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/photographers/", SavePhotographerRequest{
		ID:               "ph-1",
		Name:             "Avery Quinn",
		CompensationType: "hourly",
		HourlyRate:       "20",
		AmountPerMile:    "0.5",
		HomeAddress:      "40.0,-75.0",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/schools/", SaveSchoolRequest{
		ID:          "sch-1",
		Name:        "Lakeside Elementary",
		Coordinates: "40.1,-75.0",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// SESSION WRITE TRIGGER
// =============================================================================

func TestCreateSession_ComputesCost(t *testing.T) {
	// GIVEN: An hourly photographer and a school
	srv, _ := newTestServer(t)
	seedHourlyWorld(t, srv)

	// WHEN: Creating a 4-hour session
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/", SaveSessionRequest{
		ID:             "sess-1",
		PhotographerID: "ph-1",
		SchoolID:       "sch-1",
		Date:           "2025-03-12",
		StartTime:      "08:00",
		EndTime:        "12:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// THEN: The response carries the breakdown ($80 labor + $6.90 mileage)
	dto := decode[SessionDTO](t, resp)
	require.NotNil(t, dto.CostBreakdown)
	assert.Equal(t, "86.90", dto.Cost)
	assert.Equal(t, "80", dto.CostBreakdown.LaborCost.String())
	assert.Equal(t, "6.9", dto.CostBreakdown.MileageCost.String())
	assert.Equal(t, 13.8, dto.CostBreakdown.Distance)
}

func TestCreateSession_TimeOffSkipsCost(t *testing.T) {
	// GIVEN: A costable world
	srv, _ := newTestServer(t)
	seedHourlyWorld(t, srv)

	// WHEN: Creating a time-off session
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/", SaveSessionRequest{
		PhotographerID: "ph-1",
		SchoolID:       "sch-1",
		Date:           "2025-03-12",
		StartTime:      "08:00",
		EndTime:        "16:00",
		IsTimeOff:      true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// THEN: It saves without a breakdown
	dto := decode[SessionDTO](t, resp)
	assert.Nil(t, dto.CostBreakdown)
	assert.True(t, dto.IsTimeOff)
}

func TestCreateSession_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	// Missing school_id
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/", SaveSessionRequest{
		PhotographerID: "ph-1",
		Date:           "2025-03-12",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Malformed date
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/sessions/", SaveSessionRequest{
		PhotographerID: "ph-1",
		SchoolID:       "sch-1",
		Date:           "03/12/2025",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateSession_DanglingReferencesSaveWithoutCost(t *testing.T) {
	// GIVEN: No photographer or school on file
	srv, _ := newTestServer(t)

	// WHEN: Creating a session pointing at them anyway
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/", SaveSessionRequest{
		ID:             "sess-orphan",
		PhotographerID: "ph-ghost",
		SchoolID:       "sch-ghost",
		Date:           "2025-03-12",
		StartTime:      "08:00",
		EndTime:        "12:00",
	})

	// THEN: The save succeeds; cost is simply absent
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	dto := decode[SessionDTO](t, resp)
	assert.Nil(t, dto.CostBreakdown)
}

func TestListSessions_IncludesCosts(t *testing.T) {
	// GIVEN: One costed session and one orphan without a mirror
	srv, _ := newTestServer(t)
	seedHourlyWorld(t, srv)
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions/", SaveSessionRequest{
		ID: "sess-1", PhotographerID: "ph-1", SchoolID: "sch-1",
		Date: "2025-03-12", StartTime: "08:00", EndTime: "12:00",
	})
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions/", SaveSessionRequest{
		ID: "sess-orphan", PhotographerID: "ph-ghost", SchoolID: "sch-ghost",
		Date: "2025-03-13", StartTime: "08:00", EndTime: "12:00",
	})

	// WHEN: Listing all sessions
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dtos := decode[[]SessionDTO](t, resp)
	require.Len(t, dtos, 2)

	// THEN: Each row carries its mirrored cost alongside the schedule
	byID := make(map[string]SessionDTO, len(dtos))
	for _, dto := range dtos {
		byID[dto.ID] = dto
	}
	priced := byID["sess-1"]
	require.NotNil(t, priced.CostBreakdown)
	assert.Equal(t, "86.90", priced.Cost)
	assert.Equal(t, 13.8, priced.CostBreakdown.Distance)
	assert.Nil(t, byID["sess-orphan"].CostBreakdown)
}

// =============================================================================
// PHOTOGRAPHER CHANGE TRIGGER
// =============================================================================

func TestUpdatePhotographer_RateChangeReprices(t *testing.T) {
	// GIVEN: A costed session at $20/hour
	srv, _ := newTestServer(t)
	seedHourlyWorld(t, srv)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/", SaveSessionRequest{
		ID: "sess-1", PhotographerID: "ph-1", SchoolID: "sch-1",
		Date: "2025-03-12", StartTime: "08:00", EndTime: "12:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// WHEN: Raising the hourly rate to $30
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/photographers/ph-1", SavePhotographerRequest{
		Name:             "Avery Quinn",
		CompensationType: "hourly",
		HourlyRate:       "30",
		AmountPerMile:    "0.5",
		HomeAddress:      "40.0,-75.0",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// THEN: The batch reports the re-price and the mirror shows $126.90
	body := decode[map[string]json.RawMessage](t, resp)
	var batch RecalcResultDTO
	require.NoError(t, json.Unmarshal(body["recalculation"], &batch))
	assert.Equal(t, 1, batch.Processed)

	sessResp := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/sess-1", nil)
	dto := decode[SessionDTO](t, sessResp)
	assert.Equal(t, "126.90", dto.Cost)
}

func TestUpdatePhotographer_NameOnlySkipsRecalc(t *testing.T) {
	// GIVEN: A photographer on file
	srv, _ := newTestServer(t)
	seedHourlyWorld(t, srv)

	// WHEN: Changing only the display name
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/photographers/ph-1", SavePhotographerRequest{
		Name:             "Avery Q.",
		CompensationType: "hourly",
		HourlyRate:       "20",
		AmountPerMile:    "0.5",
		HomeAddress:      "40.0,-75.0",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// THEN: No recalculation tally in the response
	body := decode[map[string]json.RawMessage](t, resp)
	_, hasRecalc := body["recalculation"]
	assert.False(t, hasRecalc)
}

func TestUpdatePhotographer_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/photographers/nope", SavePhotographerRequest{
		Name: "Nobody", CompensationType: "hourly",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// brokenListingStore fails session listings so the re-price batch that
// follows a compensation edit cannot run.
type brokenListingStore struct {
	*memory.Store
}

func (s *brokenListingStore) SessionsForPhotographer(context.Context, string) ([]costs.Session, error) {
	return nil, errors.New("session index offline")
}

func (s *brokenListingStore) SessionsForSchool(context.Context, string) ([]costs.Session, error) {
	return nil, errors.New("session index offline")
}

func TestUpdatePhotographer_RecalcFailureSurfacedInResponse(t *testing.T) {
	// GIVEN: A store whose session listings fail
	store := &brokenListingStore{Store: memory.New()}
	handler := NewHandler(store)
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	seedHourlyWorld(t, srv)

	// WHEN: Changing the hourly rate
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/photographers/ph-1", SavePhotographerRequest{
		Name:             "Avery Quinn",
		CompensationType: "hourly",
		HourlyRate:       "30",
		AmountPerMile:    "0.5",
		HomeAddress:      "40.0,-75.0",
	})

	// THEN: The edit succeeds but the response reports the failed
	// re-price instead of an empty tally
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]json.RawMessage](t, resp)
	_, hasRecalc := body["recalculation"]
	assert.False(t, hasRecalc)
	var recalcErr string
	require.NoError(t, json.Unmarshal(body["recalculation_error"], &recalcErr))
	assert.Contains(t, recalcErr, "session index offline")
}

// =============================================================================
// SCHOOL CHANGE TRIGGER
// =============================================================================

func TestUpdateSchool_MoveReprices(t *testing.T) {
	// GIVEN: A costed session at the original campus
	srv, _ := newTestServer(t)
	seedHourlyWorld(t, srv)
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions/", SaveSessionRequest{
		ID: "sess-1", PhotographerID: "ph-1", SchoolID: "sch-1",
		Date: "2025-03-12", StartTime: "08:00", EndTime: "12:00",
	})

	// WHEN: Moving the school twice as far out
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/schools/sch-1", SaveSchoolRequest{
		Name:        "Lakeside Elementary",
		Coordinates: "40.2,-75.0",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]json.RawMessage](t, resp)
	var batch RecalcResultDTO
	require.NoError(t, json.Unmarshal(body["recalculation"], &batch))
	assert.Equal(t, 1, batch.Processed)

	// THEN: The mirrored breakdown carries the new distance
	sessResp := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/sess-1", nil)
	dto := decode[SessionDTO](t, sessResp)
	require.NotNil(t, dto.CostBreakdown)
	assert.Equal(t, 27.6, dto.CostBreakdown.Distance)
}

// =============================================================================
// COST HISTORY
// =============================================================================

func TestGetSessionCosts_AppendOnlyNewestFirst(t *testing.T) {
	// GIVEN: A session priced, then re-priced after a rate change
	srv, _ := newTestServer(t)
	seedHourlyWorld(t, srv)
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions/", SaveSessionRequest{
		ID: "sess-1", PhotographerID: "ph-1", SchoolID: "sch-1",
		Date: "2025-03-12", StartTime: "08:00", EndTime: "12:00",
	})
	doJSON(t, http.MethodPut, srv.URL+"/api/photographers/ph-1", SavePhotographerRequest{
		Name: "Avery Quinn", CompensationType: "hourly",
		HourlyRate: "30", AmountPerMile: "0.5", HomeAddress: "40.0,-75.0",
	})

	// WHEN: Reading the history
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/sess-1/costs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]CostRecordDTO](t, resp)

	// THEN: Both prices remain, newest first
	require.Len(t, history, 2)
	assert.Equal(t, "126.9", history[0].Breakdown.TotalCost.String())
	assert.Equal(t, "86.9", history[1].Breakdown.TotalCost.String())
}

func TestGetSessionCosts_UnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/nope/costs", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestBackfill_PricesEverything(t *testing.T) {
	// GIVEN: Several sessions saved while dependencies were missing
	srv, store := newTestServer(t)
	for i := 1; i <= 3; i++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/", SaveSessionRequest{
			ID:             fmt.Sprintf("sess-%d", i),
			PhotographerID: "ph-1",
			SchoolID:       "sch-1",
			Date:           "2025-03-12",
			StartTime:      "08:00",
			EndTime:        "12:00",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	seedHourlyWorld(t, srv)

	// WHEN: Running the backfill
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/backfill", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	batch := decode[RecalcResultDTO](t, resp)

	// THEN: All three now carry costs
	assert.Equal(t, 3, batch.Processed)
	assert.Equal(t, 0, batch.Failed)
	for i := 1; i <= 3; i++ {
		history, err := store.CostHistory(context.Background(), fmt.Sprintf("sess-%d", i))
		require.NoError(t, err)
		assert.Len(t, history, 1)
	}
}

func TestLoadScenario_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoadScenario_OvertimeWeek(t *testing.T) {
	// GIVEN/WHEN: Loading the overtime demo scenario
	srv, store := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "overtime-week"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// THEN: The Friday session straddles the 40-hour line.
	// 38h banked + 6h session = 44h -> 4 OT hours x $28 = $112.
	history, err := store.CostHistory(context.Background(), "sess-friday")
	require.NoError(t, err)
	require.Len(t, history, 1)
	b := history[0].Breakdown
	assert.True(t, b.IsOvertimeShift)
	assert.True(t, b.OvertimePay.Equal(decimal.NewFromInt(112)), "got %s", b.OvertimePay)
}
