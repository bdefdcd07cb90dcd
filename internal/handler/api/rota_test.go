package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/laszhr/lasz/internal/changefeed"
	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/rota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func rotaFixture() *memShiftStore {
	return &memShiftStore{
		employees: []domain.Employee{
			{ID: "E1", CompanyID: "C1", UserID: "U1", FullName: "Ada", Department: "Kitchen"},
			{ID: "E2", CompanyID: "C1", UserID: "U2", FullName: "Bo", Department: "Bar"},
		},
		shifts: []domain.Shift{
			{ID: "s1", CompanyID: "C1", EmployeeID: "E1", AssignedUserID: "U1", Department: "Kitchen",
				StartTime: monday.Add(9 * time.Hour), EndTime: monday.Add(17 * time.Hour), Published: true},
			{ID: "s2", CompanyID: "C1", EmployeeID: "E2", AssignedUserID: "U2", Department: "Bar",
				StartTime: monday.Add(33 * time.Hour), EndTime: monday.Add(41 * time.Hour), Published: true},
			{ID: "s3", CompanyID: "C1", EmployeeID: "E1", AssignedUserID: "U1", Department: "Kitchen",
				StartTime: monday.Add(57 * time.Hour), EndTime: monday.Add(65 * time.Hour)},
			{ID: "other", CompanyID: "C2", EmployeeID: "E9", AssignedUserID: "U9",
				StartTime: monday.Add(10 * time.Hour), EndTime: monday.Add(12 * time.Hour), Published: true},
		},
	}
}

func newTestRotaHandler(store *memShiftStore, feed changefeed.Subscriber) *RotaHandler {
	h := NewRotaHandler(rota.NewEngine(store, feed, testLogger()), time.UTC, nil, testLogger())
	h.now = func() time.Time { return monday.Add(50 * time.Hour) }
	return h
}

func shiftIDs(shifts []domain.Shift) []string {
	ids := make([]string, 0, len(shifts))
	for _, s := range shifts {
		ids = append(ids, s.ID)
	}
	return ids
}

func getRota(t *testing.T, h *RotaHandler, v domain.Viewer, query string) (*httptest.ResponseRecorder, RotaResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	withViewer(v, h.GetRota)(rec, httptest.NewRequest(http.MethodGet, "/api/rota"+query, nil))
	var resp RotaResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	}
	return rec, resp
}

func TestRotaHandler_GetRota(t *testing.T) {
	h := newTestRotaHandler(rotaFixture(), nil)

	t.Run("admin sees whole company week", func(t *testing.T) {
		rec, resp := getRota(t, h, domain.AdminViewer{CompanyID: "C1", UserID: "U0"}, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"s1", "s2", "s3"}, shiftIDs(resp.Shifts))
		assert.Equal(t, []string{"Kitchen", "Bar"}, resp.Departments)
		assert.True(t, resp.Window.Start.Equal(monday))
	})

	t.Run("neighbouring week anchors", func(t *testing.T) {
		_, resp := getRota(t, h, domain.AdminViewer{CompanyID: "C1", UserID: "U0"}, "?week=2025-03-05")
		assert.Equal(t, "2025-02-24", resp.Prev)
		assert.Equal(t, "2025-03-10", resp.Next)

		_, resp = getRota(t, h, domain.AdminViewer{CompanyID: "C1", UserID: "U0"}, "?week="+resp.Next)
		assert.Equal(t, "2025-03-03", resp.Prev)
		assert.Equal(t, "2025-03-17", resp.Next)
	})

	t.Run("department filter", func(t *testing.T) {
		_, resp := getRota(t, h, domain.AdminViewer{CompanyID: "C1", UserID: "U0"}, "?department=Bar")
		assert.Equal(t, []string{"s2"}, shiftIDs(resp.Shifts))
	})

	t.Run("employee sees own published shifts", func(t *testing.T) {
		_, resp := getRota(t, h, domain.EmployeeViewer{CompanyID: "C1", UserID: "U1"}, "?week=2025-03-05")
		assert.Equal(t, []string{"s1"}, shiftIDs(resp.Shifts))
	})

	t.Run("other week is empty not null", func(t *testing.T) {
		rec, resp := getRota(t, h, domain.AdminViewer{CompanyID: "C1", UserID: "U0"}, "?week=2025-03-10")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotNil(t, resp.Shifts)
		assert.Empty(t, resp.Shifts)
	})

	t.Run("bad week", func(t *testing.T) {
		rec, _ := getRota(t, h, domain.AdminViewer{CompanyID: "C1"}, "?week=03/03/2025")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no viewer", func(t *testing.T) {
		rec, _ := getRota(t, h, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func readFrame(t *testing.T, conn *websocket.Conn) RotaResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame RotaResponse
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestRotaHandler_LivePushesOnChange(t *testing.T) {
	store := rotaFixture()
	hub := changefeed.NewHub(testLogger())
	h := newTestRotaHandler(store, hub)

	srv := httptest.NewServer(withViewer(domain.AdminViewer{CompanyID: "C1", UserID: "U0"}, h.Live))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/rota/live", nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readFrame(t, conn)
	assert.Equal(t, []string{"s1", "s2", "s3"}, shiftIDs(first.Shifts))
	assert.Equal(t, "2025-02-24", first.Prev)
	assert.Equal(t, "2025-03-10", first.Next)

	store.add(domain.Shift{ID: "s4", CompanyID: "C1", EmployeeID: "E2", AssignedUserID: "U2",
		StartTime: monday.Add(80 * time.Hour), EndTime: monday.Add(88 * time.Hour)})
	hub.Publish(changefeed.Change{Table: changefeed.TableShifts, Op: changefeed.OpInsert, CompanyID: "C1"})

	second := readFrame(t, conn)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, shiftIDs(second.Shifts))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestRotaHandler_LiveRejectsMissingViewer(t *testing.T) {
	h := newTestRotaHandler(rotaFixture(), changefeed.NewHub(testLogger()))

	rec := httptest.NewRecorder()
	withViewer(nil, h.Live)(rec, httptest.NewRequest(http.MethodGet, "/api/rota/live", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
