package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crisiswatch/internal/api/health"
	"crisiswatch/internal/services/dashboard"
	"crisiswatch/internal/services/daterange"
	"crisiswatch/internal/services/swarm"
	"crisiswatch/pkg/logger"
)

var testNow = time.Date(2025, time.December, 15, 14, 37, 0, 0, time.UTC)

func newTestRouter(t *testing.T, origins ...string) http.Handler {
	t.Helper()
	service := dashboard.NewService(swarm.TaskDeps{}, dashboard.Config{Mode: swarm.ModeSynthetic}, logger.Nop(),
		dashboard.WithClock(func() time.Time { return testNow }))
	cfg := ServerConfig{ServiceName: "crisiswatch", Version: "test", AllowedOrigins: origins}
	return NewRouter(cfg, health.New(logger.Nop(), "crisiswatch", "test"), service, logger.Nop())
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestDashboard_JSON(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/api/v1/dashboard?company=Kaseya&period=7d")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var view dashboard.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.View)
	assert.Equal(t, daterange.Period7d, view.Range.Period)
	assert.Equal(t, "Kaseya", view.Metrics.CompanyName)
	assert.Nil(t, view.Error)
}

func TestDashboard_Text(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/api/v1/dashboard?company=Kaseya&format=text")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "CRISIS SENTIMENT BRIEF - Kaseya\n"))
	assert.Contains(t, rec.Body.String(), "Last 30 Days")
}

func TestDashboard_BadRequests(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		target string
	}{
		{"missing company", "/api/v1/dashboard"},
		{"blank company", "/api/v1/dashboard?company=%20%20"},
		{"too long company", "/api/v1/dashboard?company=" + strings.Repeat("x", 121)},
		{"unknown period", "/api/v1/dashboard?company=Kaseya&period=2w"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestDashboard_Refresh(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/api/v1/dashboard/refresh?company=Kaseya")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/dashboard/refresh?company=Kaseya&period=24h", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var view dashboard.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, daterange.Period24h, view.Range.Period)
}

func TestPeriods(t *testing.T) {
	rec := get(t, newTestRouter(t), "/api/v1/periods")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"periods":["24h","7d","30d","1y","all"],"default":"30d"}`, rec.Body.String())
}

func TestRootAndHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/")
	assert.JSONEq(t, `{"service":"crisiswatch","version":"test","status":"running"}`, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, get(t, router, "/nope").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/live").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/health").Code)
}

func TestStatusFor(t *testing.T) {
	_, err := daterange.ParsePeriod("forever")
	assert.Equal(t, http.StatusBadRequest, statusFor(err))
	_, err = dashboard.NormalizeCompany("")
	assert.Equal(t, http.StatusBadRequest, statusFor(err))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/swarm/stream?" + query
}

func TestStream_SnapshotsThenDashboard(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "company=Kaseya&period=30d"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	var messages []StreamMessage
	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		messages = append(messages, msg)
	}

	require.GreaterOrEqual(t, len(messages), 2)
	for _, msg := range messages[:len(messages)-1] {
		require.Equal(t, MessageSwarm, msg.Type)
		require.NotNil(t, msg.Swarm)
		assert.Equal(t, "Kaseya", msg.Swarm.CompanyName)
		assert.Len(t, msg.Swarm.Agents, 12)
	}

	last := messages[len(messages)-1]
	require.Equal(t, MessageDashboard, last.Type)
	require.NotNil(t, last.Dashboard)
	assert.Equal(t, daterange.Period30d, last.Dashboard.Range.Period)
	assert.Equal(t, "Kaseya", last.Dashboard.Metrics.CompanyName)
}

func TestStream_RejectsBadInputBeforeUpgrade(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "company="), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStream_OriginCheck(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, "https://dashboard.example.com"))
	defer srv.Close()

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "company=Kaseya"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://Dashboard.example.com/"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req), "missing origin is allowed")

	req.Header.Set("Origin", "https://dashboard.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://dashboard.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker(nil)(req))
}

func TestStreamSink_DropsOldest(t *testing.T) {
	sink := newStreamSink(2)
	sink.send(StreamMessage{Type: "a"})
	sink.send(StreamMessage{Type: "b"})
	sink.send(StreamMessage{Type: "c"})
	sink.close()
	sink.send(StreamMessage{Type: "d"})

	var got []string
	for msg := range sink.ch {
		got = append(got, msg.Type)
	}
	assert.Equal(t, []string{"b", "c"}, got)
}
