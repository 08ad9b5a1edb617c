package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxycrawl/internal/database"
	"proxycrawl/pkg/checker"
	"proxycrawl/pkg/manager"
	"proxycrawl/pkg/scraper"
)

type staticHarvests struct {
	last *manager.HarvestResult
}

func (s staticHarvests) Last() *manager.HarvestResult { return s.last }

type staticHistory struct {
	stats database.HistoryStats
	err   error
}

func (s staticHistory) GetStats(ctx context.Context) (database.HistoryStats, error) {
	return s.stats, s.err
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func sampleHarvest() *manager.HarvestResult {
	return &manager.HarvestResult{
		RunID:      "0f8fad5b-d9cb-469f-a165-70867728950e",
		Source:     "https://free-proxy-list.net/",
		Candidates: 3,
		Working:    []scraper.Candidate{"1.2.3.4:8080", "5.6.7.8:3128"},
		ByStatus: map[checker.ProxyStatus]int{
			checker.StatusHealthy: 2,
			checker.StatusTimeout: 1,
		},
		FinishedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		harvests HarvestSource
		wantCode int
		wantBody string
	}{
		{"no harvester", nil, http.StatusServiceUnavailable, "No working proxies"},
		{"no harvest yet", staticHarvests{}, http.StatusServiceUnavailable, "No working proxies"},
		{"empty harvest", staticHarvests{last: &manager.HarvestResult{}}, http.StatusServiceUnavailable, "No working proxies"},
		{"working proxies", staticHarvests{last: sampleHarvest()}, http.StatusOK, "OK - 2 working proxies available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(nil, nil)
			if tt.harvests != nil {
				s.SetHarvester(tt.harvests)
			}

			rec := serve(s, http.MethodGet, "/health")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestStats(t *testing.T) {
	s := NewServer(nil, nil)
	s.SetHarvester(staticHarvests{last: sampleHarvest()})
	s.SetHistory(staticHistory{stats: database.HistoryStats{
		Runs: 4, Checks: 40, Healthy: 9, ByStatus: map[string]int{"healthy": 9, "timeout": 31},
	}})

	rec := serve(s, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.NotNil(t, body.LastHarvest)
	assert.Equal(t, 3, body.LastHarvest.Candidates)
	assert.Equal(t, 2, body.LastHarvest.Working)
	assert.Equal(t, map[string]int{"healthy": 2, "timeout": 1}, body.LastHarvest.ByStatus)

	require.NotNil(t, body.History)
	assert.Equal(t, 4, body.History.Runs)
	assert.Equal(t, int64(1), body.ServerStats.RequestsHandled)
}

func TestStatsWithoutData(t *testing.T) {
	s := NewServer(nil, nil)
	s.SetHistory(staticHistory{err: errors.New("db closed")})

	rec := serve(s, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.LastHarvest)
	assert.Nil(t, body.History)
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewServer(nil, nil)

	for _, path := range []string{"/stats", "/health"} {
		rec := serve(s, http.MethodPost, path)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestMetricsAndUnknownPaths(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("proxycrawl_validated_proxies 2\n"))
	})

	s := NewServer(metrics, nil)
	rec := serve(s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "proxycrawl_validated_proxies 2")

	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/nope").Code)
	assert.Equal(t, http.StatusNotFound, serve(NewServer(nil, nil), http.MethodGet, "/metrics").Code)
}

func TestStartStop(t *testing.T) {
	s := NewServer(nil, &Config{ListenAddr: "127.0.0.1:0"})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
