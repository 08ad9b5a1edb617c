package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"proxycrawl/internal/database"
	"proxycrawl/pkg/manager"
)

// HarvestSource reports the latest completed harvest
type HarvestSource interface {
	Last() *manager.HarvestResult
}

// HistorySource reports totals from the harvest history
type HistorySource interface {
	GetStats(ctx context.Context) (database.HistoryStats, error)
}

// Server exposes health, stats and metrics over HTTP
type Server struct {
	harvests HarvestSource
	history  HistorySource
	metrics  http.Handler
	server   *http.Server
	config   *Config
	requests atomic.Int64
	mu       sync.RWMutex
}

type Config struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func NewServer(metrics http.Handler, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		metrics: metrics,
		config:  config,
	}
	s.server = &http.Server{
		Addr:           config.ListenAddr,
		Handler:        s,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return s
}

func DefaultConfig() *Config {
	return &Config{
		ListenAddr:   ":9090",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// SetHarvester attaches the harvester whose results /health and /stats report
func (s *Server) SetHarvester(h HarvestSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.harvests = h
}

func (s *Server) SetHistory(h HistorySource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = h
}

// Start blocks until the server stops and then returns http.ErrServerClosed
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	switch r.URL.Path {
	case "/stats":
		s.handleStats(w, r)
	case "/health":
		s.handleHealth(w, r)
	case "/metrics":
		if s.metrics == nil {
			http.NotFound(w, r)
			return
		}
		s.metrics.ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}

type harvestStats struct {
	RunID      string         `json:"run_id"`
	Source     string         `json:"source"`
	Candidates int            `json:"candidates"`
	Working    int            `json:"working"`
	ByStatus   map[string]int `json:"by_status"`
	FinishedAt time.Time      `json:"finished_at"`
}

type statsResponse struct {
	LastHarvest *harvestStats          `json:"last_harvest"`
	History     *database.HistoryStats `json:"history"`
	ServerStats serverStats            `json:"server_stats"`
}

type serverStats struct {
	RequestsHandled int64 `json:"requests_handled"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	harvests, history := s.harvests, s.history
	s.mu.RUnlock()

	resp := statsResponse{
		ServerStats: serverStats{RequestsHandled: s.requests.Load()},
	}

	if harvests != nil {
		if last := harvests.Last(); last != nil {
			byStatus := make(map[string]int, len(last.ByStatus))
			for status, n := range last.ByStatus {
				byStatus[status.String()] = n
			}
			resp.LastHarvest = &harvestStats{
				RunID:      last.RunID,
				Source:     last.Source,
				Candidates: last.Candidates,
				Working:    len(last.Working),
				ByStatus:   byStatus,
				FinishedAt: last.FinishedAt,
			}
		}
	}

	if history != nil {
		if stats, err := history.GetStats(r.Context()); err == nil {
			resp.History = &stats
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	harvests := s.harvests
	s.mu.RUnlock()

	working := 0
	if harvests != nil {
		if last := harvests.Last(); last != nil {
			working = len(last.Working)
		}
	}

	if working == 0 {
		http.Error(w, "No working proxies", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK - %d working proxies available", working)
}
