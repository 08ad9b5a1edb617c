package checker

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxycrawl/pkg/scraper"
)

// fakeProxy answers every proxied request itself with the given status
func fakeProxy(t *testing.T, status int, delay time.Duration) (*httptest.Server, scraper.Candidate) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, scraper.Candidate(strings.TrimPrefix(srv.URL, "http://"))
}

func testChecker(timeout time.Duration) *Checker {
	return NewCheckerWithConfig(CheckerConfig{
		TestURL: "http://ipinfo.test/json",
		Timeout: timeout,
	})
}

func TestValidateWorkingOn200(t *testing.T) {
	_, candidate := fakeProxy(t, http.StatusOK, 0)

	outcome, err := testChecker(2*time.Second).Validate(context.Background(), candidate)
	require.NoError(t, err)
	assert.Equal(t, Working, outcome)
}

func TestValidateFailedClassification(t *testing.T) {
	_, forbidden := fakeProxy(t, http.StatusForbidden, 0)
	_, slow := fakeProxy(t, http.StatusOK, 2*time.Second)

	closed, closedCandidate := fakeProxy(t, http.StatusOK, 0)
	closed.Close()

	tests := []struct {
		name      string
		candidate scraper.Candidate
		status    ProxyStatus
	}{
		{name: "non-200", candidate: forbidden, status: StatusUnhealthy},
		{name: "timeout", candidate: slow, status: StatusTimeout},
		{name: "unreachable", candidate: closedCandidate},
		{name: "not an address", candidate: "not-an-address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testChecker(300 * time.Millisecond)

			var observed []CheckResult
			c.Observe(func(r CheckResult) { observed = append(observed, r) })

			outcome, err := c.Validate(context.Background(), tt.candidate)
			require.NoError(t, err)
			assert.Equal(t, Failed, outcome)

			require.Len(t, observed, 1)
			assert.Equal(t, tt.candidate, observed[0].Candidate)
			assert.Error(t, observed[0].Error)
			if tt.status != StatusUnknown {
				assert.Equal(t, tt.status, observed[0].Status)
			}
		})
	}
}

func TestValidateBadTestURLIsFault(t *testing.T) {
	c := NewCheckerWithConfig(CheckerConfig{TestURL: "http://bad host/\x7f"})

	outcome, err := c.Validate(context.Background(), "1.2.3.4:8080")
	assert.Error(t, err)
	assert.Equal(t, Failed, outcome)
}

func TestValidateSOCKSUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := NewCheckerWithConfig(CheckerConfig{
		TestURL:     "http://ipinfo.test/json",
		Timeout:     time.Second,
		ProxyScheme: "socks5",
	})

	outcome, err := c.Validate(context.Background(), scraper.Candidate(addr))
	require.NoError(t, err)
	assert.Equal(t, Failed, outcome)
}

func TestCheckProxySetsUserAgent(t *testing.T) {
	var mu sync.Mutex
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = r.Header.Get("User-Agent")
		mu.Unlock()
	}))
	defer srv.Close()

	c := NewCheckerWithConfig(CheckerConfig{
		TestURL:   "http://ipinfo.test/json",
		Timeout:   time.Second,
		UserAgent: "proxycrawl-test",
	})

	result, err := c.CheckProxy(context.Background(), scraper.Candidate(strings.TrimPrefix(srv.URL, "http://")))
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, result.Status)
	assert.False(t, result.CheckedAt.IsZero())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "proxycrawl-test", seen)
}

func TestProxyURL(t *testing.T) {
	u, err := ProxyURL("http", "1.2.3.4:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://1.2.3.4:8080", u.String())

	_, err = ProxyURL("http", "1.2.3.4")
	assert.Error(t, err)
}

func TestGroupByStatus(t *testing.T) {
	results := []CheckResult{
		{Candidate: "a:1", Status: StatusHealthy},
		{Candidate: "b:2", Status: StatusTimeout},
		{Candidate: "c:3", Status: StatusHealthy},
	}

	groups := GroupByStatus(results)
	assert.Len(t, groups[StatusHealthy], 2)
	assert.Len(t, groups[StatusTimeout], 1)
	assert.Equal(t, Working, StatusHealthy.Outcome())
	assert.Equal(t, Failed, StatusTimeout.Outcome())
}
