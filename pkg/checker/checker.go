package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	netproxy "golang.org/x/net/proxy"

	"proxycrawl/internal/logger"
	"proxycrawl/pkg/scraper"
)

// Outcome is the binary verdict of one probe
type Outcome int

const (
	Failed Outcome = iota
	Working
)

func (o Outcome) String() string {
	if o == Working {
		return "working"
	}
	return "failed"
}

// ProxyStatus refines a Failed outcome for logs and history
type ProxyStatus int

const (
	StatusUnknown ProxyStatus = iota
	StatusHealthy
	StatusUnhealthy
	StatusTimeout
	StatusError
)

func (s ProxyStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusTimeout:
		return "timeout"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s ProxyStatus) Outcome() Outcome {
	if s == StatusHealthy {
		return Working
	}
	return Failed
}

type CheckResult struct {
	Candidate    scraper.Candidate
	Status       ProxyStatus
	ResponseTime time.Duration
	Error        error
	CheckedAt    time.Time
}

// Validator classifies one candidate. Network failures are a Failed outcome
// with a nil error; a non-nil error is an unexpected fault.
type Validator interface {
	Validate(ctx context.Context, candidate scraper.Candidate) (Outcome, error)
}

// ValidatorFunc adapts a plain function to Validator
type ValidatorFunc func(ctx context.Context, candidate scraper.Candidate) (Outcome, error)

func (f ValidatorFunc) Validate(ctx context.Context, candidate scraper.Candidate) (Outcome, error) {
	return f(ctx, candidate)
}

type Checker struct {
	testURL   string
	timeout   time.Duration
	scheme    string
	userAgent string
	observers []func(CheckResult)
	logger    *logger.Logger
}

type CheckerConfig struct {
	TestURL     string
	Timeout     time.Duration
	ProxyScheme string
	UserAgent   string
}

func NewChecker() *Checker {
	return &Checker{
		testURL: "https://ipinfo.io/json",
		timeout: 5 * time.Second,
		scheme:  "http",
		logger:  logger.New("checker"),
	}
}

func NewCheckerWithConfig(config CheckerConfig) *Checker {
	c := NewChecker()
	if config.TestURL != "" {
		c.testURL = config.TestURL
	}
	if config.Timeout > 0 {
		c.timeout = config.Timeout
	}
	if config.ProxyScheme != "" {
		c.scheme = config.ProxyScheme
	}
	c.userAgent = config.UserAgent
	return c
}

// Observe registers fn to receive every completed check. Must be called
// before the checker is shared between goroutines.
func (c *Checker) Observe(fn func(CheckResult)) {
	c.observers = append(c.observers, fn)
}

func (c *Checker) Validate(ctx context.Context, candidate scraper.Candidate) (Outcome, error) {
	result, err := c.CheckProxy(ctx, candidate)
	if err != nil {
		return Failed, err
	}
	return result.Status.Outcome(), nil
}

// CheckProxy probes the test URL once through candidate
func (c *Checker) CheckProxy(ctx context.Context, candidate scraper.Candidate) (CheckResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.testURL, nil)
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to build probe request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Connection", "close")

	start := time.Now()
	result := CheckResult{
		Candidate: candidate,
		CheckedAt: start,
	}

	status, err := c.testProxy(req, candidate)
	result.Status = status
	result.Error = err
	result.ResponseTime = time.Since(start)

	if err != nil {
		c.logger.DebugBg("Error testing proxy address %s: %s (%v)", candidate, status, err)
	}

	for _, fn := range c.observers {
		fn(result)
	}

	return result, nil
}

func (c *Checker) testProxy(req *http.Request, candidate scraper.Candidate) (ProxyStatus, error) {
	transport, err := c.buildTransport(candidate)
	if err != nil {
		return StatusError, err
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeoutError(err) {
			return StatusTimeout, err
		}
		if isConnectionError(err) {
			return StatusUnhealthy, err
		}
		return StatusError, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return StatusHealthy, nil
	}

	return StatusUnhealthy, fmt.Errorf("HTTP %d", resp.StatusCode)
}

// buildTransport routes both http and https targets through candidate
func (c *Checker) buildTransport(candidate scraper.Candidate) (*http.Transport, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: c.timeout,
		}).DialContext,
		DisableKeepAlives:     true,
		DisableCompression:    true,
		TLSHandshakeTimeout:   c.timeout,
		ResponseHeaderTimeout: c.timeout,
	}

	switch c.scheme {
	case "socks5":
		dialer, err := netproxy.SOCKS5("tcp", candidate.String(), nil, netproxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS dialer: %w", err)
		}
		contextDialer, ok := dialer.(netproxy.ContextDialer)
		if !ok {
			return nil, errors.New("SOCKS dialer does not support contexts")
		}
		transport.DialContext = contextDialer.DialContext
	default:
		proxyURL, err := ProxyURL("http", candidate)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return transport, nil
}

// ProxyURL turns a candidate into a proxy URL of the given scheme
func ProxyURL(scheme string, candidate scraper.Candidate) (*url.URL, error) {
	u, err := url.Parse(fmt.Sprintf("%s://%s", scheme, candidate))
	if err != nil {
		return nil, fmt.Errorf("invalid proxy address %q: %w", candidate, err)
	}
	if u.Host == "" || u.Port() == "" {
		return nil, fmt.Errorf("invalid proxy address %q: missing host or port", candidate)
	}
	return u, nil
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no route to host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "proxyconnect")
}

func GroupByStatus(results []CheckResult) map[ProxyStatus][]CheckResult {
	groups := make(map[ProxyStatus][]CheckResult)
	for _, result := range results {
		groups[result.Status] = append(groups[result.Status], result)
	}
	return groups
}
