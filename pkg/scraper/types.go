package scraper

import (
	"context"
	"errors"
	"net"
	"time"
)

// ErrNoTable is returned by a strict TableSource when the page has no proxy table
var ErrNoTable = errors.New("no proxy table found")

// Candidate is an unvalidated proxy address in host:port form
type Candidate string

func NewCandidate(host, port string) Candidate {
	return Candidate(host + ":" + port)
}

func (c Candidate) String() string {
	return string(c)
}

// Host returns the host part, or the whole candidate when it has no port
func (c Candidate) Host() string {
	host, _, err := net.SplitHostPort(string(c))
	if err != nil {
		return string(c)
	}
	return host
}

type Source interface {
	Name() string
	URL() string
	Fetch(ctx context.Context) ([]Candidate, error)
}

type ScraperConfig struct {
	URL             string
	Format          string
	TableSelector   string
	Timeout         time.Duration
	UserAgents      []string
	RandomUserAgent bool
	StrictParsing   bool
}
