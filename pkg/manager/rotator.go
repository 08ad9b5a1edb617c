package manager

import (
	"errors"
	"math/rand"
	"sync"

	"proxycrawl/internal/logger"
	"proxycrawl/pkg/scraper"
	"proxycrawl/pkg/store"
)

var ErrNoProxies = errors.New("no working proxies available")

const defaultMaxFails = 3

// Rotator hands out persisted proxies in round-robin order
type Rotator struct {
	proxies      []scraper.Candidate
	failCount    map[scraper.Candidate]int
	currentIndex int
	maxFails     int
	mu           sync.Mutex
	logger       *logger.Logger
}

func NewRotator(proxies []scraper.Candidate) *Rotator {
	list := make([]scraper.Candidate, len(proxies))
	copy(list, proxies)

	return &Rotator{
		proxies:   list,
		failCount: make(map[scraper.Candidate]int),
		maxFails:  defaultMaxFails,
		logger:    logger.New("rotator"),
	}
}

// LoadRotator builds a rotator from the proxies persisted in st
func LoadRotator(st *store.Store) (*Rotator, error) {
	proxies, err := st.Load()
	if err != nil {
		return nil, err
	}
	return NewRotator(proxies), nil
}

// Next returns the next proxy in round-robin fashion
func (r *Rotator) Next() (scraper.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return "", ErrNoProxies
	}

	proxy := r.proxies[r.currentIndex]
	r.currentIndex = (r.currentIndex + 1) % len(r.proxies)

	return proxy, nil
}

// Random returns a random proxy
func (r *Rotator) Random() (scraper.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return "", ErrNoProxies
	}

	return r.proxies[rand.Intn(len(r.proxies))], nil
}

// ReportFailure drops proxy from the rotation once it failed maxFails times
func (r *Rotator) ReportFailure(proxy scraper.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failCount[proxy]++
	if r.failCount[proxy] < r.maxFails {
		return
	}

	kept := make([]scraper.Candidate, 0, len(r.proxies))
	for _, p := range r.proxies {
		if p != proxy {
			kept = append(kept, p)
		}
	}

	if len(kept) < len(r.proxies) {
		r.proxies = kept
		r.logger.WarnBg("Removed failing proxy: %s (failed %d times)", proxy, r.failCount[proxy])

		if r.currentIndex >= len(r.proxies) {
			r.currentIndex = 0
		}
	}
}

func (r *Rotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}
