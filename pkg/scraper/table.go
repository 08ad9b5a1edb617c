package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"proxycrawl/internal/logger"
)

// TableSource scrapes the first proxy table of an HTML listing page. The
// first two cells of every row are read as ip and port.
type TableSource struct {
	client          *http.Client
	url             string
	selector        string
	userAgents      []string
	randomUserAgent bool
	strict          bool
	logger          *logger.Logger
}

func NewTableSource(config ScraperConfig) *TableSource {
	selector := config.TableSelector
	if selector == "" {
		selector = "table"
	}

	return &TableSource{
		client:          newClient(config.Timeout),
		url:             config.URL,
		selector:        selector,
		userAgents:      config.UserAgents,
		randomUserAgent: config.RandomUserAgent,
		strict:          config.StrictParsing,
		logger:          logger.New("table"),
	}
}

func (s *TableSource) Name() string {
	return "table"
}

func (s *TableSource) URL() string {
	return s.url
}

// Fetch never fails on network or HTTP errors; those are logged and produce
// an empty list. Only a strict source reports a missing table.
func (s *TableSource) Fetch(ctx context.Context) ([]Candidate, error) {
	id := logger.GenerateID()

	resp, err := fetchPage(ctx, s.client, s.url, pickUserAgent(s.userAgents, s.randomUserAgent))
	if err != nil {
		s.logger.Error(id, "Error accessing page: %v", err)
		return []Candidate{}, nil
	}
	defer resp.Body.Close()

	candidates, err := s.parse(resp.Body)
	if errors.Is(err, ErrNoTable) {
		s.logger.Warn(id, "No table found with selector %q on %s", s.selector, s.url)
		if s.strict {
			return nil, fmt.Errorf("%s: %w", s.url, ErrNoTable)
		}
		return []Candidate{}, nil
	}
	if err != nil {
		s.logger.Error(id, "Failed to parse HTML document from %s: %v", s.url, err)
		return []Candidate{}, nil
	}

	s.logger.Info(id, "Collected %d candidates from %s", len(candidates), s.url)
	return candidates, nil
}

func (s *TableSource) parse(r io.Reader) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	table := doc.Find(s.selector).First()
	if table.Length() == 0 {
		return nil, ErrNoTable
	}

	candidates := []Candidate{}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		candidates = append(candidates, NewCandidate(ip, port))
	})

	return candidates, nil
}
