package scraper

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"proxycrawl/internal/logger"
)

// TextSource reads plain ip:port lists, one entry per line
type TextSource struct {
	client          *http.Client
	url             string
	userAgents      []string
	randomUserAgent bool
	logger          *logger.Logger
}

func NewTextSource(config ScraperConfig) *TextSource {
	return &TextSource{
		client:          newClient(config.Timeout),
		url:             config.URL,
		userAgents:      config.UserAgents,
		randomUserAgent: config.RandomUserAgent,
		logger:          logger.New("text"),
	}
}

func (t *TextSource) Name() string {
	return "text"
}

func (t *TextSource) URL() string {
	return t.url
}

func (t *TextSource) Fetch(ctx context.Context) ([]Candidate, error) {
	id := logger.GenerateID()

	resp, err := fetchPage(ctx, t.client, t.url, pickUserAgent(t.userAgents, t.randomUserAgent))
	if err != nil {
		t.logger.Error(id, "Error accessing page: %v", err)
		return []Candidate{}, nil
	}
	defer resp.Body.Close()

	candidates, err := parseTextList(resp.Body)
	if err != nil {
		t.logger.Warn(id, "Reading %s stopped early: %v", t.url, err)
	}

	t.logger.Info(id, "Collected %d candidates from %s", len(candidates), t.url)
	return candidates, nil
}

func parseTextList(reader io.Reader) ([]Candidate, error) {
	candidates := []Candidate{}
	scanner := bufio.NewScanner(reader)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ":")
		if len(parts) != 2 {
			continue
		}

		if _, err := strconv.Atoi(parts[1]); err != nil {
			continue
		}

		candidates = append(candidates, NewCandidate(parts[0], parts[1]))
	}

	return candidates, scanner.Err()
}
