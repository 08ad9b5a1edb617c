package crawler

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"proxycrawl/internal/logger"
	"proxycrawl/pkg/checker"
	"proxycrawl/pkg/scraper"
)

const countryPathPrefix = "/country/"

// Country is one entry of the country index
type Country struct {
	Name string
	URL  string
}

// ProxyRotator supplies the proxy for each country
type ProxyRotator interface {
	Next() (scraper.Candidate, error)
	ReportFailure(proxy scraper.Candidate)
}

// DownloadRecorder counts archive downloads by result
type DownloadRecorder interface {
	RecordDownload(result string)
}

type Config struct {
	BaseURL         string
	ArchivePrefix   string
	ArchiveSuffix   string
	DataDir         string
	Timeout         time.Duration
	Parallelism     int
	ProxyScheme     string
	UserAgent       string
	RandomUserAgent bool
	MaxCountries    int
}

// CrawlResult summarises a Crawl call
type CrawlResult struct {
	Countries int
	Crawled   int
	Archives  int
	Failures  int
}

type Crawler struct {
	config  Config
	delay   checker.DelayPolicy
	sleep   func(ctx context.Context, d time.Duration)
	fs      afero.Fs
	client  *http.Client
	metrics DownloadRecorder
	logger  *logger.Logger
}

func New(config Config, delay checker.DelayPolicy) *Crawler {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Parallelism <= 0 {
		config.Parallelism = 4
	}
	if config.ProxyScheme == "" {
		config.ProxyScheme = "http"
	}
	if delay == nil {
		delay = checker.NoDelay{}
	}

	return &Crawler{
		config: config,
		delay:  delay,
		sleep:  checker.Sleep,
		fs:     afero.NewOsFs(),
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.New("crawler"),
	}
}

// WithFs replaces the file system archives are extracted to
func (c *Crawler) WithFs(fs afero.Fs) *Crawler {
	c.fs = fs
	return c
}

func (c *Crawler) WithMetrics(m DownloadRecorder) *Crawler {
	c.metrics = m
	return c
}

// newCollector builds a collector whose requests are cancelled with ctx
func (c *Crawler) newCollector(ctx context.Context, proxy scraper.Candidate) (*colly.Collector, error) {
	collector := colly.NewCollector(colly.StdlibContext(ctx))
	collector.SetRequestTimeout(c.config.Timeout)

	if c.config.RandomUserAgent {
		extensions.RandomUserAgent(collector)
	} else if c.config.UserAgent != "" {
		collector.UserAgent = c.config.UserAgent
	}

	if proxy != "" {
		proxyURL, err := checker.ProxyURL(c.config.ProxyScheme, proxy)
		if err != nil {
			return nil, err
		}
		collector.SetProxyFunc(http.ProxyURL(proxyURL))
	}

	return collector, nil
}

// DiscoverCountries lists the countries linked from the index page
func (c *Crawler) DiscoverCountries(ctx context.Context, listURL string) ([]Country, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector, err := c.newCollector(ctx, "")
	if err != nil {
		return nil, err
	}

	var countries []Country
	seen := make(map[string]bool)

	collector.OnHTML(`a[href^="`+countryPathPrefix+`"]`, func(e *colly.HTMLElement) {
		href := e.Attr("href")
		name := countryName(href)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		countries = append(countries, Country{
			Name: name,
			URL:  strings.TrimRight(c.config.BaseURL, "/") + href,
		})
	})

	collector.OnError(func(r *colly.Response, err error) {
		c.logger.ErrorBg("Error accessing page: %d %v", r.StatusCode, err)
	})

	if err := collector.Visit(listURL); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to visit country index %s: %w", listURL, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.config.MaxCountries > 0 && len(countries) > c.config.MaxCountries {
		countries = countries[:c.config.MaxCountries]
	}

	return countries, nil
}

// countryName returns the slug of /country/<slug>?query
func countryName(href string) string {
	parts := strings.Split(href, "/")
	if len(parts) < 3 {
		return ""
	}
	name, _, _ := strings.Cut(parts[2], "?")
	return name
}

// CrawlCountry downloads every archive linked from the country page. The page
// is fetched through proxy unless it is empty; archives are fetched directly.
// It returns the number of archives extracted.
func (c *Crawler) CrawlCountry(ctx context.Context, country Country, proxy scraper.Candidate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	id := logger.GenerateID()

	collector, err := c.newCollector(ctx, proxy)
	if err != nil {
		return 0, err
	}

	var links []string
	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if strings.HasPrefix(href, c.config.ArchivePrefix) && strings.HasSuffix(href, c.config.ArchiveSuffix) {
			links = append(links, href)
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		c.logger.Error(id, "Error accessing page for %s: %s: %d", country.Name, country.URL, r.StatusCode)
	})

	if err := collector.Visit(country.URL); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("failed to visit %s: %w", country.URL, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	dir := filepath.Join(c.config.DataDir, country.Name)
	if err := c.ensureDir(dir); err != nil {
		return 0, err
	}

	archives := 0
	for _, link := range links {
		if err := c.DownloadAndUnzip(ctx, link, dir); err != nil {
			c.logger.Error(id, "Failed to download data for %s from %s: %v", country.Name, link, err)
			c.recordDownload("failure")
			if ctx.Err() != nil {
				return archives, ctx.Err()
			}
			continue
		}
		c.recordDownload("success")
		archives++
		c.logger.Info(id, "Successfully downloaded data for %s: %s", country.Name, link)
	}

	c.sleep(ctx, c.delay.Next())
	return archives, nil
}

// Crawl discovers countries and crawls each one through the next proxy of
// rotator. A nil or empty rotator means direct connections. An unreachable
// index page is logged and yields an empty result.
func (c *Crawler) Crawl(ctx context.Context, listURL string, rotator ProxyRotator) (*CrawlResult, error) {
	id := logger.GenerateID()

	countries, err := c.DiscoverCountries(ctx, listURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &CrawlResult{}, ctxErr
		}
		c.logger.Error(id, "Country discovery failed, nothing crawled: %v", err)
		return &CrawlResult{}, nil
	}

	c.logger.Info(id, "Discovered %d countries, crawling with %d workers", len(countries), c.config.Parallelism)

	result := &CrawlResult{Countries: len(countries)}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(c.config.Parallelism)

	for _, country := range countries {
		if ctx.Err() != nil {
			break
		}

		proxy := c.nextProxy(id, rotator)
		if proxy == "" {
			c.logger.Info(id, "Scraping data for %s at %s using a direct connection", country.Name, country.URL)
		} else {
			c.logger.Info(id, "Scraping data for %s at %s using proxy %s", country.Name, country.URL, proxy)
		}

		g.Go(func() error {
			archives, err := c.CrawlCountry(ctx, country, proxy)

			mu.Lock()
			defer mu.Unlock()
			result.Archives += archives
			if err != nil {
				result.Failures++
				if proxy != "" && ctx.Err() == nil {
					rotator.ReportFailure(proxy)
				}
				c.logger.Warn(id, "Crawling %s failed: %v", country.Name, err)
				return nil
			}
			result.Crawled++
			return nil
		})
	}

	g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	c.logger.Info(id, "Crawl finished: %d of %d countries, %d archives, %d failures",
		result.Crawled, result.Countries, result.Archives, result.Failures)
	return result, nil
}

func (c *Crawler) nextProxy(id string, rotator ProxyRotator) scraper.Candidate {
	if rotator == nil {
		return ""
	}
	proxy, err := rotator.Next()
	if err != nil {
		c.logger.Debug(id, "No proxy available: %v", err)
		return ""
	}
	return proxy
}

func (c *Crawler) recordDownload(result string) {
	if c.metrics != nil {
		c.metrics.RecordDownload(result)
	}
}
