package crawler

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxycrawl/pkg/scraper"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body>"+body+"</body></html>")
}

// dataSite serves a country index, country pages and CSV archives
type dataSite struct {
	*httptest.Server
	archiveHits atomic.Int32
}

func newDataSite(t *testing.T) *dataSite {
	t.Helper()

	site := &dataSite{}
	archive := zipBytes(t, map[string]string{
		"API_DATA.csv":      "Country Name,Value\nAfghanistan,1\n",
		"Metadata_Data.csv": "Code,Region\nAFG,South Asia\n",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/country", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, `
			<a href="/country/afghanistan?view=chart">Afghanistan</a>
			<a href="/country/brazil">Brazil</a>
			<a href="/country/afghanistan">Afghanistan again</a>
			<a href="/country/">All</a>
			<a href="/about">About</a>`)
	})
	mux.HandleFunc("/country/", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, countryPage(site.URL))
	})
	mux.HandleFunc("/v2/en/country/", func(w http.ResponseWriter, r *http.Request) {
		site.archiveHits.Add(1)
		if strings.HasSuffix(r.URL.Path, "/MISSING") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write(archive)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	site.Server = httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

func countryPage(origin string) string {
	return fmt.Sprintf(`
		<a href="%[1]s/v2/en/country/AFG?downloadformat=csv">CSV</a>
		<a href="%[1]s/v2/en/country/AFG?downloadformat=xml">XML</a>
		<a href="https://elsewhere.example/data.csv">Other</a>`, origin)
}

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
}

func newTestCrawler(site *dataSite, fsys afero.Fs) (*Crawler, *sleepRecorder) {
	c := New(Config{
		BaseURL:       site.URL,
		ArchivePrefix: site.URL + "/v2/en/country/",
		ArchiveSuffix: "csv",
		DataDir:       "/data",
		Timeout:       2 * time.Second,
		Parallelism:   2,
	}, nil).WithFs(fsys)

	rec := &sleepRecorder{}
	c.sleep = rec.sleep
	return c, rec
}

type fakeRotator struct {
	mu       sync.Mutex
	proxies  []scraper.Candidate
	idx      int
	failures []scraper.Candidate
}

func (r *fakeRotator) Next() (scraper.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.proxies) == 0 {
		return "", fmt.Errorf("empty")
	}
	p := r.proxies[r.idx%len(r.proxies)]
	r.idx++
	return p, nil
}

func (r *fakeRotator) ReportFailure(p scraper.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, p)
}

type downloadCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (d *downloadCounter) RecordDownload(result string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.counts == nil {
		d.counts = make(map[string]int)
	}
	d.counts[result]++
}

func TestCountryName(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/country/afghanistan", "afghanistan"},
		{"/country/afghanistan?view=chart", "afghanistan"},
		{"/country/cote-divoire/more", "cote-divoire"},
		{"/country/", ""},
		{"/country", ""},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.want, countryName(tt.href))
		})
	}
}

func TestDiscoverCountries(t *testing.T) {
	site := newDataSite(t)
	c, _ := newTestCrawler(site, afero.NewMemMapFs())

	countries, err := c.DiscoverCountries(context.Background(), site.URL+"/country")
	require.NoError(t, err)

	assert.Equal(t, []Country{
		{Name: "afghanistan", URL: site.URL + "/country/afghanistan?view=chart"},
		{Name: "brazil", URL: site.URL + "/country/brazil"},
	}, countries)
}

func TestDiscoverCountriesMaxCountries(t *testing.T) {
	site := newDataSite(t)
	c, _ := newTestCrawler(site, afero.NewMemMapFs())
	c.config.MaxCountries = 1

	countries, err := c.DiscoverCountries(context.Background(), site.URL+"/country")
	require.NoError(t, err)
	require.Len(t, countries, 1)
	assert.Equal(t, "afghanistan", countries[0].Name)
}

func TestDiscoverCountriesNon200(t *testing.T) {
	site := newDataSite(t)
	c, _ := newTestCrawler(site, afero.NewMemMapFs())

	countries, err := c.DiscoverCountries(context.Background(), site.URL+"/broken")
	assert.Error(t, err)
	assert.Empty(t, countries)
}

func TestCrawlCountryDirect(t *testing.T) {
	site := newDataSite(t)
	fsys := afero.NewMemMapFs()
	c, rec := newTestCrawler(site, fsys)
	metrics := &downloadCounter{}
	c.WithMetrics(metrics)

	country := Country{Name: "afghanistan", URL: site.URL + "/country/afghanistan"}
	archives, err := c.CrawlCountry(context.Background(), country, "")
	require.NoError(t, err)

	assert.Equal(t, 1, archives)
	assert.Equal(t, int32(1), site.archiveHits.Load())

	data, err := afero.ReadFile(fsys, "/data/afghanistan/API_DATA.csv")
	require.NoError(t, err)
	assert.Equal(t, "Country Name,Value\nAfghanistan,1\n", string(data))

	exists, err := afero.Exists(fsys, "/data/afghanistan/Metadata_Data.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = afero.Exists(fsys, "/data/afghanistan/data.zip")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Len(t, rec.calls, 1)
	assert.Equal(t, 1, metrics.counts["success"])
}

func TestCrawlCountryThroughProxy(t *testing.T) {
	site := newDataSite(t)

	var proxied atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied.Add(1)
		assert.True(t, r.URL.IsAbs(), "proxy expects absolute request URIs")
		writeHTML(w, countryPage(site.URL))
	}))
	defer proxy.Close()

	fsys := afero.NewMemMapFs()
	c, _ := newTestCrawler(site, fsys)

	country := Country{Name: "brazil", URL: "http://data.example/country/brazil"}
	archives, err := c.CrawlCountry(context.Background(), country, scraper.Candidate(strings.TrimPrefix(proxy.URL, "http://")))
	require.NoError(t, err)

	assert.Equal(t, 1, archives)
	assert.Equal(t, int32(1), proxied.Load())
	assert.Equal(t, int32(1), site.archiveHits.Load())

	exists, err := afero.Exists(fsys, "/data/brazil/API_DATA.csv")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCrawlCountrySkipsFailedDownloads(t *testing.T) {
	site := newDataSite(t)
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, fmt.Sprintf(`
			<a href="%[1]s/v2/en/country/MISSING?downloadformat=csv">gone</a>
			<a href="%[1]s/v2/en/country/AFG?downloadformat=csv">ok</a>`, site.URL))
	}))
	defer page.Close()

	fsys := afero.NewMemMapFs()
	c, rec := newTestCrawler(site, fsys)
	metrics := &downloadCounter{}
	c.WithMetrics(metrics)

	archives, err := c.CrawlCountry(context.Background(), Country{Name: "afghanistan", URL: page.URL}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, archives)
	assert.Equal(t, 1, metrics.counts["failure"])
	assert.Equal(t, 1, metrics.counts["success"])
	assert.Len(t, rec.calls, 1)
}

func TestCrawlCountryPageError(t *testing.T) {
	site := newDataSite(t)
	fsys := afero.NewMemMapFs()
	c, rec := newTestCrawler(site, fsys)

	_, err := c.CrawlCountry(context.Background(), Country{Name: "x", URL: site.URL + "/broken"}, "")
	assert.Error(t, err)
	assert.Empty(t, rec.calls)

	exists, err := afero.DirExists(fsys, "/data/x")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCrawlDirect(t *testing.T) {
	site := newDataSite(t)
	fsys := afero.NewMemMapFs()
	c, rec := newTestCrawler(site, fsys)

	result, err := c.Crawl(context.Background(), site.URL+"/country", nil)
	require.NoError(t, err)

	assert.Equal(t, &CrawlResult{Countries: 2, Crawled: 2, Archives: 2}, result)
	assert.Len(t, rec.calls, 2)

	dirs, err := c.ListDirectory("/data")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"afghanistan", "brazil"}, dirs)
}

func TestCrawlEmptyRotatorFallsBackToDirect(t *testing.T) {
	site := newDataSite(t)
	c, _ := newTestCrawler(site, afero.NewMemMapFs())

	result, err := c.Crawl(context.Background(), site.URL+"/country", &fakeRotator{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Crawled)
}

func TestCrawlReportsFailingProxies(t *testing.T) {
	site := newDataSite(t)
	c, _ := newTestCrawler(site, afero.NewMemMapFs())

	rotator := &fakeRotator{proxies: []scraper.Candidate{"127.0.0.1:1"}}
	result, err := c.Crawl(context.Background(), site.URL+"/country", rotator)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Failures)
	assert.Zero(t, result.Crawled)
	assert.Equal(t, []scraper.Candidate{"127.0.0.1:1", "127.0.0.1:1"}, rotator.failures)
}

func TestCrawlDiscoveryFailure(t *testing.T) {
	site := newDataSite(t)
	c, _ := newTestCrawler(site, afero.NewMemMapFs())

	result, err := c.Crawl(context.Background(), site.URL+"/broken", nil)
	require.NoError(t, err)
	assert.Equal(t, &CrawlResult{}, result)
	assert.Zero(t, site.archiveHits.Load())
}

func TestCrawlCancelled(t *testing.T) {
	site := newDataSite(t)
	c, _ := newTestCrawler(site, afero.NewMemMapFs())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Crawl(ctx, site.URL+"/country", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrawlCountryCancelledWhilePageLoads(t *testing.T) {
	site := newDataSite(t)

	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(3 * time.Second):
		}
		writeHTML(w, countryPage(site.URL))
	}))
	defer slow.Close()
	defer close(release)

	fsys := afero.NewMemMapFs()
	c, rec := newTestCrawler(site, fsys)
	c.config.Timeout = 10 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	archives, err := c.CrawlCountry(ctx, Country{Name: "slow", URL: slow.URL}, "")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Zero(t, archives)
	assert.Empty(t, rec.calls)

	exists, err := afero.DirExists(fsys, "/data/slow")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCrawlCancelledWhileIndexLoads(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer slow.Close()

	site := newDataSite(t)
	c, _ := newTestCrawler(site, afero.NewMemMapFs())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Crawl(ctx, slow.URL, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
