package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"proxycrawl/internal/config"
	"proxycrawl/internal/database"
	"proxycrawl/internal/logger"
	"proxycrawl/internal/metrics"
	"proxycrawl/pkg/checker"
	"proxycrawl/pkg/crawler"
	"proxycrawl/pkg/manager"
	"proxycrawl/pkg/scraper"
	"proxycrawl/pkg/status"
	"proxycrawl/pkg/store"
)

// app holds the components shared by the subcommands
type app struct {
	cfg          *config.Config
	store        *store.Store
	metrics      *metrics.Collector
	db           *database.DB
	history      *database.Service
	statusServer *status.Server
	logger       *logger.Logger
}

func newApp(cmd *cobra.Command) (*app, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	config.PrintConfig(cfg)

	a := &app{
		cfg:     cfg,
		store:   store.New(cfg.Store.Path),
		metrics: metrics.NewCollector(),
		logger:  logger.New("main"),
	}

	if cfg.Database.Enabled {
		db, err := database.NewDB(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.db = db
		a.history = database.NewService(db)
	}

	if cfg.Metrics.ListenAddr != "" {
		a.startStatusServer()
	}

	return a, nil
}

func (a *app) startStatusServer() {
	cfg := status.DefaultConfig()
	cfg.ListenAddr = a.cfg.Metrics.ListenAddr

	a.statusServer = status.NewServer(a.metrics.Handler(), cfg)
	if a.history != nil {
		a.statusServer.SetHistory(a.history)
	}

	go func() {
		if err := a.statusServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.ErrorBg("Status server error: %v", err)
		}
	}()

	a.logger.InfoBg("Metrics available on http://%s/metrics", a.cfg.Metrics.ListenAddr)
}

func (a *app) Close() {
	if a.statusServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.statusServer.Stop(ctx); err != nil {
			a.logger.WarnBg("Status server shutdown error: %v", err)
		}
	}

	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) newHarvester() (*manager.Harvester, error) {
	source, err := scraper.NewSource(scraper.ScraperConfig{
		URL:             a.cfg.Scraper.URL,
		Format:          a.cfg.Scraper.Format,
		TableSelector:   a.cfg.Scraper.TableSelector,
		Timeout:         a.cfg.Scraper.Timeout,
		UserAgents:      a.cfg.Scraper.UserAgents,
		RandomUserAgent: a.cfg.Scraper.RandomUserAgent,
		StrictParsing:   a.cfg.Scraper.StrictParsing,
	})
	if err != nil {
		return nil, err
	}

	chk := checker.NewCheckerWithConfig(checker.CheckerConfig{
		TestURL:     a.cfg.Checker.TestURL,
		Timeout:     a.cfg.Checker.Timeout,
		ProxyScheme: a.cfg.Checker.ProxyScheme,
		UserAgent:   a.userAgent(),
	})

	delay := checker.NewUniformDelay(a.cfg.Checker.DelayMin, a.cfg.Checker.DelayMax, nil)
	coord := checker.NewCoordinator(chk, a.cfg.Checker.MaxWorkers, delay)

	h := manager.NewHarvester(source, coord, a.store).WithMetrics(a.metrics)
	if a.history != nil {
		h.WithHistory(a.history)
	}
	h.ObserveChecker(chk)

	if a.statusServer != nil {
		a.statusServer.SetHarvester(h)
	}

	return h, nil
}

func (a *app) newCrawler() *crawler.Crawler {
	c := a.cfg.Crawler

	return crawler.New(crawler.Config{
		BaseURL:         c.BaseURL,
		ArchivePrefix:   c.ArchivePrefix,
		ArchiveSuffix:   c.ArchiveSuffix,
		DataDir:         c.DataDir,
		Timeout:         c.Timeout,
		Parallelism:     c.Parallelism,
		ProxyScheme:     c.ProxyScheme,
		UserAgent:       a.userAgent(),
		RandomUserAgent: a.cfg.Scraper.RandomUserAgent,
		MaxCountries:    c.MaxCountries,
	}, checker.NewUniformDelay(c.DelayMin, c.DelayMax, nil)).WithMetrics(a.metrics)
}

// userAgent is the fixed agent for probes and crawls: the first configured one
func (a *app) userAgent() string {
	if len(a.cfg.Scraper.UserAgents) == 0 {
		return ""
	}
	return a.cfg.Scraper.UserAgents[0]
}

// loadRotator falls back to an empty rotation, i.e. direct connections, when
// no proxy file has been written yet
func (a *app) loadRotator() (*manager.Rotator, error) {
	rotator, err := manager.LoadRotator(a.store)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.WarnBg("No proxy list at %s, crawling without proxies", a.store.Path())
		return manager.NewRotator(nil), nil
	}
	if err != nil {
		return nil, err
	}

	if rotator.Len() == 0 {
		a.logger.WarnBg("Proxy list %s is empty, crawling without proxies", a.store.Path())
	} else {
		a.logger.InfoBg("Loaded %d proxies from %s", rotator.Len(), a.store.Path())
	}
	return rotator, nil
}

// cleanupHistory drops history rows older than database.max_age
func (a *app) cleanupHistory(ctx context.Context) {
	if a.history == nil || a.cfg.Database.MaxAge <= 0 {
		return
	}

	removed, err := a.history.Cleanup(ctx, a.cfg.Database.MaxAge)
	if err != nil {
		a.logger.WarnBg("History cleanup failed: %v", err)
		return
	}
	if removed > 0 {
		a.logger.InfoBg("Removed %d proxy checks older than %v", removed, a.cfg.Database.MaxAge)
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
