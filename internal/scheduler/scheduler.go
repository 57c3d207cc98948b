package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/riskwatch/riskwatch/internal/alert"
	"github.com/riskwatch/riskwatch/internal/classify"
	"github.com/riskwatch/riskwatch/internal/config"
	"github.com/riskwatch/riskwatch/internal/feed"
	"github.com/riskwatch/riskwatch/internal/guard"
	"github.com/riskwatch/riskwatch/internal/logger"
	"github.com/riskwatch/riskwatch/internal/pipeline"
	"github.com/riskwatch/riskwatch/internal/store"
)

var log = logger.ForComponent("scheduler")

// Scheduler owns the periodic cycle: back up the database, run the ingest
// pipeline, and send the alert digest. It also hosts the guard tamper
// watcher while a lock is in place.
type Scheduler struct {
	cfg      *config.Config
	store    *store.Store
	fetcher  *feed.Fetcher
	guard    *guard.Guard
	watcher  *guard.Watcher
	notifier *alert.Notifier

	trigger      chan struct{}
	shutdown     chan struct{}
	shutdownOnce sync.Once
	startTime    time.Time

	mu         sync.Mutex
	lastReport *pipeline.RunReport
	lastRunAt  time.Time
	lastErr    error
	nextRunAt  time.Time
}

type StatusInfo struct {
	Uptime     string             `json:"uptime"`
	LastRunID  string             `json:"last_run_id,omitempty"`
	LastRunAt  time.Time          `json:"last_run_at,omitempty"`
	LastError  string             `json:"last_error,omitempty"`
	NextRunAt  time.Time          `json:"next_run_at,omitempty"`
	Oneshot    bool               `json:"oneshot"`
	Guard      guard.Status       `json:"guard"`
	LastTamper *guard.TamperEvent `json:"last_tamper,omitempty"`
}

func New(cfg *config.Config, st *store.Store) *Scheduler {
	g := guard.New(cfg.Guard.ProtectedFile, cfg.Guard.BackupsDir, cfg.Guard.StableTag, guard.NewGitRunner(""))

	return &Scheduler{
		cfg:       cfg,
		store:     st,
		fetcher:   feed.NewFetcher(cfg.Ingest.FetchTimeout, cfg.Ingest.FetchWorkers, cfg.Ingest.MaxPerFeed),
		guard:     g,
		notifier:  alert.New(cfg.Scheduler.WebhookURL),
		trigger:   make(chan struct{}, 1),
		shutdown:  make(chan struct{}),
		startTime: time.Now(),
	}
}

// StartWatcher begins tamper detection on the protected file.
func (s *Scheduler) StartWatcher(ctx context.Context) error {
	w, err := guard.NewWatcher(s.guard, 500*time.Millisecond, nil)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()
	return nil
}

// Loop runs cycles until the context is cancelled or Shutdown is called. In
// oneshot mode a single cycle runs and the loop returns, for cron-style use.
func (s *Scheduler) Loop(ctx context.Context) error {
	for {
		s.runCycle(ctx)

		if s.cfg.Scheduler.Oneshot {
			log.Info("oneshot mode, exiting after single cycle")
			return nil
		}

		next := time.Now().Add(s.cfg.Scheduler.Interval)
		s.mu.Lock()
		s.nextRunAt = next
		s.mu.Unlock()

		timer := time.NewTimer(s.cfg.Scheduler.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.shutdown:
			timer.Stop()
			return nil
		case <-s.trigger:
			timer.Stop()
			log.Info("cycle triggered on demand")
		case <-timer.C:
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	log.Info("cycle starting")

	// Backup trouble should not stop ingestion.
	if _, err := s.store.Backup(s.cfg.Store.BackupsDir); err != nil {
		log.Warn("backup skipped", "error", err)
	}
	if _, err := store.PruneBackups(s.cfg.Store.BackupsDir, s.cfg.Store.BackupRetention); err != nil {
		log.Warn("backup prune failed", "error", err)
	}

	report, err := s.runPipeline(ctx)

	s.mu.Lock()
	s.lastReport = report
	s.lastRunAt = time.Now().UTC()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		log.Error("cycle failed", "error", err)
		return
	}

	s.sendAlerts(ctx)
	log.Info("cycle complete")
}

// runPipeline rebuilds the pipeline each cycle so rule-file edits and the
// presence of the optional reclassify configs take effect without a restart.
func (s *Scheduler) runPipeline(ctx context.Context) (*pipeline.RunReport, error) {
	rules, err := classify.LoadRuleSet(s.cfg.Classify.ConfigDir)
	if err != nil {
		return nil, err
	}

	classifier, err := classify.New(rules)
	if err != nil {
		return nil, err
	}

	p := pipeline.Build(pipeline.Env{
		Store:       s.store,
		Fetcher:     s.fetcher,
		Classifier:  classifier,
		Rules:       rules,
		Feeds:       s.cfg.Ingest.Feeds,
		Vendors:     s.cfg.Ingest.Vendors,
		ClassifyDir: s.cfg.Classify.ConfigDir,
	})

	return p.Run(ctx)
}

func (s *Scheduler) sendAlerts(ctx context.Context) {
	if !s.notifier.Enabled() {
		return
	}

	window := s.cfg.Scheduler.AlertWindow
	events, err := s.store.Latest(store.Filter{
		Since: time.Now().UTC().Add(-window),
		Limit: 20,
	})
	if err != nil {
		log.Warn("alert query failed", "error", err)
		return
	}

	s.notifier.SendDigest(ctx, events, window)
}

// Trigger requests an immediate cycle. A cycle already pending coalesces.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)

		s.mu.Lock()
		w := s.watcher
		s.mu.Unlock()
		if w != nil {
			w.Stop()
		}
	})
}

func (s *Scheduler) Status() StatusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := StatusInfo{
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		LastRunAt: s.lastRunAt,
		NextRunAt: s.nextRunAt,
		Oneshot:   s.cfg.Scheduler.Oneshot,
		Guard:     s.guard.Status(),
	}

	if s.lastReport != nil {
		info.LastRunID = s.lastReport.RunID
	}
	if s.lastErr != nil {
		info.LastError = s.lastErr.Error()
	}
	if s.watcher != nil {
		info.LastTamper = s.watcher.LastTamper()
	}

	return info
}
