// Package syncjob keeps the local catalogue in step with TMDB: it imports the
// current popular titles and refreshes movies whose metadata went stale.
package syncjob

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"cinerate/errs"
	"cinerate/movie"
	"cinerate/pkg/logger"
	"cinerate/tmdb"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrRunning  = errs.Errorf(errs.ECONFLICT, "A sync run is already in progress.")
	ErrShutdown = errs.Errorf(errs.ECONFLICT, "The sync job is shutting down.")
)

// Source lists the titles to import.
type Source interface {
	Popular(ctx context.Context, page int) (tmdb.MoviePage, error)
}

// Importer stores TMDB titles locally.
type Importer interface {
	ImportFromTMDB(ctx context.Context, tmdbID int) (movie.Movie, error)
	StaleMovies(ctx context.Context, syncedBefore time.Time, afterID int64, limit int) ([]movie.Movie, error)
}

type Config struct {
	OnStartup    bool
	Interval     time.Duration
	PopularPages int
	BatchSize    int
	Concurrency  int
	Delay        time.Duration
	StaleAfter   time.Duration
}

type Report struct {
	RunID      string    `json:"run_id"`
	Result     string    `json:"result"`
	Imported   int64     `json:"imported"`
	Refreshed  int64     `json:"refreshed"`
	Failed     int64     `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type Job struct {
	source   Source
	importer Importer
	cfg      Config
	metrics  *Metrics
	log      *zap.SugaredLogger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	running atomic.Bool

	mu   sync.Mutex
	last *Report

	// runs started by Start or Trigger; Shutdown cancels ctx and waits on wg
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closeMu  sync.Mutex
	shutdown bool
}

type Option func(*Job)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(j *Job) { j.log = log }
}

func WithMetrics(m *Metrics) Option {
	return func(j *Job) { j.metrics = m }
}

func New(source Source, importer Importer, cfg Config, opts ...Option) *Job {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PopularPages < 0 {
		cfg.PopularPages = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		source:   source,
		importer: importer,
		cfg:      cfg,
		log:      logger.NOOPLogger,
		now: func() time.Time {
			return time.Now().UTC()
		},
		sleep:  sleepContext,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(j)
	}
	if j.metrics == nil {
		j.metrics = NewMetrics(nil)
	}
	return j
}

// Start runs the job on every Interval until ctx is done. A tick that lands
// while a run is in progress is skipped.
func (j *Job) Start(ctx context.Context) {
	j.log.Infow("sync scheduler started", "interval", j.cfg.Interval.String(), "on_startup", j.cfg.OnStartup)
	if j.cfg.OnStartup {
		j.scheduledRun(ctx)
	}

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.log.Infow("sync scheduler stopped")
			return
		case <-j.ctx.Done():
			j.log.Infow("sync scheduler stopped")
			return
		case <-ticker.C:
			j.scheduledRun(ctx)
		}
	}
}

// scheduledRun runs one pass that Shutdown cancels and waits for.
func (j *Job) scheduledRun(ctx context.Context) {
	if !j.track() {
		return
	}
	defer j.wg.Done()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(j.ctx, cancel)
	defer stop()

	if _, err := j.RunOnce(runCtx); errors.Is(err, ErrRunning) {
		j.log.Infow("sync tick skipped, previous run still in progress")
	}
}

// track registers a background run unless Shutdown has been called.
func (j *Job) track() bool {
	j.closeMu.Lock()
	defer j.closeMu.Unlock()
	if j.shutdown {
		return false
	}
	j.wg.Add(1)
	return true
}

// Trigger starts a run in the background and returns its id.
func (j *Job) Trigger() (string, error) {
	if !j.track() {
		return "", ErrShutdown
	}
	if !j.running.CompareAndSwap(false, true) {
		j.wg.Done()
		return "", ErrRunning
	}
	runID := uuid.NewString()

	go func() {
		defer j.wg.Done()
		defer j.running.Store(false)
		_, _ = j.run(j.ctx, runID)
	}()
	return runID, nil
}

// Shutdown cancels scheduled and triggered runs and waits for them until
// ctx is done. Later ticks and triggers are refused.
func (j *Job) Shutdown(ctx context.Context) error {
	j.closeMu.Lock()
	j.shutdown = true
	j.closeMu.Unlock()
	j.cancel()
	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) Running() bool {
	return j.running.Load()
}

// LastReport returns the report of the most recent finished run.
func (j *Job) LastReport() (Report, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return Report{}, false
	}
	return *j.last, true
}

// RunOnce performs a full sync pass and blocks until it finishes.
func (j *Job) RunOnce(ctx context.Context) (Report, error) {
	if !j.running.CompareAndSwap(false, true) {
		return Report{}, ErrRunning
	}
	defer j.running.Store(false)
	return j.run(ctx, uuid.NewString())
}

func (j *Job) run(ctx context.Context, runID string) (Report, error) {
	log := j.log.With("run_id", runID)
	st := &runState{}
	report := Report{RunID: runID, StartedAt: j.now()}
	log.Infow("sync run started", "popular_pages", j.cfg.PopularPages, "stale_after", j.cfg.StaleAfter.String())

	err := j.importPopular(ctx, log, st)
	if err == nil {
		err = j.refreshStale(ctx, log, st, report.StartedAt.Add(-j.cfg.StaleAfter))
	}

	report.Imported = st.imported.Load()
	report.Refreshed = st.refreshed.Load()
	report.Failed = st.failed.Load()
	report.FinishedAt = j.now()
	switch {
	case err != nil:
		report.Result = resultError
	case report.Failed > 0 || st.pageErrors.Load() > 0:
		report.Result = resultPartial
	default:
		report.Result = resultSuccess
	}

	j.metrics.Runs.WithLabelValues(report.Result).Inc()
	j.metrics.Duration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	if report.Result == resultSuccess {
		j.metrics.LastSuccess.Set(float64(report.FinishedAt.Unix()))
	}

	j.mu.Lock()
	j.last = &report
	j.mu.Unlock()

	fields := []interface{}{
		"result", report.Result,
		"imported", report.Imported,
		"refreshed", report.Refreshed,
		"failed", report.Failed,
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	}
	if err != nil {
		log.Errorw("sync run aborted", append(fields, "error", err)...)
		return report, err
	}
	log.Infow("sync run finished", fields...)
	return report, nil
}

type runState struct {
	imported   atomic.Int64
	refreshed  atomic.Int64
	failed     atomic.Int64
	pageErrors atomic.Int64
}

func (j *Job) importPopular(ctx context.Context, log *zap.SugaredLogger, st *runState) error {
	seen := make(map[int]struct{})
	var ids []int
	for page := 1; page <= j.cfg.PopularPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := j.source.Popular(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			st.pageErrors.Add(1)
			log.Warnw("fetch popular page failed", "page", page, "error", err)
			continue
		}
		for _, m := range res.Results {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			ids = append(ids, m.ID)
		}
		if res.TotalPages > 0 && page >= res.TotalPages {
			break
		}
	}
	return j.process(ctx, log, ids, outcomeImported, &st.imported, &st.failed)
}

func (j *Job) refreshStale(ctx context.Context, log *zap.SugaredLogger, st *runState, syncedBefore time.Time) error {
	var afterID int64
	for {
		batch, err := j.importer.StaleMovies(ctx, syncedBefore, afterID, j.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		ids := make([]int, 0, len(batch))
		for _, m := range batch {
			if m.TMDBID != nil {
				ids = append(ids, *m.TMDBID)
			}
		}
		if err := j.process(ctx, log, ids, outcomeRefreshed, &st.refreshed, &st.failed); err != nil {
			return err
		}

		afterID = batch[len(batch)-1].ID
		if len(batch) < j.cfg.BatchSize {
			return nil
		}
	}
}

// process imports ids with at most Concurrency calls in flight, each worker
// pausing Delay before its call. Only context errors stop the batch.
func (j *Job) process(ctx context.Context, log *zap.SugaredLogger, ids []int, outcome string, ok, failed *atomic.Int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := j.sleep(gctx, j.cfg.Delay); err != nil {
				return err
			}
			if _, err := j.importer.ImportFromTMDB(gctx, id); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				j.metrics.Movies.WithLabelValues(outcomeFailed).Inc()
				log.Warnw("sync movie failed", "tmdb_id", id, "stage", outcome, "error", err)
				return nil
			}
			ok.Add(1)
			j.metrics.Movies.WithLabelValues(outcome).Inc()
			return nil
		})
	}
	return g.Wait()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
