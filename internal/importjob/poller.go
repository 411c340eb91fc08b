package importjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/leadgen-crm/internal/leads"
	"github.com/cuongbtq/leadgen-crm/internal/phantombuster"
)

const (
	// NoResultMessage marks a successful run that produced no artifact
	NoResultMessage = "Phantom finished but no result file was found in its output"

	defaultSource   = "phantombuster"
	snapshotTimeout = 5 * time.Second
	cancelWait      = 5 * time.Second
)

var (
	// ErrPollerClosed is returned by Start after Shutdown
	ErrPollerClosed = errors.New("import poller is shut down")

	// ErrNoAgent is returned when neither the request nor the config names an agent
	ErrNoAgent = errors.New("no phantom agent configured")

	// Causes of a stopped job; their text becomes the job message
	errCancelled   = errors.New("cancelled")
	errPollTimeout = errors.New("timeout")
	errShutdown    = errors.New("import interrupted by shutdown")
)

// JobClient is the remote automation API the poller drives
type JobClient interface {
	Launch(ctx context.Context, agentID string, arguments map[string]any) (string, error)
	FetchStatus(ctx context.Context, containerID string) (*phantombuster.ContainerStatus, error)
	DownloadResult(ctx context.Context, resultURL string, format phantombuster.ResultFormat) ([]byte, error)
}

// LeadSink persists records, reporting false for duplicates
type LeadSink interface {
	InsertOrSkip(ctx context.Context, rec leads.Record) (bool, error)
}

// Recorder receives import lifecycle events for metrics
type Recorder interface {
	JobStarted()
	JobFinished(status string, elapsed time.Duration)
	LeadsProcessed(saved, skipped, malformed int)
	TransientPollError()
}

type noopRecorder struct{}

func (noopRecorder) JobStarted() {}
func (noopRecorder) JobFinished(string, time.Duration) {}
func (noopRecorder) LeadsProcessed(int, int, int) {}
func (noopRecorder) TransientPollError() {}

// Config holds poller timing
type Config struct {
	AgentID             string
	PollInterval        time.Duration
	PollTimeout         time.Duration
	MaxTransientRetries int
	ExpectedDuration    time.Duration
}

// LaunchRequest describes one import
type LaunchRequest struct {
	AgentID   string
	Arguments map[string]any
	Source    string
}

// Option configures a Poller
type Option func(*Poller)

// WithSnapshotStore keeps finished jobs in store
func WithSnapshotStore(store SnapshotStore) Option {
	return func(p *Poller) {
		p.snapshots = store
	}
}

// WithRecorder reports lifecycle events to r
func WithRecorder(r Recorder) Option {
	return func(p *Poller) {
		p.metrics = r
	}
}

// Poller launches imports and drives each one on its own goroutine until it
// reaches a terminal state
type Poller struct {
	client    JobClient
	sink      LeadSink
	tracker   *Tracker
	snapshots SnapshotStore
	metrics   Recorder
	cfg       Config
	logger    *slog.Logger

	baseCtx context.Context
	stop    context.CancelCauseFunc

	mu      sync.Mutex
	closed  bool
	running map[string]*jobHandle
	wg      sync.WaitGroup
}

// jobHandle lets Cancel stop a job goroutine and wait for it to settle
type jobHandle struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// NewPoller creates a new poller
func NewPoller(client JobClient, sink LeadSink, tracker *Tracker, cfg Config, logger *slog.Logger, opts ...Option) *Poller {
	baseCtx, stop := context.WithCancelCause(context.Background())

	p := &Poller{
		client:  client,
		sink:    sink,
		tracker: tracker,
		metrics: noopRecorder{},
		cfg:     cfg,
		logger:  logger,
		baseCtx: baseCtx,
		stop:    stop,
		running: make(map[string]*jobHandle),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start registers a job and begins polling it in the background. ctx bounds
// the call only; the job outlives the request that started it.
func (p *Poller) Start(ctx context.Context, req LaunchRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if req.AgentID == "" {
		req.AgentID = p.cfg.AgentID
	}
	if req.AgentID == "" {
		return "", ErrNoAgent
	}
	if req.Source == "" {
		req.Source = defaultSource
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", ErrPollerClosed
	}

	jobID := p.tracker.Create(req.Source)
	jobCtx, cancel := context.WithCancelCause(p.baseCtx)
	h := &jobHandle{cancel: cancel, done: make(chan struct{})}
	p.running[jobID] = h
	p.wg.Add(1)
	p.metrics.JobStarted()

	p.logger.Info("Import job started",
		slog.String("job_id", jobID),
		slog.String("agent_id", req.AgentID),
		slog.String("source", req.Source),
	)

	go p.run(jobCtx, h, jobID, req)

	return jobID, nil
}

// Status returns the job from memory, falling back to the snapshot store
// once it has been evicted
func (p *Poller) Status(ctx context.Context, jobID string) (Job, error) {
	job, err := p.tracker.Get(jobID)
	if err == nil || !errors.Is(err, ErrJobNotFound) || p.snapshots == nil {
		return job, err
	}

	job, found, err := p.snapshots.Load(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if !found {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

// Cancel stops a job and waits for its goroutine to record the error state,
// together with whatever it had already saved. Cancelling a finished job,
// evicted ones included, returns it unchanged.
func (p *Poller) Cancel(ctx context.Context, jobID string) (Job, error) {
	p.mu.Lock()
	h, ok := p.running[jobID]
	p.mu.Unlock()
	if !ok {
		return p.Status(ctx, jobID)
	}

	h.cancel(errCancelled)

	waitCtx, cancel := context.WithTimeout(ctx, cancelWait)
	defer cancel()

	select {
	case <-h.done:
	case <-waitCtx.Done():
		p.logger.Warn("Import job did not stop in time after cancel",
			slog.String("job_id", jobID),
		)
		p.finish(jobID, Update{Status: StatusError, Message: errCancelled.Error()})
	}

	return p.tracker.Get(jobID)
}

// Shutdown interrupts every in-flight job and waits for their goroutines
func (p *Poller) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.stop(errShutdown)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Import poller stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("import poller shutdown: %w", ctx.Err())
	}
}

func (p *Poller) run(ctx context.Context, h *jobHandle, jobID string, req LaunchRequest) {
	defer p.wg.Done()
	defer close(h.done)
	defer p.forget(jobID)

	started := time.Now()

	ctx, cancel := context.WithTimeoutCause(ctx, p.cfg.PollTimeout, errPollTimeout)
	defer cancel()

	containerID, err := p.client.Launch(ctx, req.AgentID, req.Arguments)
	if err != nil {
		if ctx.Err() != nil {
			p.finishFromContext(ctx, jobID, nil)
			return
		}
		p.logger.Error("Failed to launch phantom",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		p.finish(jobID, Update{Status: StatusError, Message: fmt.Sprintf("failed to launch phantom: %v", err)})
		return
	}

	p.tracker.Update(jobID, Update{
		Status:      StatusRunning,
		Progress:    minRunningProgress,
		Message:     "Phantom launched",
		ContainerID: containerID,
	})

	transient := 0
	timer := time.NewTimer(p.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.finishFromContext(ctx, jobID, nil)
			return
		case <-timer.C:
		}

		if done := p.tick(ctx, jobID, containerID, req.Source, started, &transient); done {
			return
		}

		// Re-armed only after the tick's work, so ticks of one job never overlap
		timer.Reset(p.cfg.PollInterval)
	}
}

// tick fetches the container once and reports whether the job is finished
func (p *Poller) tick(ctx context.Context, jobID, containerID, source string, started time.Time, transient *int) bool {
	st, err := p.client.FetchStatus(ctx, containerID)
	if err != nil {
		if ctx.Err() != nil {
			p.finishFromContext(ctx, jobID, nil)
			return true
		}

		if phantombuster.IsTransient(err) {
			*transient++
			p.metrics.TransientPollError()
			p.logger.Warn("Transient error polling container",
				slog.String("job_id", jobID),
				slog.String("container_id", containerID),
				slog.Int("attempt", *transient),
				slog.String("error", err.Error()),
			)
			if *transient > p.cfg.MaxTransientRetries {
				p.finish(jobID, Update{Status: StatusError, Message: "polling exhausted"})
				return true
			}
			return false
		}

		p.finish(jobID, Update{Status: StatusError, Message: err.Error()})
		return true
	}
	*transient = 0

	switch st.State() {
	case phantombuster.StateSucceeded:
		p.collect(ctx, jobID, source, st)
		return true

	case phantombuster.StateFailed:
		p.finish(jobID, Update{Status: StatusError, Message: failureMessage(st)})
		return true

	default:
		elapsed := time.Since(started)
		p.tracker.Update(jobID, Update{
			Status:   StatusRunning,
			Progress: estimateProgress(elapsed, p.cfg.ExpectedDuration),
			Message:  runningMessage(elapsed),
		})
		return false
	}
}

// collect downloads, parses and persists the result of a successful run
func (p *Poller) collect(ctx context.Context, jobID, source string, st *phantombuster.ContainerStatus) {
	loc, ok := resolveResultURL(st)
	if !ok {
		p.logger.Warn("Phantom finished without a result file",
			slog.String("job_id", jobID),
			slog.String("container_id", st.ID),
		)
		p.finish(jobID, Update{Status: StatusCompleted, Message: NoResultMessage, Result: &Result{}})
		return
	}

	p.tracker.Update(jobID, Update{Progress: 96, Message: "Downloading results"})

	payload, err := p.client.DownloadResult(ctx, loc.URL, loc.Format)
	if err != nil {
		p.failCollect(ctx, jobID, fmt.Sprintf("failed to download results: %v", err), nil)
		return
	}

	parsed, err := leads.Parse(payload, leads.Format(loc.Format), source)
	if err != nil {
		p.failCollect(ctx, jobID, fmt.Sprintf("failed to parse results: %v", err), nil)
		return
	}

	p.tracker.Update(jobID, Update{Progress: 98, Message: "Saving leads"})

	res := &Result{Malformed: parsed.Malformed}
	for rec := range parsed.All() {
		if ctx.Err() != nil {
			p.metrics.LeadsProcessed(res.Saved, res.Skipped, res.Malformed)
			p.finishFromContext(ctx, jobID, res)
			return
		}

		inserted, err := p.sink.InsertOrSkip(ctx, rec)
		if err != nil {
			p.metrics.LeadsProcessed(res.Saved, res.Skipped, res.Malformed)
			p.failCollect(ctx, jobID, fmt.Sprintf("failed to save leads: %v", err), res)
			return
		}
		if inserted {
			res.Saved++
		} else {
			res.Skipped++
		}
	}
	p.metrics.LeadsProcessed(res.Saved, res.Skipped, res.Malformed)

	p.finish(jobID, Update{
		Status:  StatusCompleted,
		Message: fmt.Sprintf("Imported %d new leads (%d duplicates, %d malformed rows)", res.Saved, res.Skipped, res.Malformed),
		Result:  res,
	})
}

func (p *Poller) failCollect(ctx context.Context, jobID, message string, partial *Result) {
	if ctx.Err() != nil {
		p.finishFromContext(ctx, jobID, partial)
		return
	}
	p.logger.Error("Import failed",
		slog.String("job_id", jobID),
		slog.String("error", message),
	)
	p.finish(jobID, Update{Status: StatusError, Message: message, Result: partial})
}

// finishFromContext turns the cause of a stopped job context into its message
func (p *Poller) finishFromContext(ctx context.Context, jobID string, partial *Result) {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = ctx.Err()
	}
	p.finish(jobID, Update{Status: StatusError, Message: cause.Error(), Result: partial})
}

// finish applies a terminal update once; later calls are ignored
func (p *Poller) finish(jobID string, u Update) {
	job, applied := p.tracker.Update(jobID, u)
	if !applied {
		return
	}

	p.metrics.JobFinished(string(job.Status), job.FinishedAt.Sub(job.CreatedAt))

	p.logger.Info("Import job finished",
		slog.String("job_id", jobID),
		slog.String("status", string(job.Status)),
		slog.String("message", job.Message),
	)

	if p.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	if err := p.snapshots.Save(ctx, job); err != nil {
		p.logger.Warn("Failed to store job snapshot",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Poller) forget(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, jobID)
}

func failureMessage(st *phantombuster.ContainerStatus) string {
	if st.ExitCode != nil {
		return fmt.Sprintf("Phantom failed with exit code %d", *st.ExitCode)
	}
	return fmt.Sprintf("Phantom failed (status %q)", st.Status)
}
