package clip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jholhewres/barkeep/pkg/barkeep/session"
)

// ErrNoPendingJob is the state-conflict signal for adjust/confirm when
// no preview is pending in the channel.
var ErrNoPendingJob = errors.New("no clip job pending; run a preview first")

// ValidationError rejects a semantically invalid request (bad index, end
// before start) without touching state.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Spec describes one requested clip.
type Spec struct {
	URL     string
	Start   float64 // seconds
	End     float64 // seconds
	Quality Quality
}

// Duration returns the clip length in seconds.
func (s Spec) Duration() float64 { return s.End - s.Start }

// Estimate is the projected size of one clip against the channel limit.
type Estimate struct {
	SizeMB float64
	Fits   bool
}

// Job is a snapshot of a pending preview: the specs, their latest
// estimates, and the limit they were checked against.
type Job struct {
	ID        string
	ChannelID string
	LimitMB   float64
	Specs     []Spec
	Estimates []Estimate
	CreatedAt time.Time
}

// Adjustment carries the quality fields to change on one spec. Nil
// fields are left alone.
type Adjustment struct {
	Resolution  *int
	FPS         *int
	BitrateKbps *int
	Format      *string
}

// Result is the outcome of extracting one confirmed clip.
type Result struct {
	Index int
	Path  string
	Err   error
}

// Extractor produces a clip file on disk from a spec. Implementations
// are expected to be slow; the engine only ever calls them outside the
// channel lock.
type Extractor interface {
	Extract(ctx context.Context, spec Spec) (string, error)
}

// Engine holds at most one pending job per channel. All state
// transitions run under the shared channel lock domain; extraction runs
// after the lock is released.
type Engine struct {
	locks     *session.ChannelLocks
	extractor Extractor
	logger    *slog.Logger
	now       func() time.Time

	// mu guards the jobs map itself; the fields of a stored job are
	// guarded by the channel lock.
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewEngine creates a workflow engine using the given extractor.
func NewEngine(extractor Extractor, locks *session.ChannelLocks, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if locks == nil {
		locks = session.NewChannelLocks()
	}
	return &Engine{
		locks:     locks,
		extractor: extractor,
		logger:    logger.With("component", "clip"),
		now:       time.Now,
		jobs:      make(map[string]*Job),
	}
}

// Preview validates the specs, computes an estimate for each against
// limitMB, and stores the job as the channel's pending one, replacing
// any previous pending job. Returns the job snapshot.
func (e *Engine) Preview(channelID string, specs []Spec, limitMB float64) (Job, error) {
	if len(specs) == 0 {
		return Job{}, ValidationError("no clips requested")
	}
	for i, s := range specs {
		if s.URL == "" {
			return Job{}, ValidationError(fmt.Sprintf("clip %d has no source url", i+1))
		}
		if s.End <= s.Start {
			return Job{}, ValidationError(fmt.Sprintf("clip %d ends at %s, before its start %s",
				i+1, FormatTimecode(s.End), FormatTimecode(s.Start)))
		}
	}

	unlock := e.locks.Lock(channelID)
	defer unlock()

	job := &Job{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		LimitMB:   limitMB,
		Specs:     append([]Spec(nil), specs...),
		CreatedAt: e.now(),
	}
	job.Estimates = make([]Estimate, len(job.Specs))
	for i, s := range job.Specs {
		job.Estimates[i] = e.estimate(s, limitMB)
	}
	e.mu.Lock()
	e.jobs[channelID] = job
	e.mu.Unlock()
	e.logger.Info("clip preview staged", "channel", channelID, "job", job.ID, "clips", len(specs))
	return job.snapshot(), nil
}

// Adjust changes one pending spec's quality and recomputes only that
// spec's estimate. Valid only while a preview is pending; an
// out-of-range index changes nothing.
func (e *Engine) Adjust(channelID string, index int, adj Adjustment) (Job, error) {
	unlock := e.locks.Lock(channelID)
	defer unlock()

	job, ok := e.pending(channelID)
	if !ok {
		return Job{}, ErrNoPendingJob
	}
	if index < 0 || index >= len(job.Specs) {
		return Job{}, ValidationError(fmt.Sprintf("clip index %d out of range (job has %d)", index+1, len(job.Specs)))
	}

	q := &job.Specs[index].Quality
	if adj.Resolution != nil {
		q.Resolution = *adj.Resolution
		// An explicit bitrate no longer matches the new resolution;
		// fall back to the derived one unless it is re-pinned below.
		q.BitrateKbps = 0
	}
	if adj.FPS != nil {
		q.FPS = *adj.FPS
	}
	if adj.BitrateKbps != nil {
		q.BitrateKbps = *adj.BitrateKbps
	}
	if adj.Format != nil {
		q.Format = *adj.Format
	}
	job.Estimates[index] = e.estimate(job.Specs[index], job.LimitMB)
	return job.snapshot(), nil
}

// Confirm hands every non-skipped clip to the extractor and clears the
// pending job. Clips whose latest estimate still exceeds the limit are
// rejected up front and never reach the extractor. Per-clip outcomes
// are independent; a failed extraction does not abort the rest.
func (e *Engine) Confirm(ctx context.Context, channelID string, skipIndices []int) ([]Result, error) {
	unlock := e.locks.Lock(channelID)
	job, ok := e.pending(channelID)
	if !ok {
		unlock()
		return nil, ErrNoPendingJob
	}
	skip := make(map[int]bool, len(skipIndices))
	for _, i := range skipIndices {
		if i < 0 || i >= len(job.Specs) {
			unlock()
			return nil, ValidationError(fmt.Sprintf("skip index %d out of range (job has %d)", i+1, len(job.Specs)))
		}
		skip[i] = true
	}

	// Snapshot what to extract, then clear the job before releasing the
	// lock: the job is consumed whatever the per-clip outcomes are.
	type pending struct {
		index int
		spec  Spec
		over  bool
	}
	var work []pending
	for i, s := range job.Specs {
		if skip[i] {
			continue
		}
		work = append(work, pending{index: i, spec: s, over: !job.Estimates[i].Fits})
	}
	limit := job.LimitMB
	jobID := job.ID
	e.drop(channelID)
	unlock()

	results := make([]Result, 0, len(work))
	for _, w := range work {
		if w.over {
			results = append(results, Result{
				Index: w.index,
				Err: ValidationError(fmt.Sprintf("clip %d exceeds the %.0f MB limit; adjust quality and preview again",
					w.index+1, limit)),
			})
			continue
		}
		if e.extractor == nil {
			results = append(results, Result{Index: w.index, Err: errors.New("no extractor configured")})
			continue
		}
		path, err := e.extractor.Extract(ctx, w.spec)
		if err != nil {
			e.logger.Warn("clip extraction failed", "channel", channelID, "job", jobID, "clip", w.index, "error", err)
		}
		results = append(results, Result{Index: w.index, Path: path, Err: err})
	}
	e.logger.Info("clip job confirmed", "channel", channelID, "job", jobID, "clips", len(results))
	return results, nil
}

// Cancel discards the pending job. It always succeeds, including when
// nothing is pending.
func (e *Engine) Cancel(channelID string) {
	unlock := e.locks.Lock(channelID)
	defer unlock()
	if job, ok := e.pending(channelID); ok {
		e.logger.Info("clip job cancelled", "channel", channelID, "job", job.ID)
		e.drop(channelID)
	}
}

// Pending returns a snapshot of the channel's pending job, if any.
func (e *Engine) Pending(channelID string) (Job, bool) {
	unlock := e.locks.Lock(channelID)
	defer unlock()
	job, ok := e.pending(channelID)
	if !ok {
		return Job{}, false
	}
	return job.snapshot(), true
}

func (e *Engine) pending(channelID string) (*Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[channelID]
	return job, ok
}

func (e *Engine) drop(channelID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.jobs, channelID)
}

func (e *Engine) estimate(s Spec, limitMB float64) Estimate {
	size := EstimateSizeMB(s.Quality, s.Duration())
	return Estimate{SizeMB: size, Fits: size <= limitMB}
}

func (j *Job) snapshot() Job {
	cp := *j
	cp.Specs = append([]Spec(nil), j.Specs...)
	cp.Estimates = append([]Estimate(nil), j.Estimates...)
	return cp
}
