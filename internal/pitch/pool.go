package pitch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobTimeout is the per-job deadline after which the pool falls back to
// running the shift synchronously on the caller (spec.md §4.3).
const JobTimeout = 45 * time.Second

// Job is the caller-visible handle to an in-flight or finished pitch shift.
type Job struct {
	ID string

	mu       sync.Mutex
	pct      float64
	done     chan struct{}
	result   [][]float32
	err      error
	cancelled bool

	cancelOnce sync.Once
	cancelFn   func()
}

// Progress returns the last reported completion fraction in [0,1].
func (j *Job) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pct
}

func (j *Job) setProgress(pct float64) {
	j.mu.Lock()
	j.pct = pct
	j.mu.Unlock()
}

// Cancelled reports whether Cancel has been called on this job.
func (j *Job) Cancelled() bool { return j.isCancelled() }

// Cancel requests cooperative cancellation. Idempotent.
func (j *Job) Cancel() {
	j.cancelOnce.Do(func() {
		j.mu.Lock()
		j.cancelled = true
		j.mu.Unlock()
		if j.cancelFn != nil {
			j.cancelFn()
		}
	})
}

func (j *Job) isCancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

// Wait blocks until the job finishes, is cancelled, or ctx is done.
// Returns the shifted per-channel samples, or nil if cancelled.
func (j *Job) Wait(ctx context.Context) ([][]float32, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type request struct {
	job      *Job
	channels [][]float32
	semis    float64
}

// Pool is the cancellable worker pool the Granular Pitch Engine runs on.
// Pool size defaults to max(1, NumCPU-1) per spec.md §4.3. Each worker pulls
// from a shared queue; if a request's job times out before a worker claims
// it or finishes it, Submit itself runs the shift inline as a fallback so
// the caller is guaranteed eventual completion.
type Pool struct {
	queue chan request

	mu       sync.Mutex
	byTrack  map[int]*Job // at most one in-flight job per track
}

// NewPool creates a pool sized to the host's parallelism, as catnip's
// threaded processor sizes its per-channel workers.
func NewPool() *Pool {
	size := runtime.NumCPU() - 1
	if size < 1 {
		size = 1
	}
	p := &Pool{
		queue:   make(chan request, size*4),
		byTrack: make(map[int]*Job),
	}
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for req := range p.queue {
		p.run(req)
	}
}

func (p *Pool) run(req request) {
	job := req.job
	if job.isCancelled() {
		p.finish(job, nil, nil)
		return
	}

	result := ShiftBuffer(req.channels, req.semis, job.setProgress, job.isCancelled)
	if job.isCancelled() {
		p.finish(job, nil, nil)
		return
	}
	p.finish(job, result, nil)
}

func (p *Pool) finish(job *Job, result [][]float32, err error) {
	job.mu.Lock()
	select {
	case <-job.done:
		// already finished via fallback path
	default:
		job.result = result
		job.err = err
		close(job.done)
	}
	job.mu.Unlock()
}

// Submit cancels any in-flight job for trackID, then queues a new one. If
// the pool doesn't finish it within JobTimeout, Submit runs the shift
// inline on the caller's goroutine (a transparent fallback per spec.md
// §4.3 and §4.7) so the track's pitch change always completes.
func (p *Pool) Submit(ctx context.Context, trackID int, channels [][]float32, semitones float64) *Job {
	p.mu.Lock()
	if prev, ok := p.byTrack[trackID]; ok {
		prev.Cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID:       uuid.NewString(),
		done:     make(chan struct{}),
		cancelFn: cancel,
	}
	p.byTrack[trackID] = job
	p.mu.Unlock()

	select {
	case p.queue <- request{job: job, channels: channels, semis: semitones}:
	default:
		// queue full: run inline immediately rather than block the caller.
		go p.run(request{job: job, channels: channels, semis: semitones})
	}

	go p.fallbackAfterTimeout(ctx, job, channels, semitones)

	return job
}

func (p *Pool) fallbackAfterTimeout(ctx context.Context, job *Job, channels [][]float32, semitones float64) {
	timer := time.NewTimer(JobTimeout)
	defer timer.Stop()
	select {
	case <-job.done:
		return
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	if job.isCancelled() {
		return
	}
	result := ShiftBuffer(channels, semitones, job.setProgress, job.isCancelled)
	p.finish(job, result, nil)
}
