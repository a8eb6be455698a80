package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/repositories"
	"github.com/desertthunder/cardbox/internal/shared"
)

const historyKey = "job-history"

// maxHistory bounds the terminal-job record, newest first.
const maxHistory = 50

// Runtime is the surface a running job uses to report progress and enqueue
// follow-up work. The queue service implements it.
type Runtime interface {
	// Progress records a progress tick for the job and notifies subscribers.
	Progress(jobID string, p models.JobProgress)

	// PlaylistUpdated announces that the job persisted a playlist.
	PlaylistUpdated(e PlaylistUpdatedEvent)

	// TrackIconProcessing announces that icon mapping started for a track.
	TrackIconProcessing(e TrackIconProcessingEvent)

	// TrackIconUpdated announces a saved per-track icon assignment.
	TrackIconUpdated(e TrackIconUpdatedEvent)

	// Enqueue submits a follow-up job.
	Enqueue(req models.JobRequest, authToken string, ai models.AIConfig) (*models.Job, error)
}

// Executor runs one job to completion and returns its result.
type Executor interface {
	Execute(ctx context.Context, job *models.Job, rt Runtime) (any, error)
}

// Service owns the job queue, the single processing slot, and the terminal
// history. Exactly one worker goroutine pulls and executes jobs, so at most
// one job is ever processing; external callers only append to the queue or
// remove not-yet-started entries.
type Service struct {
	mu      sync.Mutex
	queue   []*models.Job
	current *models.Job
	history []*models.Job

	exec   Executor
	store  repositories.Store
	bus    *Bus
	logger *log.Logger

	wake    chan struct{}
	stopped chan struct{}
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a queue service. Terminal history is loaded from the
// store immediately; call Start to begin processing.
func NewService(exec Executor, store repositories.Store, logger *log.Logger) *Service {
	s := &Service{
		exec:   exec,
		store:  store,
		bus:    &Bus{},
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
	s.loadState()
	return s
}

// Events exposes the service's event bus for subscriptions.
func (s *Service) Events() *Bus {
	return s.bus
}

// Start launches the worker goroutine. Starting an already-running service is
// a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.stopped)
		s.run(ctx)
	}()
}

// Stop cancels the worker and waits for the in-flight job to return. Queued
// jobs stay queued; a later Start resumes them.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// AddJob builds a job from the request and appends it to the queue. The call
// never blocks on processing; it returns as soon as the job is queued.
func (s *Service) AddJob(req models.JobRequest, authToken string, ai models.AIConfig) (*models.Job, error) {
	job, err := NewJob(req, authToken, ai)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.queue = append(s.queue, job)
	length := len(s.queue)
	s.mu.Unlock()

	s.logger.Infof("job added to queue: %s (queue length %d)", job.ID, length)
	s.bus.emitQueueStatus(s.GetStatus())

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return job, nil
}

// Enqueue implements [Runtime] for job chaining.
func (s *Service) Enqueue(req models.JobRequest, authToken string, ai models.AIConfig) (*models.Job, error) {
	return s.AddJob(req, authToken, ai)
}

// CancelJob removes a queued job. Returns false for unknown ids and for the
// currently-processing job; running work cannot be aborted.
func (s *Service) CancelJob(jobID string) bool {
	s.mu.Lock()
	found := false
	for i, job := range s.queue {
		if job.ID == jobID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if found {
		s.logger.Infof("job canceled from queue: %s", jobID)
		s.bus.emitQueueStatus(s.GetStatus())
	}
	return found
}

// GetStatus returns a point-in-time snapshot of the queue.
func (s *Service) GetStatus() models.QueueStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.QueueStatus{
		IsProcessing: s.current != nil,
		QueueLength:  len(s.queue),
	}
	if s.current != nil {
		cp := *s.current
		status.CurrentJob = &cp
	}
	return status
}

// GetQueue returns a copy of the pending jobs in submission order.
func (s *Service) GetQueue() []models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Job, len(s.queue))
	for i, job := range s.queue {
		out[i] = *job
	}
	return out
}

// GetJobHistory returns terminal jobs, newest first, at most 50.
func (s *Service) GetJobHistory() []models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Job, len(s.history))
	for i, job := range s.history {
		out[i] = *job
	}
	return out
}

// ClearJobHistory drops all terminal records and persists the empty set.
func (s *Service) ClearJobHistory() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
	s.saveState()
}

// Progress implements [Runtime]: it mutates the current job's progress and
// notifies subscribers.
func (s *Service) Progress(jobID string, p models.JobProgress) {
	s.mu.Lock()
	if s.current != nil && s.current.ID == jobID {
		s.current.Progress = p
	}
	s.mu.Unlock()

	s.bus.emitJobProgress(ProgressEvent{JobID: jobID, Progress: p})
}

// PlaylistUpdated implements [Runtime].
func (s *Service) PlaylistUpdated(e PlaylistUpdatedEvent) {
	s.bus.emitPlaylistUpdated(e)
}

// TrackIconProcessing implements [Runtime].
func (s *Service) TrackIconProcessing(e TrackIconProcessingEvent) {
	s.bus.emitTrackProcessing(e)
}

// TrackIconUpdated implements [Runtime].
func (s *Service) TrackIconUpdated(e TrackIconUpdatedEvent) {
	s.bus.emitTrackUpdated(e)
}

// run is the single-consumer loop: pull the queue head, execute it, record
// the terminal state, repeat. Mutual exclusion is structural; only this
// goroutine touches the processing slot.
func (s *Service) run(ctx context.Context) {
	for {
		job := s.dequeue()
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}

		s.logger.Infof("processing job: %s", job.ID)
		s.bus.emitQueueStatus(s.GetStatus())
		s.Progress(job.ID, models.JobProgress{Status: "Starting job..."})

		result, err := s.exec.Execute(ctx, job, s)
		s.finish(job, result, err)

		if ctx.Err() != nil {
			return
		}
	}
}

// dequeue moves the queue head into the processing slot.
func (s *Service) dequeue() *models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return nil
	}
	job := s.queue[0]
	s.queue = s.queue[1:]
	job.Status = models.JobProcessing
	s.current = job
	return job
}

// finish records a job's terminal state, prepends it to history, and clears
// the processing slot.
func (s *Service) finish(job *models.Job, result any, err error) {
	s.mu.Lock()
	if err != nil {
		job.Status = models.JobFailed
		job.Error = err.Error()
	} else {
		job.Status = models.JobCompleted
		job.Result = result
	}

	s.history = append([]*models.Job{job}, s.history...)
	if len(s.history) > maxHistory {
		s.history = s.history[:maxHistory]
	}
	s.current = nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Errorf("job failed: %s - %v", job.ID, err)
		s.bus.emitJobFailed(*job)
	} else {
		s.logger.Infof("job completed: %s", job.ID)
		s.bus.emitJobCompleted(*job)
	}

	s.saveState()
	s.bus.emitQueueStatus(s.GetStatus())
}

// saveState persists the terminal history. The active queue is not saved;
// payloads carry credentials and are excluded from serialization.
func (s *Service) saveState() {
	s.mu.Lock()
	data, err := json.Marshal(s.history)
	s.mu.Unlock()
	if err != nil {
		s.logger.Errorf("failed to encode job history: %v", err)
		return
	}

	if err := s.store.Set(historyKey, data); err != nil {
		s.logger.Errorf("failed to save job history: %v", err)
	}
}

// loadState restores history from the store. Corrupt or missing state starts
// fresh.
func (s *Service) loadState() {
	data, err := s.store.Get(historyKey)
	if err != nil {
		if !errors.Is(err, shared.ErrCacheMiss) {
			s.logger.Errorf("failed to load job history: %v", err)
		}
		return
	}

	var history []*models.Job
	if err := json.Unmarshal(data, &history); err != nil {
		s.logger.Errorf("failed to decode job history: %v", err)
		return
	}

	s.mu.Lock()
	s.history = history
	s.mu.Unlock()
}
