package queue

import (
	"sort"
	"sync"

	"github.com/desertthunder/cardbox/internal/models"
)

// ProgressEvent carries one progress tick of a running job.
type ProgressEvent struct {
	JobID    string             `json:"jobId"`
	Progress models.JobProgress `json:"progress"`
}

// PlaylistUpdatedEvent signals that a job persisted a playlist.
type PlaylistUpdatedEvent struct {
	JobID      string         `json:"jobId"`
	PlaylistID string         `json:"playlistId"`
	JobType    models.JobType `json:"jobType"`
}

// TrackIconProcessingEvent signals that icon mapping started for a track.
type TrackIconProcessingEvent struct {
	JobID      string `json:"jobId"`
	PlaylistID string `json:"playlistId"`
	TrackKey   string `json:"trackKey"`
	TrackTitle string `json:"trackTitle"`
}

// TrackIconUpdatedEvent signals that a track's icon was assigned and saved.
type TrackIconUpdatedEvent struct {
	JobID      string `json:"jobId"`
	PlaylistID string `json:"playlistId"`
	TrackKey   string `json:"trackKey"`
	IconRef    string `json:"iconRef"`
}

// listeners is a registry of callbacks for one event type. Notification
// snapshots the callback set first, so a listener may unsubscribe (itself or
// others) mid-delivery without corrupting the registry.
type listeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

// subscribe registers fn and returns its unsubscribe handle. The handle is
// idempotent.
func (l *listeners[T]) subscribe(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

// notify invokes every registered callback with v, in subscription order,
// outside the lock.
func (l *listeners[T]) notify(v T) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Bus fans queue lifecycle events out to typed subscribers. Every OnX call
// returns an unsubscribe handle. The zero value is ready to use.
type Bus struct {
	queueStatus     listeners[models.QueueStatus]
	jobProgress     listeners[ProgressEvent]
	jobCompleted    listeners[models.Job]
	jobFailed       listeners[models.Job]
	playlistUpdated listeners[PlaylistUpdatedEvent]
	trackProcessing listeners[TrackIconProcessingEvent]
	trackUpdated    listeners[TrackIconUpdatedEvent]
}

func (b *Bus) OnQueueStatus(fn func(models.QueueStatus)) func() { return b.queueStatus.subscribe(fn) }
func (b *Bus) OnJobProgress(fn func(ProgressEvent)) func()      { return b.jobProgress.subscribe(fn) }
func (b *Bus) OnJobCompleted(fn func(models.Job)) func()        { return b.jobCompleted.subscribe(fn) }
func (b *Bus) OnJobFailed(fn func(models.Job)) func()           { return b.jobFailed.subscribe(fn) }

func (b *Bus) OnPlaylistUpdated(fn func(PlaylistUpdatedEvent)) func() {
	return b.playlistUpdated.subscribe(fn)
}

func (b *Bus) OnTrackIconProcessing(fn func(TrackIconProcessingEvent)) func() {
	return b.trackProcessing.subscribe(fn)
}

func (b *Bus) OnTrackIconUpdated(fn func(TrackIconUpdatedEvent)) func() {
	return b.trackUpdated.subscribe(fn)
}

func (b *Bus) emitQueueStatus(s models.QueueStatus)           { b.queueStatus.notify(s) }
func (b *Bus) emitJobProgress(e ProgressEvent)                { b.jobProgress.notify(e) }
func (b *Bus) emitJobCompleted(j models.Job)                  { b.jobCompleted.notify(j) }
func (b *Bus) emitJobFailed(j models.Job)                     { b.jobFailed.notify(j) }
func (b *Bus) emitPlaylistUpdated(e PlaylistUpdatedEvent)     { b.playlistUpdated.notify(e) }
func (b *Bus) emitTrackProcessing(e TrackIconProcessingEvent) { b.trackProcessing.notify(e) }
func (b *Bus) emitTrackUpdated(e TrackIconUpdatedEvent)       { b.trackUpdated.notify(e) }
