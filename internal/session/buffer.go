// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotRecording = errors.New("no session is recording")

// DefaultSubscriberBuffer is the channel depth given to subscribers that
// ask for none.
const DefaultSubscriberBuffer = 64

// Buffer owns the live session and its subscribers. Append is the only
// place samples enter; it updates the maxima and publishes under the same
// lock so subscribers never see maxima that disagree with the sample.
type Buffer struct {
	log *zap.Logger
	now func() time.Time

	mu         sync.Mutex
	live       Session
	last       Session
	haveLast   bool
	lastSample DerivedSample
	subs       map[int]chan Event
	nextID     int
	dropped    uint64
}

func NewBuffer(log *zap.Logger) *Buffer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Buffer{
		log:  log,
		now:  time.Now,
		subs: make(map[int]chan Event),
	}
}

// Start clears the live buffer, zeroes the maxima and begins recording.
// The last completed session is left untouched.
func (b *Buffer) Start() Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.live = Session{
		ID:        uuid.NewString(),
		State:     Recording,
		StartedAt: b.now(),
	}
	b.log.Info("session started", zap.String("session_id", b.live.ID))
	return b.live.clone()
}

// Append adds s to the live buffer and publishes it.
func (b *Buffer) Append(s DerivedSample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := &b.live.MaxAngles
	m.Hip = math.Max(m.Hip, s.Hip)
	m.Knee = math.Max(m.Knee, s.Knee)
	m.Ankle = math.Max(m.Ankle, s.Ankle)

	b.live.Samples = append(b.live.Samples, s)
	b.lastSample = s
	b.publishLocked(newEvent(s, *m))
}

// Stop freezes the live buffer into the last-completed slot, clears the
// live buffer and returns the frozen copy.
func (b *Buffer) Stop() (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.live.State != Recording {
		return Session{}, ErrNotRecording
	}

	frozen := b.live.clone()
	frozen.State = Stopped
	frozen.StoppedAt = b.now()
	b.last = frozen
	b.haveLast = true

	b.live = Session{ID: frozen.ID, State: Stopped, StartedAt: frozen.StartedAt, StoppedAt: frozen.StoppedAt}
	b.log.Info("session stopped",
		zap.String("session_id", frozen.ID),
		zap.Int("samples", len(frozen.Samples)),
		zap.Duration("duration", frozen.StoppedAt.Sub(frozen.StartedAt)))
	return frozen.clone(), nil
}

// ResetMaxima zeroes the running maxima without touching the samples and
// tells subscribers to reset their peak displays.
func (b *Buffer) ResetMaxima() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.live.MaxAngles = Angles{}
	ev := newEvent(b.lastSample, Angles{})
	ev.Reset = true
	b.publishLocked(ev)
}

// Current returns a copy of the live session.
func (b *Buffer) Current() Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live.clone()
}

// LastCompleted returns a copy of the most recently stopped session.
func (b *Buffer) LastCompleted() (Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.haveLast {
		return Session{}, false
	}
	return b.last.clone(), true
}

func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live.State
}

// Subscribe registers a live consumer. Events that do not fit in the
// channel are dropped for that subscriber.
func (b *Buffer) Subscribe(buffer int) (int, <-chan Event) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Buffer) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

// Dropped counts events discarded because a subscriber was full.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Buffer) publishLocked(ev Event) {
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// slow subscriber, never stall ingestion
			b.dropped++
		}
	}
}

// Run appends every sample received on in until the channel closes or ctx
// is done.
func (b *Buffer) Run(ctx context.Context, in <-chan DerivedSample) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-in:
			if !ok {
				return nil
			}
			b.Append(s)
		}
	}
}

// Close unsubscribes everyone.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
