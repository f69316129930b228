// Package typing turns keystrokes into start/stop typing notifications.
package typing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-marketplace/internal/logger"
)

const DefaultIdle = 2 * time.Second

type Notifier interface {
	StartTyping(ctx context.Context, channelID, userID string) error
	StopTyping(ctx context.Context, channelID, userID string) error
}

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc in production.
type AfterFunc func(d time.Duration, f func()) Timer

type key struct {
	channelID string
	userID    string
}

type session struct {
	timer Timer
	gen   uint64
}

type notification struct {
	ctx   context.Context
	start bool
}

// outbox holds the notifications of one key in the order their state
// changes happened. A single caller drains it at a time.
type outbox struct {
	queue    []notification
	draining bool
}

// Debouncer tracks one typing session per user and channel. The first
// keystroke of a session emits StartTyping; every keystroke re-arms the idle
// timer; StopTyping is emitted once, on expiry or on Stop/Close, whichever
// comes first. Notifications are sent outside the session lock, in order
// per key, so a slow notifier only delays its own key.
type Debouncer struct {
	notifier  Notifier
	idle      time.Duration
	afterFunc AfterFunc
	logger    *logger.Logger

	mu       sync.Mutex
	sessions map[key]*session
	outboxes map[key]*outbox
}

type Option func(*Debouncer)

func WithAfterFunc(f AfterFunc) Option {
	return func(d *Debouncer) { d.afterFunc = f }
}

func WithLogger(l *logger.Logger) Option {
	return func(d *Debouncer) { d.logger = l }
}

func NewDebouncer(notifier Notifier, idle time.Duration, opts ...Option) *Debouncer {
	if idle <= 0 {
		idle = DefaultIdle
	}
	d := &Debouncer{
		notifier: notifier,
		idle:     idle,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		logger:   logger.Nop(),
		sessions: make(map[key]*session),
		outboxes: make(map[key]*outbox),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Keystroke records an input change. Empty text is ignored. The StartTyping
// error is returned when this call delivered it.
func (d *Debouncer) Keystroke(ctx context.Context, channelID, userID, text string) error {
	if text == "" {
		return nil
	}
	k := key{channelID, userID}

	d.mu.Lock()
	if s, ok := d.sessions[k]; ok {
		s.timer.Stop()
		d.arm(k, s)
		d.mu.Unlock()
		return nil
	}
	s := &session{}
	d.sessions[k] = s
	d.arm(k, s)
	drain := d.enqueue(k, notification{ctx: ctx, start: true})
	d.mu.Unlock()

	if !drain {
		return nil
	}
	if err := d.drain(k); err != nil {
		return fmt.Errorf("start typing: %w", err)
	}
	return nil
}

// Stop ends the session right away, e.g. when the message is sent. It
// reports whether a session was active.
func (d *Debouncer) Stop(ctx context.Context, channelID, userID string) bool {
	k := key{channelID, userID}

	d.mu.Lock()
	s, ok := d.sessions[k]
	if !ok {
		d.mu.Unlock()
		return false
	}
	s.timer.Stop()
	delete(d.sessions, k)
	drain := d.enqueue(k, notification{ctx: ctx})
	d.mu.Unlock()

	if drain {
		_ = d.drain(k)
	}
	return true
}

// Active reports whether the user is currently typing in the channel.
func (d *Debouncer) Active(channelID, userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.sessions[key{channelID, userID}]
	return ok
}

// Close ends every open session.
func (d *Debouncer) Close(ctx context.Context) {
	d.mu.Lock()
	var toDrain []key
	for k, s := range d.sessions {
		s.timer.Stop()
		delete(d.sessions, k)
		if d.enqueue(k, notification{ctx: ctx}) {
			toDrain = append(toDrain, k)
		}
	}
	d.mu.Unlock()

	for _, k := range toDrain {
		_ = d.drain(k)
	}
}

// arm must be called with mu held.
func (d *Debouncer) arm(k key, s *session) {
	s.gen++
	gen := s.gen
	s.timer = d.afterFunc(d.idle, func() { d.expire(k, s, gen) })
}

func (d *Debouncer) expire(k key, s *session, gen uint64) {
	d.mu.Lock()
	// a newer keystroke or an explicit stop got here first
	if d.sessions[k] != s || s.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.sessions, k)
	drain := d.enqueue(k, notification{ctx: context.Background()})
	d.mu.Unlock()

	if drain {
		_ = d.drain(k)
	}
}

// enqueue must be called with mu held. It reports whether the caller has to
// drain the key's outbox.
func (d *Debouncer) enqueue(k key, n notification) bool {
	n.ctx = context.WithoutCancel(n.ctx)
	ob := d.outboxes[k]
	if ob == nil {
		ob = &outbox{}
		d.outboxes[k] = ob
	}
	ob.queue = append(ob.queue, n)
	if ob.draining {
		return false
	}
	ob.draining = true
	return true
}

// drain delivers queued notifications of k until the outbox is empty. It
// returns the first StartTyping error.
func (d *Debouncer) drain(k key) error {
	var startErr error
	for {
		d.mu.Lock()
		ob := d.outboxes[k]
		if len(ob.queue) == 0 {
			delete(d.outboxes, k)
			d.mu.Unlock()
			return startErr
		}
		n := ob.queue[0]
		ob.queue = ob.queue[1:]
		d.mu.Unlock()

		if err := d.emit(k, n); err != nil && n.start && startErr == nil {
			startErr = err
		}
	}
}

func (d *Debouncer) emit(k key, n notification) error {
	ctx, cancel := context.WithTimeout(n.ctx, 5*time.Second)
	defer cancel()

	if n.start {
		if err := d.notifier.StartTyping(ctx, k.channelID, k.userID); err != nil {
			d.logger.Error("TYPING", fmt.Sprintf("start typing %s/%s: %v", k.channelID, k.userID, err))
			return err
		}
		return nil
	}
	if err := d.notifier.StopTyping(ctx, k.channelID, k.userID); err != nil {
		d.logger.Error("TYPING", fmt.Sprintf("stop typing %s/%s: %v", k.channelID, k.userID, err))
		return err
	}
	return nil
}
