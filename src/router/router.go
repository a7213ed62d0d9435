package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"screen-translate-overlay/src/messages"
)

// ErrUnknownWindow is returned when the target window is no longer registered.
// Callers treat it as a no-op: it is how stale worker callbacks are cancelled.
var ErrUnknownWindow = errors.New("unknown window")

const defaultSendTimeout = 5 * time.Second

// inbox holds information about a window channel
type inbox struct {
	ch   chan messages.Message
	done chan struct{}
}

// Router delivers messages from worker goroutines to window inboxes.
type Router struct {
	inboxes     map[messages.WindowID]*inbox
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	sendTimeout time.Duration
	logMessages bool
}

// NewRouter creates a new message router
func NewRouter() *Router {
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		inboxes:     make(map[messages.WindowID]*inbox),
		ctx:         ctx,
		cancel:      cancel,
		sendTimeout: defaultSendTimeout,
	}
}

// Register creates the inbox for a window.
func (r *Router) Register(id messages.WindowID, bufferSize int) (<-chan messages.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.inboxes[id]; exists {
		return nil, fmt.Errorf("window %s already registered", id)
	}

	ib := &inbox{
		ch:   make(chan messages.Message, bufferSize),
		done: make(chan struct{}),
	}
	r.inboxes[id] = ib

	log.Printf("Router: Registered %s with buffer size %d", id, bufferSize)
	return ib.ch, nil
}

// Unregister removes a window. The inbox channel is left open so in-flight
// senders never panic; they observe done instead.
func (r *Router) Unregister(id messages.WindowID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ib, exists := r.inboxes[id]; exists {
		close(ib.done)
		delete(r.inboxes, id)
		log.Printf("Router: Unregistered %s", id)
	}
}

// Send delivers a message to one window, waiting up to the send timeout when
// the inbox is full.
func (r *Router) Send(id messages.WindowID, msg messages.Message) error {
	r.mu.RLock()
	ib, exists := r.inboxes[id]
	logMessages := r.logMessages
	r.mu.RUnlock()

	if !exists {
		return ErrUnknownWindow
	}
	if logMessages {
		log.Printf("Router: -> %s: %s", id, msg.Type())
	}

	select {
	case ib.ch <- msg:
		return nil
	default:
	}

	timer := time.NewTimer(r.sendTimeout)
	defer timer.Stop()

	select {
	case ib.ch <- msg:
		return nil
	case <-ib.done:
		return ErrUnknownWindow
	case <-timer.C:
		return fmt.Errorf("timeout sending %s to %s", msg.Type(), id)
	case <-r.ctx.Done():
		return fmt.Errorf("router is shutting down")
	}
}

// Broadcast sends a message to every registered window and returns how many
// accepted it.
func (r *Router) Broadcast(build func(id messages.WindowID) messages.Message) int {
	delivered := 0
	for _, id := range r.Active() {
		if err := r.Send(id, build(id)); err == nil {
			delivered++
		}
	}
	return delivered
}

// Active returns the registered window ids.
func (r *Router) Active() []messages.WindowID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]messages.WindowID, 0, len(r.inboxes))
	for id := range r.inboxes {
		active = append(active, id)
	}
	return active
}

// Stats returns queued message counts per window.
func (r *Router) Stats() map[messages.WindowID]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[messages.WindowID]int, len(r.inboxes))
	for id, ib := range r.inboxes {
		stats[id] = len(ib.ch)
	}
	return stats
}

// SetMessageLogging enables or disables message logging
func (r *Router) SetMessageLogging(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logMessages = enabled
}

// Shutdown unblocks pending senders and forgets every inbox.
func (r *Router) Shutdown() {
	log.Printf("Router: Shutting down...")
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ib := range r.inboxes {
		close(ib.done)
		delete(r.inboxes, id)
	}
	log.Printf("Router: Shutdown complete")
}

// Drain pulls every queued message without blocking.
func Drain(ch <-chan messages.Message) []messages.Message {
	var out []messages.Message
	for {
		select {
		case msg := <-ch:
			out = append(out, msg)
		default:
			return out
		}
	}
}
