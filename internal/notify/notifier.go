package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Display shows and hides the toast banner. Its methods are called with the
// notifier's lock held and must not call back into the Notifier.
type Display interface {
	ShowToast(msg string)
	HideToast()
}

// Notifier shows one transient error at a time. A new error replaces the
// visible one and restarts the dismiss timer.
type Notifier struct {
	display Display

	mu      sync.Mutex
	delay   time.Duration
	current string
	gen     uint64 // bumped on every show/dismiss so stale timers are ignored
	timer   *time.Timer
}

// New creates a Notifier that auto-dismisses after delay.
func New(display Display, delay time.Duration) *Notifier {
	return &Notifier{display: display, delay: delay}
}

// SetDelay changes the auto-dismiss delay for subsequent errors. Non-positive
// values are ignored so a toast always expires.
func (n *Notifier) SetDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delay = d
}

// Error shows msg, replacing whatever is displayed. Empty messages are ignored.
func (n *Notifier) Error(msg string) {
	if msg == "" {
		return
	}

	slog.Warn("error shown", "msg", msg)

	// The display is driven under the lock so it always matches current.
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gen++
	gen := n.gen
	n.current = msg
	if n.timer != nil {
		n.timer.Stop()
	}
	if n.delay > 0 {
		n.timer = time.AfterFunc(n.delay, func() { n.expire(gen) })
	}
	n.display.ShowToast(msg)
}

// Dismiss hides the current message, if any.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == "" {
		return
	}
	n.gen++
	n.current = ""
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.display.HideToast()
}

// Current returns the message on screen, or "".
func (n *Notifier) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Close stops the pending timer without touching the display.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notifier) expire(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if gen != n.gen {
		return
	}
	n.gen++
	n.current = ""
	n.timer = nil
	n.display.HideToast()
}
