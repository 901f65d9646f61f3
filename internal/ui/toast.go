package ui

import (
	"sync"
	"time"
)

// ToastDuration is how long a toast stays visible
const ToastDuration = 3 * time.Second

// Toast is a transient message shown to the user
type Toast struct {
	Message   string
	ExpiresAt time.Time
}

// Toaster holds the current toast. A new toast replaces the previous one.
type Toaster struct {
	mu      sync.Mutex
	current *Toast
	ttl     time.Duration
	now     func() time.Time
}

// NewToaster creates a toaster whose toasts expire after ttl
func NewToaster(ttl time.Duration) *Toaster {
	return &Toaster{ttl: ttl, now: time.Now}
}

// Show replaces the current toast
func (t *Toaster) Show(message string) Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	toast := Toast{Message: message, ExpiresAt: t.now().Add(t.ttl)}
	t.current = &toast
	return toast
}

// Current returns the visible toast, if any
func (t *Toaster) Current() (Toast, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Toast{}, false
	}
	if !t.now().Before(t.current.ExpiresAt) {
		t.current = nil
		return Toast{}, false
	}
	return *t.current, true
}

// TTL returns the display duration
func (t *Toaster) TTL() time.Duration {
	return t.ttl
}
