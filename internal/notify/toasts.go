package notify

import (
	"sync"
	"time"
)

const (
	DefaultToastTTL = 4 * time.Second
	maxToasts       = 4
)

type Toast struct {
	Message
	ExpiresAt time.Time
}

// Toasts is a bounded queue of expiring messages for the console.
type Toasts struct {
	mu    sync.Mutex
	items []Toast
	ttl   time.Duration
	now   func() time.Time
}

func NewToasts(ttl time.Duration) *Toasts {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Toasts{ttl: ttl, now: time.Now}
}

func (t *Toasts) Success(message string) { t.push(Message{Level: LevelSuccess, Text: message}) }

// Errors stay twice as long as other toasts.
func (t *Toasts) Error(message string) {
	t.pushTTL(Message{Level: LevelError, Text: message}, 2*t.ttl)
}

func (t *Toasts) Info(message string, icon ...string) {
	t.push(Message{Level: LevelInfo, Text: message, Icon: firstIcon(icon)})
}

func (t *Toasts) push(m Message) {
	t.pushTTL(m, t.ttl)
}

func (t *Toasts) pushTTL(m Message, ttl time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, Toast{Message: m, ExpiresAt: t.now().Add(ttl)})
	if len(t.items) > maxToasts {
		t.items = t.items[len(t.items)-maxToasts:]
	}
}

// Active drops expired toasts and returns the rest, oldest first.
func (t *Toasts) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	kept := t.items[:0]
	for _, item := range t.items {
		if now.Before(item.ExpiresAt) {
			kept = append(kept, item)
		}
	}
	t.items = kept
	return append([]Toast(nil), kept...)
}
