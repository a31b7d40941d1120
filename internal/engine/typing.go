package engine

import (
	"log"
	"sync"
	"time"

	"chat-sync/internal/realtime"
)

// DefaultTypingIdle is how long after the last keystroke the off-signal is
// emitted automatically.
const DefaultTypingIdle = time.Second

// TypingNotifier owns the typing indicator timing on the producing side. The
// store and the ingestor treat typing as a pure boolean set, so someone has
// to guarantee every on-signal is eventually followed by an off-signal; that
// someone is this timer.
type TypingNotifier struct {
	channel realtime.Channel
	idle    time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTypingNotifier builds a notifier with the given idle window; zero means
// DefaultTypingIdle.
func NewTypingNotifier(channel realtime.Channel, idle time.Duration) *TypingNotifier {
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	return &TypingNotifier{
		channel: channel,
		idle:    idle,
		timers:  make(map[string]*time.Timer),
	}
}

// Keystroke signals typing-active and re-arms the idle timer that will emit
// the off-signal if no further keystroke arrives.
func (t *TypingNotifier) Keystroke(conversationID string) {
	if err := t.channel.SendTyping(conversationID, true); err != nil {
		log.Printf("typing signal: %v", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[conversationID]; ok {
		timer.Stop()
	}
	t.timers[conversationID] = time.AfterFunc(t.idle, func() {
		t.Stop(conversationID)
	})
}

// Stop cancels the idle timer and signals typing-inactive immediately.
func (t *TypingNotifier) Stop(conversationID string) {
	t.mu.Lock()
	if timer, ok := t.timers[conversationID]; ok {
		timer.Stop()
		delete(t.timers, conversationID)
	}
	t.mu.Unlock()

	if err := t.channel.SendTyping(conversationID, false); err != nil {
		log.Printf("typing signal: %v", err)
	}
}

// Close cancels all pending timers.
func (t *TypingNotifier) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
