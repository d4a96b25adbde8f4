package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers a line of text to the administrators.
type Notifier func(ctx context.Context, text string) error

// TelegramHook forwards error level events to the admin chat. Events are
// queued and dropped when the queue is full so logging never blocks.
type TelegramHook struct {
	notify Notifier
	queue  chan string
	done   chan struct{}
	once   sync.Once
}

func NewTelegramHook(notify Notifier, queueSize int) *TelegramHook {
	h := &TelegramHook{
		notify: notify,
		queue:  make(chan string, queueSize),
		done:   make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *TelegramHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level < zerolog.ErrorLevel || msg == "" {
		return
	}
	select {
	case h.queue <- fmt.Sprintf("⚠️ [%s] %s", level, msg):
	default:
	}
}

func (h *TelegramHook) loop() {
	defer close(h.done)
	for text := range h.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := h.notify(ctx, text); err != nil {
			fmt.Fprintln(os.Stderr, "admin notification failed:", err)
		}
		cancel()
	}
}

// Close flushes queued notifications and stops the worker.
func (h *TelegramHook) Close() {
	h.once.Do(func() { close(h.queue) })
	<-h.done
}
