package submission

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultBeaconTimeout bounds an abandonment delivery.
const DefaultBeaconTimeout = 10 * time.Second

// Beacon sends abandonment records in the background. Results are logged and
// never retried.
type Beacon struct {
	dispatcher Dispatcher
	timeout    time.Duration
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewBeacon(d Dispatcher, timeout time.Duration, logger *slog.Logger) *Beacon {
	if timeout <= 0 {
		timeout = DefaultBeaconTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Beacon{dispatcher: d, timeout: timeout, logger: logger}
}

// Send starts the delivery and returns immediately.
func (b *Beacon) Send(fields map[string]string) {
	if b == nil || b.dispatcher == nil {
		return
	}
	p := Payload{Fields: make(map[string]string, len(fields))}
	for k, v := range fields {
		p.Fields[k] = v
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		if err := b.dispatcher.Dispatch(ctx, p); err != nil {
			b.logger.Warn("submission: abandonment beacon failed", "error", err)
			return
		}
		b.logger.Debug("submission: abandonment beacon sent", "fields", len(p.Fields))
	}()
}

// Wait blocks until every started delivery has finished.
func (b *Beacon) Wait() {
	if b != nil {
		b.wg.Wait()
	}
}
