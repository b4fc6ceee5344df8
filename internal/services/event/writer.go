package event

import (
	"log"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/harvestify/internal/model/messages"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Writer is the InfluxDB sink. It tracks the last asynchronous write error
// for /readyz.
type Writer struct {
	api     api.WriteAPI
	mu      sync.RWMutex
	lastErr time.Time
	errs    int64
}

// NewWriter starts draining the WriteAPI error channel.
func NewWriter(w api.WriteAPI) *Writer {
	ww := &Writer{
		api:     w,
		lastErr: time.Now().Add(-24 * time.Hour),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.mu.Lock()
				ww.lastErr = time.Now()
				ww.errs++
				ww.mu.Unlock()
				log.Printf("event: influx write error: %v", err)
			}
		}
	}()
	return ww
}

func (w *Writer) Name() string { return "influx" }

// Record queues the point; the client batches and flushes in the background.
func (w *Writer) Record(evt messages.PredictionEvent) error {
	w.api.WritePoint(EventToPoint(evt))
	return nil
}

// Flush forces pending points out, used on shutdown.
func (w *Writer) Flush() {
	if w != nil {
		w.api.Flush()
	}
}

// LastErrorAge is how long ago the last write error happened.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

// Errors counts asynchronous write failures since start.
func (w *Writer) Errors() int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.errs
}
