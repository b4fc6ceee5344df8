package web

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/LeonardoBeccarini/harvestify/internal/services/event"
)

// Readiness tracks which models have reported ready and whether the
// process is draining.
type Readiness struct {
	mu       sync.RWMutex
	models   map[string]bool
	probe    *event.Probe
	draining atomic.Bool
}

// NewReadiness starts with every named model not ready.
func NewReadiness(probe *event.Probe, models ...string) *Readiness {
	r := &Readiness{models: map[string]bool{}, probe: probe}
	for _, m := range models {
		r.models[m] = false
	}
	return r
}

func (r *Readiness) SetModel(name string, ready bool) {
	r.mu.Lock()
	r.models[name] = ready
	r.mu.Unlock()
}

func (r *Readiness) SetDraining() { r.draining.Store(true) }

// Ready is true when every model is ready and shutdown has not begun.
// Event sinks are reported but do not gate readiness.
func (r *Readiness) Ready() bool {
	if r.draining.Load() {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ok := range r.models {
		if !ok {
			return false
		}
	}
	return true
}

type readyReport struct {
	Ready         bool            `json:"ready"`
	Draining      bool            `json:"draining,omitempty"`
	Models        map[string]bool `json:"models"`
	MQTTConnected bool            `json:"mqtt_connected"`
	Events        event.Status    `json:"events"`
}

func (r *Readiness) report() readyReport {
	r.mu.RLock()
	models := make(map[string]bool, len(r.models))
	for k, v := range r.models {
		models[k] = v
	}
	r.mu.RUnlock()
	st := r.probe.Status()
	return readyReport{
		Ready:         r.Ready(),
		Draining:      r.draining.Load(),
		Models:        models,
		MQTTConnected: st.MQTTConnected,
		Events:        st,
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (r *Readiness) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	rep := r.report()
	status := http.StatusOK
	if !rep.Ready {
		status = http.StatusServiceUnavailable
	}
	RespondWithJSON(w, status, rep)
}
