// Package event records one PredictionEvent per handled prediction in
// InfluxDB and/or on the MQTT broker.
package event

import (
	"log"

	"github.com/LeonardoBeccarini/harvestify/internal/model/messages"
)

// Sink receives prediction events. Record must not block for long.
type Sink interface {
	Name() string
	Record(evt messages.PredictionEvent) error
}

// Recorder fans an event out to every sink. A nil Recorder drops events.
type Recorder struct {
	sinks []Sink
}

func NewRecorder(sinks ...Sink) *Recorder {
	r := &Recorder{}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// Record never fails the caller; sink errors are logged.
func (r *Recorder) Record(evt messages.PredictionEvent) {
	if r == nil {
		return
	}
	for _, s := range r.sinks {
		if err := s.Record(evt); err != nil {
			log.Printf("event: %s sink dropped %s/%s: %v", s.Name(), evt.Kind, evt.Outcome, err)
		}
	}
}

// Sinks names the enabled sinks.
func (r *Recorder) Sinks() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		out[i] = s.Name()
	}
	return out
}
