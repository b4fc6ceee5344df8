package event

import (
	"github.com/LeonardoBeccarini/harvestify/internal/model/messages"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement is the InfluxDB measurement holding prediction events.
const Measurement = "prediction"

// EventToPoint maps a PredictionEvent to a point: kind, outcome and label
// are tags, the rest are fields.
func EventToPoint(evt messages.PredictionEvent) *write.Point {
	tags := map[string]string{
		"kind":    evt.Kind,
		"outcome": evt.Outcome,
	}
	if evt.Label != "" {
		tags["label"] = evt.Label
	}

	fields := map[string]interface{}{
		"count": int64(1),
		"id":    evt.ID,
	}
	if evt.Detail != "" {
		fields["detail"] = evt.Detail
	}
	return influxdb2.NewPoint(Measurement, tags, fields, evt.Timestamp)
}
