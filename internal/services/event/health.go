package event

import "time"

// Status summarises the sinks for /readyz.
type Status struct {
	MQTTEnabled     bool    `json:"mqtt_enabled"`
	MQTTConnected   bool    `json:"mqtt_connected"`
	InfluxEnabled   bool    `json:"influx_enabled"`
	InfluxOK        bool    `json:"influx_ok"`
	LastWriteErrorS float64 `json:"last_write_error_age_sec,omitempty"`
	WriteErrors     int64   `json:"influx_write_errors,omitempty"`
}

// Probe reads sink health. Either sink may be nil when disabled.
type Probe struct {
	mqtt     *MQTTSink
	writer   *Writer
	minError time.Duration
}

// NewProbe treats Influx as unhealthy while its last write error is younger than minOkErrorAge.
func NewProbe(m *MQTTSink, w *Writer, minOkErrorAge time.Duration) *Probe {
	return &Probe{mqtt: m, writer: w, minError: minOkErrorAge}
}

func (p *Probe) Status() Status {
	if p == nil {
		return Status{}
	}
	st := Status{
		MQTTEnabled:   p.mqtt != nil,
		MQTTConnected: p.mqtt.Connected(),
		InfluxEnabled: p.writer != nil,
	}
	if p.writer != nil {
		age := p.writer.LastErrorAge()
		st.InfluxOK = age > p.minError
		st.LastWriteErrorS = age.Seconds()
		st.WriteErrors = p.writer.Errors()
	}
	return st
}

// Healthy is true when every enabled sink is working. Disabled sinks do not count.
func (s Status) Healthy() bool {
	return (!s.MQTTEnabled || s.MQTTConnected) && (!s.InfluxEnabled || s.InfluxOK)
}
