package event

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/harvestify/internal/model/messages"
	"github.com/google/go-cmp/cmp"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type memSink struct {
	name string
	err  error
	got  []messages.PredictionEvent
}

func (m *memSink) Name() string { return m.name }

func (m *memSink) Record(evt messages.PredictionEvent) error {
	m.got = append(m.got, evt)
	return m.err
}

func TestRecorder_FansOut(t *testing.T) {
	a := &memSink{name: "a"}
	b := &memSink{name: "b", err: errors.New("down")}
	r := NewRecorder(a, nil, b)

	evt := messages.NewPredictionEvent(messages.KindCrop, messages.OutcomeOK, "rice", "Pune")
	r.Record(evt)
	r.Record(messages.NewPredictionEvent(messages.KindCrop, messages.OutcomeOK, "maize", ""))

	if len(a.got) != 2 || len(b.got) != 2 {
		t.Fatalf("every sink should see every event, got %d and %d", len(a.got), len(b.got))
	}
	if diff := cmp.Diff(evt, a.got[0]); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, r.Sinks()); diff != "" {
		t.Fatalf("sinks mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.Record(messages.PredictionEvent{})
	if r.Sinks() != nil {
		t.Fatal("nil recorder has no sinks")
	}
}

func TestEventToPoint(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	evt := messages.PredictionEvent{ID: "id-1", Kind: "disease", Outcome: "failed", Detail: "inference", Timestamp: ts}
	line := write.PointToLineProtocol(EventToPoint(evt), time.Second)
	for _, want := range []string{"prediction,", "kind=disease", "outcome=failed", `detail="inference"`, "count=1i", `id="id-1"`, " 1717243200"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line protocol %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "label=") {
		t.Fatalf("empty label should not be tagged: %q", line)
	}
}

type fakePub struct {
	connected bool
	topics    []string
}

func (f *fakePub) PublishJSON(topic string, _ any) error {
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakePub) Connected() bool { return f.connected }

func TestMQTTSink_TopicPerKind(t *testing.T) {
	p := &fakePub{connected: true}
	s := NewMQTTSink(p, "")
	_ = s.Record(messages.PredictionEvent{Kind: "fertilizer"})
	_ = s.Record(messages.PredictionEvent{Kind: "crop"})
	if diff := cmp.Diff([]string{"event/prediction/fertilizer", "event/prediction/crop"}, p.topics); diff != "" {
		t.Fatalf("topics mismatch (-want +got):\n%s", diff)
	}
}

func TestProbe_DisabledSinksAreHealthy(t *testing.T) {
	if !NewProbe(nil, nil, time.Second).Status().Healthy() {
		t.Fatal("no sinks configured should be healthy")
	}
	st := NewProbe(NewMQTTSink(&fakePub{connected: false}, ""), nil, time.Second).Status()
	if st.Healthy() || !st.MQTTEnabled || st.MQTTConnected {
		t.Fatalf("disconnected mqtt should be unhealthy: %+v", st)
	}
}

func TestParseRecent(t *testing.T) {
	r := httptest.NewRequest("GET", "/predictions/recent?kind=Crop&limit=9999&minutes=0", nil)
	p, err := parseRecent(r, 1440, 20, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(recentParams{Kind: "crop", Minutes: 1, Limit: 500, TimeoutMS: 2000}, p); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
	flux := buildFlux("predictions", p)
	if !strings.Contains(flux, `r.kind == "crop"`) || !strings.Contains(flux, "limit(n:500)") {
		t.Fatalf("unexpected flux:\n%s", flux)
	}

	bad := httptest.NewRequest("GET", "/predictions/recent?kind=wheat", nil)
	if _, err := parseRecent(bad, 1440, 20, 2000); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

type fakeWriteAPI struct {
	api.WriteAPI
	errs chan error

	mu     sync.Mutex
	points []*write.Point
}

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}

func (f *fakeWriteAPI) Errors() <-chan error { return f.errs }

func TestWriter_TracksAsyncErrors(t *testing.T) {
	fw := &fakeWriteAPI{errs: make(chan error)}
	w := NewWriter(fw)

	if err := w.Record(messages.NewPredictionEvent(messages.KindDisease, messages.OutcomeOK, "Tomato___healthy", "")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	fw.mu.Lock()
	n := len(fw.points)
	fw.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected one queued point, got %d", n)
	}

	probe := NewProbe(nil, w, time.Minute)
	if st := probe.Status(); !st.InfluxOK || st.WriteErrors != 0 {
		t.Fatalf("fresh writer should be healthy, got %+v", st)
	}

	fw.errs <- errors.New("401 unauthorized")
	deadline := time.Now().Add(2 * time.Second)
	for w.Errors() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("write error was never counted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	st := probe.Status()
	if st.InfluxOK || st.WriteErrors != 1 || st.Healthy() {
		t.Fatalf("expected unhealthy influx after a write error, got %+v", st)
	}
}

type failingQueryAPI struct {
	api.QueryAPI
	err error
}

func (f failingQueryAPI) Query(context.Context, string) (*api.QueryTableResult, error) {
	return nil, f.err
}

func TestRecentHandler_Errors(t *testing.T) {
	h := NewRecentHandler(failingQueryAPI{err: errors.New("connection refused")}, "predictions")
	cases := []struct {
		target string
		status int
		code   string
	}{
		{"/predictions/recent?kind=crop", http.StatusBadGateway, "upstream_unavailable"},
		{"/predictions/recent?kind=wheat", http.StatusBadRequest, "validation_failed"},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, c.target, nil))
		if rec.Code != c.status {
			t.Fatalf("%s: expected %d, got %d", c.target, c.status, rec.Code)
		}
		var body apiError
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", c.target, err)
		}
		if body.Code != c.code || strings.Contains(body.Message, "refused") {
			t.Fatalf("%s: unexpected body %+v", c.target, body)
		}
	}
}
