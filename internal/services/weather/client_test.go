package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/harvestify/pkg/upstream"
	"github.com/google/go-cmp/cmp"
)

func newClient(t *testing.T, h http.HandlerFunc) (*OWMClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	up := upstream.New("weather", srv.URL, upstream.Options{Timeout: time.Second, Failures: 3})
	return NewOWMClient("secret", up), srv
}

func TestLookup_ConvertsKelvin(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Pune" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("appid"); got != "secret" {
			t.Errorf("appid = %q", got)
		}
		_, _ = w.Write([]byte(`{"cod":200,"main":{"temp":300.15,"humidity":65}}`))
	})

	got, ok, err := c.Lookup(context.Background(), " Pune ")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(Reading{TemperatureC: 27, HumidityPct: 65}, got); diff != "" {
		t.Fatalf("reading mismatch (-want +got):\n%s", diff)
	}
}

func TestLookup_RoundsToTwoDecimals(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cod":200,"main":{"temp":298.777,"humidity":40}}`))
	})
	got, _, err := c.Lookup(context.Background(), "Delhi")
	if err != nil {
		t.Fatal(err)
	}
	if got.TemperatureC != 25.63 {
		t.Fatalf("expected 25.63, got %v", got.TemperatureC)
	}
}

func TestLookup_UnknownCity(t *testing.T) {
	for name, h := range map[string]http.HandlerFunc{
		"cod string in 200": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
		},
		"http 404": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404"}`))
		},
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newClient(t, h)
			_, ok, err := c.Lookup(context.Background(), "Atlantis")
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if ok {
				t.Fatal("expected unavailable")
			}
		})
	}
}

func TestLookup_EmptyCityMakesNoCall(t *testing.T) {
	var hits int32
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})
	if _, _, err := c.Lookup(context.Background(), "   "); !errors.Is(err, ErrEmptyCity) {
		t.Fatalf("expected ErrEmptyCity, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("expected no upstream call, got %d", hits)
	}
}

func TestLookup_MissingKey(t *testing.T) {
	up := upstream.New("weather", "http://127.0.0.1:1", upstream.Options{})
	c := NewOWMClient("", up)
	if _, _, err := c.Lookup(context.Background(), "Pune"); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}

func TestLookup_ServerErrorIsError(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, ok, err := c.Lookup(context.Background(), "Pune")
	if err == nil || ok {
		t.Fatalf("expected error, got ok=%v err=%v", ok, err)
	}
}

func TestLookup_MalformedBody(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	if _, _, err := c.Lookup(context.Background(), "Pune"); err == nil {
		t.Fatal("expected decode error")
	}
}
