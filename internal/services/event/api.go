package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/harvestify/internal/model/messages"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Recent is one row of GET /predictions/recent.
type Recent struct {
	Kind    string `json:"kind"`
	Outcome string `json:"outcome"`
	Label   string `json:"label,omitempty"`
	Time    string `json:"time"` // RFC3339
}

type recentParams struct {
	Kind      string
	Minutes   int
	Limit     int
	TimeoutMS int
}

func parseRecent(r *http.Request, defMin, defLim, defTOms int) (recentParams, error) {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	p := recentParams{
		Kind:      strings.ToLower(strings.TrimSpace(q.Get("kind"))),
		Minutes:   get("minutes", defMin, 1, 7*24*60),
		Limit:     get("limit", defLim, 1, 500),
		TimeoutMS: get("timeout_ms", defTOms, 200, 5000),
	}
	switch p.Kind {
	case "", messages.KindCrop, messages.KindFertilizer, messages.KindDisease:
		return p, nil
	}
	return p, fmt.Errorf("unknown kind %q", p.Kind)
}

func buildFlux(bucket string, p recentParams) string {
	kindFilter := ""
	if p.Kind != "" {
		kindFilter = fmt.Sprintf("\n  |> filter(fn: (r) => r.kind == %q)", p.Kind)
	}
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r._field == "count")%s
  |> group()
  |> keep(columns: ["_time","kind","outcome","label"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, p.Minutes, Measurement, kindFilter, p.Limit)
}

// apiError matches the {code, message} body the web package returns.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("event: failed to encode JSON response: %v", err)
	}
}

// NewRecentHandler serves GET /predictions/recent?kind=crop&minutes=1440&limit=20.
// A failed query answers 502 rather than an empty list.
func NewRecentHandler(q api.QueryAPI, bucket string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := parseRecent(r, 1440, 20, 2000)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, apiError{Code: "validation_failed", Message: err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
		defer cancel()

		res, err := q.Query(ctx, buildFlux(bucket, p))
		if err != nil {
			log.Printf("event: recent query failed: %v", err)
			respondJSON(w, http.StatusBadGateway, apiError{Code: "upstream_unavailable", Message: "Prediction history is unavailable."})
			return
		}
		defer res.Close()

		out := make([]Recent, 0, p.Limit)
		for res.Next() {
			rec := res.Record()
			out = append(out, Recent{
				Kind:    str(rec.ValueByKey("kind")),
				Outcome: str(rec.ValueByKey("outcome")),
				Label:   str(rec.ValueByKey("label")),
				Time:    rec.Time().UTC().Format(time.RFC3339),
			})
		}
		if err := res.Err(); err != nil {
			log.Printf("event: recent query read failed: %v", err)
			respondJSON(w, http.StatusBadGateway, apiError{Code: "upstream_unavailable", Message: "Prediction history is unavailable."})
			return
		}
		respondJSON(w, http.StatusOK, out)
	})
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
