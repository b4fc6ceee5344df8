package disease

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
	"github.com/LeonardoBeccarini/harvestify/pkg/upstream"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestResizedSize(t *testing.T) {
	cases := []struct{ w, h, ww, wh int }{
		{512, 256, 512, 256},
		{640, 480, 341, 256},
		{480, 640, 256, 341},
		{100, 100, 256, 256},
	}
	for _, c := range cases {
		gw, gh := ResizedSize(c.w, c.h, TargetShort)
		if gw != c.ww || gh != c.wh {
			t.Fatalf("ResizedSize(%d,%d) = %dx%d, want %dx%d", c.w, c.h, gw, gh, c.ww, c.wh)
		}
	}
}

func TestPreprocess_LandscapeShapeAndRange(t *testing.T) {
	img, _, err := Decode(pngBytes(t, 640, 480, color.RGBA{R: 255, G: 0, B: 51, A: 255}))
	if err != nil {
		t.Fatal(err)
	}
	tensor := Preprocess(img)
	c, h, w := tensor.Shape()
	if c != 3 || h != 256 || w != 341 {
		t.Fatalf("shape = [%d][%d][%d], want [3][256][341]", c, h, w)
	}
	if got := tensor[0][10][10]; got != 1 {
		t.Fatalf("red channel = %v, want 1", got)
	}
	if got := tensor[1][10][10]; got != 0 {
		t.Fatalf("green channel = %v, want 0", got)
	}
	if got := tensor[2][100][200]; got != 0.2 {
		t.Fatalf("blue channel = %v, want 0.2", got)
	}
}

func TestDecode_SizeLimits(t *testing.T) {
	cases := []struct {
		name string
		w, h int
		ok   bool
	}{
		{"square", 64, 64, true},
		{"at aspect limit", 16, 16 * MaxAspect, true},
		{"narrow and tall", 1, 2000, false},
		{"wide and short", 4000, 100, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := Decode(pngBytes(t, c.w, c.h, color.Black))
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok && !errors.Is(err, ErrImageSize) {
				t.Fatalf("expected ErrImageSize, got %v", err)
			}
		})
	}
}

func TestPreprocess_AspectLimitBoundsTensor(t *testing.T) {
	img, _, err := Decode(pngBytes(t, 16, 16*MaxAspect, color.White))
	if err != nil {
		t.Fatal(err)
	}
	c, h, w := Preprocess(img).Shape()
	if c != 3 || w != TargetShort || h != TargetShort*MaxAspect {
		t.Fatalf("shape = [%d][%d][%d], want [3][%d][%d]", c, h, w, TargetShort*MaxAspect, TargetShort)
	}
}

func TestPreprocess_DropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 0})
		}
	}
	tensor := Preprocess(img)
	if got := tensor[0][0][0]; got != 1 {
		t.Fatalf("transparent white should stay white, got %v", got)
	}
}

func TestArgmax_TiesPickLowestIndex(t *testing.T) {
	got, err := Argmax([]float64{0.1, 0.7, 0.7, 0.2}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if _, err := Argmax([]float64{1, 2}, 38); !errors.Is(err, ErrScores) {
		t.Fatalf("expected ErrScores, got %v", err)
	}
}

func scoresFor(idx, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = -1
	}
	if idx >= 0 {
		s[idx] = 5
	}
	return s
}

func newPredictor(t *testing.T, scores []float64, details Details) *RemotePredictor {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models/plant-disease:predict" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req struct {
			Instances [][][][]float32 `json:"instances"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		} else if len(req.Instances) != 1 || len(req.Instances[0]) != 3 || len(req.Instances[0][0]) != 256 {
			t.Errorf("unexpected tensor shape")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"predictions": [][]float64{scores}})
	}))
	t.Cleanup(srv.Close)
	return NewRemotePredictor("plant-disease", upstream.New("disease", srv.URL, upstream.Options{Timeout: 5 * time.Second}), details)
}

func TestDiagnose_Success(t *testing.T) {
	p := newPredictor(t, scoresFor(29, 38), nil)
	out := p.Diagnose(context.Background(), pngBytes(t, 300, 256, color.White))
	if !out.OK() {
		t.Fatalf("expected success, got %v", out.Failure)
	}
	if out.Prediction.Label != "Tomato___Early_blight" {
		t.Fatalf("unexpected label %q", out.Prediction.Label)
	}
	if out.Prediction.Details == NoDetails || out.Prediction.Details == "" {
		t.Fatalf("expected catalogue details, got %q", out.Prediction.Details)
	}
}

func TestDiagnose_MissingDetailsFallback(t *testing.T) {
	p := newPredictor(t, scoresFor(0, 38), Details{})
	out := p.Diagnose(context.Background(), pngBytes(t, 256, 256, color.Black))
	if !out.OK() {
		t.Fatalf("expected success, got %v", out.Failure)
	}
	if out.Prediction.Details != NoDetails {
		t.Fatalf("expected fallback, got %q", out.Prediction.Details)
	}
}

func TestDiagnose_Failures(t *testing.T) {
	p := newPredictor(t, scoresFor(0, 37), nil)
	cases := []struct {
		name   string
		image  []byte
		reason Reason
		client bool
	}{
		{"empty", nil, ReasonEmpty, true},
		{"not an image", []byte("hello, not a picture"), ReasonDecode, true},
		{"extreme aspect ratio", pngBytes(t, 1, 2000, color.White), ReasonDecode, true},
		{"wrong score count", pngBytes(t, 256, 256, color.White), ReasonInference, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := p.Diagnose(context.Background(), c.image)
			if out.OK() || out.Failure == nil {
				t.Fatal("expected failure")
			}
			if out.Failure.Reason != c.reason {
				t.Fatalf("reason = %s, want %s", out.Failure.Reason, c.reason)
			}
			if out.Failure.ClientCaused() != c.client {
				t.Fatalf("ClientCaused = %v", out.Failure.ClientCaused())
			}
			if out.Failure.Message() == "" {
				t.Fatal("expected a user-facing message")
			}
		})
	}
}

func TestDefaultDetails_CoverAllClasses(t *testing.T) {
	d := DefaultDetails()
	for _, c := range entities.DiseaseClasses {
		if d.For(c) == NoDetails {
			t.Errorf("no details for %s", c)
		}
	}
}
