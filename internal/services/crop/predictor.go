// Package crop recommends a crop from soil and weather features using a
// remote tabular model.
package crop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
	"github.com/LeonardoBeccarini/harvestify/internal/services/weather"
	"github.com/LeonardoBeccarini/harvestify/pkg/upstream"
)

var ErrBadPrediction = errors.New("crop model returned an unusable prediction")

// Predictor is satisfied by anything that maps a feature vector to a crop label.
type Predictor interface {
	Predict(ctx context.Context, f entities.Features) (string, error)
}

// FeaturesFrom builds the vector in model order: N, P, K, temperature,
// humidity, ph, rainfall.
func FeaturesFrom(s entities.SoilSample, r weather.Reading) entities.Features {
	return entities.Features{
		float64(s.Nitrogen),
		float64(s.Phosphorous),
		float64(s.Potassium),
		r.TemperatureC,
		float64(r.HumidityPct),
		s.PH,
		s.Rainfall,
	}
}

type predictReq struct {
	Instances [][entities.FeatureCount]float64 `json:"instances"`
}

type predictResp struct {
	Predictions []json.RawMessage `json:"predictions"`
}

// RemotePredictor calls a model server speaking the V1 predict protocol.
// It holds no per-request state.
type RemotePredictor struct {
	name string
	up   *upstream.Upstream
}

func NewRemotePredictor(modelName string, up *upstream.Upstream) *RemotePredictor {
	return &RemotePredictor{name: modelName, up: up}
}

func (p *RemotePredictor) Name() string { return p.name }

func (p *RemotePredictor) Predict(ctx context.Context, f entities.Features) (string, error) {
	res, err := p.up.PostJSON(ctx, "/v1/models/"+p.name+":predict", predictReq{
		Instances: [][entities.FeatureCount]float64{f},
	})
	if err != nil {
		return "", fmt.Errorf("crop predict: %w", err)
	}
	if res.Status != http.StatusOK {
		return "", fmt.Errorf("crop predict: status %d", res.Status)
	}
	var out predictResp
	if err := res.Decode(&out); err != nil {
		return "", fmt.Errorf("crop predict decode: %w", err)
	}
	if len(out.Predictions) == 0 {
		return "", fmt.Errorf("%w: empty predictions", ErrBadPrediction)
	}
	return labelOf(out.Predictions[0])
}

// labelOf accepts a label string or a class index into CropLabels.
func labelOf(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if l, ok := entities.CanonicalCrop(s); ok {
			return l, nil
		}
		return "", fmt.Errorf("%w: unknown label %q", ErrBadPrediction, s)
	}
	var idx float64
	if err := json.Unmarshal(raw, &idx); err == nil {
		i := int(idx)
		if float64(i) == idx && i >= 0 && i < len(entities.CropLabels) {
			return entities.CropLabels[i], nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrBadPrediction, strings.TrimSpace(string(raw)))
}

// WaitReady polls until the model reports ready or ctx expires.
func (p *RemotePredictor) WaitReady(ctx context.Context) error {
	return upstream.WaitModel(ctx, p.up, p.name)
}
