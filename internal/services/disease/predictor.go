// Package disease classifies plant-leaf images with a remote CNN.
package disease

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
	"github.com/LeonardoBeccarini/harvestify/pkg/upstream"
)

// Reason classifies why a diagnosis failed.
type Reason string

const (
	ReasonEmpty     Reason = "empty"
	ReasonDecode    Reason = "decode"
	ReasonInference Reason = "inference"
)

// Failure is the error half of an Outcome.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string { return fmt.Sprintf("diagnose (%s): %v", f.Reason, f.Err) }

func (f *Failure) Unwrap() error { return f.Err }

// Message is the text shown to the user on the form.
func (f *Failure) Message() string {
	switch f.Reason {
	case ReasonEmpty:
		return "Please choose an image file to upload."
	case ReasonDecode:
		return "The uploaded file could not be read as an image. Please upload a JPEG, PNG, GIF or WebP photo of a leaf."
	default:
		return "The disease model is unavailable right now. Please try again later."
	}
}

// ClientCaused reports whether the failure came from the uploaded file.
func (f *Failure) ClientCaused() bool { return f.Reason != ReasonInference }

// Outcome holds exactly one of Prediction or Failure.
type Outcome struct {
	Prediction *entities.DiseasePrediction
	Failure    *Failure
}

func (o Outcome) OK() bool { return o.Prediction != nil }

func failed(r Reason, err error) Outcome {
	return Outcome{Failure: &Failure{Reason: r, Err: err}}
}

// Diagnoser turns an uploaded image into an Outcome.
type Diagnoser interface {
	Diagnose(ctx context.Context, image []byte) Outcome
}

var ErrScores = errors.New("unexpected score vector")

type predictReq struct {
	Instances []Tensor `json:"instances"`
}

type predictResp struct {
	Predictions [][]float64 `json:"predictions"`
}

// RemotePredictor sends preprocessed tensors to a V1 predict endpoint.
type RemotePredictor struct {
	name    string
	up      *upstream.Upstream
	details Details
	classes []string
}

func NewRemotePredictor(modelName string, up *upstream.Upstream, details Details) *RemotePredictor {
	if details == nil {
		details = DefaultDetails()
	}
	return &RemotePredictor{name: modelName, up: up, details: details, classes: entities.DiseaseClasses}
}

func (p *RemotePredictor) Name() string { return p.name }

func (p *RemotePredictor) Diagnose(ctx context.Context, image []byte) Outcome {
	if len(image) == 0 {
		return failed(ReasonEmpty, ErrEmptyImage)
	}
	img, _, err := Decode(image)
	if err != nil {
		return failed(ReasonDecode, err)
	}

	scores, err := p.infer(ctx, Preprocess(img))
	if err != nil {
		return failed(ReasonInference, err)
	}
	idx, err := Argmax(scores, len(p.classes))
	if err != nil {
		return failed(ReasonInference, err)
	}
	label := p.classes[idx]
	return Outcome{Prediction: &entities.DiseasePrediction{Label: label, Details: p.details.For(label)}}
}

func (p *RemotePredictor) infer(ctx context.Context, t Tensor) ([]float64, error) {
	res, err := p.up.PostJSON(ctx, "/v1/models/"+p.name+":predict", predictReq{Instances: []Tensor{t}})
	if err != nil {
		return nil, fmt.Errorf("disease predict: %w", err)
	}
	if res.Status != http.StatusOK {
		return nil, fmt.Errorf("disease predict: status %d", res.Status)
	}
	var out predictResp
	if err := res.Decode(&out); err != nil {
		return nil, fmt.Errorf("disease predict decode: %w", err)
	}
	if len(out.Predictions) == 0 {
		return nil, fmt.Errorf("%w: no predictions", ErrScores)
	}
	return out.Predictions[0], nil
}

// Argmax returns the index of the highest score. Ties go to the lowest index.
func Argmax(scores []float64, want int) (int, error) {
	if len(scores) != want {
		return 0, fmt.Errorf("%w: got %d scores, want %d", ErrScores, len(scores), want)
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best, nil
}

// WaitReady polls until the model reports ready or ctx expires.
func (p *RemotePredictor) WaitReady(ctx context.Context) error {
	return upstream.WaitModel(ctx, p.up, p.name)
}
