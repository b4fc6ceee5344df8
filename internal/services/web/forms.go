package web

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
)

// ValidationError names the first form field that failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field '%s': %s", e.Field, e.Reason)
}

// CropForm is the POST /crop-predict body.
type CropForm struct {
	Nitrogen    int
	Phosphorous int
	Potassium   int
	PH          float64
	Rainfall    float64
	City        string
}

func (f CropForm) Sample() entities.SoilSample {
	return entities.SoilSample{
		Nitrogen:    f.Nitrogen,
		Phosphorous: f.Phosphorous,
		Potassium:   f.Potassium,
		PH:          f.PH,
		Rainfall:    f.Rainfall,
		Location:    f.City,
	}
}

// FertilizerForm is the POST /fertilizer-predict body.
type FertilizerForm struct {
	Crop        string
	Nitrogen    int
	Phosphorous int
	Potassium   int
}

// maxFormBytes bounds the prediction form bodies.
const maxFormBytes = 64 << 10

// formReader reads fields in order and keeps the first failure.
type formReader struct {
	r   *http.Request
	err *ValidationError
}

// newFormReader parses the body once. An oversized body keeps its
// *http.MaxBytesError; any other parse failure is a ValidationError.
func newFormReader(r *http.Request) (*formReader, error) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxFormBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, err
		}
		return nil, &ValidationError{Field: "body", Reason: "is not a valid form"}
	}
	return &formReader{r: r}, nil
}

func (fr *formReader) raw(name string) (string, bool) {
	if fr.err != nil {
		return "", false
	}
	v := strings.TrimSpace(fr.r.PostForm.Get(name))
	if v == "" {
		fr.err = &ValidationError{Field: name, Reason: "is required"}
		return "", false
	}
	return v, true
}

func (fr *formReader) str(name string) string {
	v, _ := fr.raw(name)
	return v
}

func (fr *formReader) integer(name string) int {
	v, ok := fr.raw(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fr.err = &ValidationError{Field: name, Reason: "must be an integer"}
	}
	return n
}

func (fr *formReader) number(name string) float64 {
	v, ok := fr.raw(name)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		fr.err = &ValidationError{Field: name, Reason: "must be a number"}
	}
	return f
}

func (fr *formReader) done() error {
	if fr.err != nil {
		return fr.err
	}
	return nil
}

// Wire names keep the historical spelling ("pottasium").
func ParseCropForm(r *http.Request) (CropForm, error) {
	fr, err := newFormReader(r)
	if err != nil {
		return CropForm{}, err
	}
	f := CropForm{
		Nitrogen:    fr.integer("nitrogen"),
		Phosphorous: fr.integer("phosphorous"),
		Potassium:   fr.integer("pottasium"),
		PH:          fr.number("ph"),
		Rainfall:    fr.number("rainfall"),
		City:        fr.str("city"),
	}
	return f, fr.done()
}

func ParseFertilizerForm(r *http.Request) (FertilizerForm, error) {
	fr, err := newFormReader(r)
	if err != nil {
		return FertilizerForm{}, err
	}
	f := FertilizerForm{
		Crop:        fr.str("cropname"),
		Nitrogen:    fr.integer("nitrogen"),
		Phosphorous: fr.integer("phosphorous"),
		Potassium:   fr.integer("pottasium"),
	}
	return f, fr.done()
}
