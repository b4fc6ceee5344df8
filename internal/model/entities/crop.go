package entities

import "strings"

// CropRequirement is one row of the static nutrient table.
type CropRequirement struct {
	Crop string  `json:"crop"`
	N    float64 `json:"n"`
	P    float64 `json:"p"`
	K    float64 `json:"k"`
}

// FeatureCount is the length of the crop classifier input vector.
const FeatureCount = 7

// Features is the classifier input, in fixed order:
// N, P, K, temperature (°C), humidity (%), ph, rainfall (mm).
type Features [FeatureCount]float64

// CropPrediction is the recommended crop and the vector that produced it.
type CropPrediction struct {
	Label    string   `json:"label"`
	Features Features `json:"features"`
}

// CropLabels is the label set of the crop recommendation model.
var CropLabels = []string{
	"apple", "banana", "blackgram", "chickpea", "coconut", "coffee",
	"cotton", "grapes", "jute", "kidneybeans", "lentil", "maize",
	"mango", "mothbeans", "mungbean", "muskmelon", "orange", "papaya",
	"pigeonpeas", "pomegranate", "rice", "watermelon",
}

// CanonicalCrop returns the CropLabels entry matching name, ignoring case
// and surrounding whitespace.
func CanonicalCrop(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, l := range CropLabels {
		if l == n {
			return l, true
		}
	}
	return "", false
}
