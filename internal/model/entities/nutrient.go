package entities

import "math"

// Nutrient identifies one of the three macronutrients on the forms.
type Nutrient string

const (
	Nitrogen    Nutrient = "N"
	Phosphorous Nutrient = "P"
	Potassium   Nutrient = "K"
)

// Name is the human-readable nutrient name.
func (n Nutrient) Name() string {
	switch n {
	case Nitrogen:
		return "Nitrogen"
	case Phosphorous:
		return "Phosphorous"
	case Potassium:
		return "Potassium"
	}
	return string(n)
}

// AdvisoryKey selects a canned fertilizer text, e.g. "Nlow" or "KHigh".
type AdvisoryKey string

// AdvisoryKeys lists every key the advisory catalogue must provide.
var AdvisoryKeys = []AdvisoryKey{"NHigh", "Nlow", "PHigh", "Plow", "KHigh", "Klow"}

// NutrientDelta holds required minus supplied for each nutrient.
type NutrientDelta struct {
	N float64 `json:"n"`
	P float64 `json:"p"`
	K float64 `json:"k"`
}

// Compare computes required - supplied.
func Compare(req CropRequirement, n, p, k int) NutrientDelta {
	return NutrientDelta{
		N: req.N - float64(n),
		P: req.P - float64(p),
		K: req.K - float64(k),
	}
}

// Of returns the delta of a single nutrient.
func (d NutrientDelta) Of(n Nutrient) float64 {
	switch n {
	case Phosphorous:
		return d.P
	case Potassium:
		return d.K
	default:
		return d.N
	}
}

// Dominant returns the nutrient with the largest absolute delta.
// Equal magnitudes resolve N over P over K: a later nutrient only wins
// with a strictly greater magnitude.
func (d NutrientDelta) Dominant() (Nutrient, float64) {
	best, bestAbs := Nitrogen, math.Abs(d.N)
	for _, n := range []Nutrient{Phosphorous, Potassium} {
		if a := math.Abs(d.Of(n)); a > bestAbs {
			best, bestAbs = n, a
		}
	}
	return best, d.Of(best)
}

// Key maps the dominant nutrient to its advisory key. A negative delta
// means the soil already has more than the crop needs.
func (d NutrientDelta) Key() AdvisoryKey {
	n, v := d.Dominant()
	if v < 0 {
		return AdvisoryKey(string(n) + "High")
	}
	return AdvisoryKey(string(n) + "low")
}
