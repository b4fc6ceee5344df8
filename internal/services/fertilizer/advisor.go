// Package fertilizer compares a soil test with a crop's nutrient needs and
// returns canned advice for the biggest imbalance.
package fertilizer

import (
	"context"
	"log"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
)

type narrator interface {
	Narrate(ctx context.Context, key entities.AdvisoryKey, text string) (string, error)
}

// Recommendation is everything the result page shows.
type Recommendation struct {
	Crop     string                   `json:"crop"`
	Required entities.CropRequirement `json:"required"`
	Delta    entities.NutrientDelta   `json:"delta"`
	Advice   Advice                   `json:"advice"`
	Audio    string                   `json:"audio,omitempty"` // web path, empty when narration failed
}

// Advisor is immutable after construction.
type Advisor struct {
	table    *Table
	cat      *Catalogue
	narrator narrator
}

// NewAdvisor wires the table and catalogue. narrator may be nil.
func NewAdvisor(t *Table, c *Catalogue, n narrator) *Advisor {
	return &Advisor{table: t, cat: c, narrator: n}
}

// Crops lists the crops the table knows, for the form.
func (a *Advisor) Crops() []string { return a.table.Crops() }

// Recommend looks the crop up, picks the dominant nutrient delta and
// returns its advice. Narration errors are logged, not returned.
func (a *Advisor) Recommend(ctx context.Context, crop string, n, p, k int) (Recommendation, error) {
	req, err := a.table.Lookup(crop)
	if err != nil {
		return Recommendation{}, err
	}
	delta := entities.Compare(req, n, p, k)
	key := delta.Key()
	adv, err := a.cat.Advice(key)
	if err != nil {
		return Recommendation{}, err
	}

	rec := Recommendation{Crop: req.Crop, Required: req, Delta: delta, Advice: adv}
	if a.narrator != nil {
		audio, err := a.narrator.Narrate(ctx, key, adv.Title+". "+adv.Plain)
		if err != nil {
			log.Printf("fertilizer: narration for %s failed: %v", key, err)
		} else {
			rec.Audio = audio
		}
	}
	return rec, nil
}
