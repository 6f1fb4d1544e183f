package stats

import "github.com/verte-zerg/cpstest/internal/model"

// Tier labels a score band.
type Tier string

const (
	TierBeginner     Tier = "Beginner"
	TierAverage      Tier = "Average"
	TierSkilled      Tier = "Skilled"
	TierExcellent    Tier = "Excellent"
	TierProfessional Tier = "Professional"
)

var (
	mouseBands = []float64{8, 10, 12, 15}
	spaceBands = []float64{7, 9, 11, 14}
	tiers      = []Tier{TierBeginner, TierAverage, TierSkilled, TierExcellent, TierProfessional}
)

// Rate maps a final CPS to a tier. Space-bar tests use lower bands.
func Rate(v model.Variant, cps float64) Tier {
	bands := mouseBands
	if v == model.VariantSpace {
		bands = spaceBands
	}
	for i, upper := range bands {
		if cps < upper {
			return tiers[i]
		}
	}
	return tiers[len(tiers)-1]
}
