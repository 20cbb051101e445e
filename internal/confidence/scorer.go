package confidence

import "github.com/MikeSquared-Agency/dreamseed/internal/extractor"

const (
	// Base is the score of an insight with none of the scored fields.
	Base = 0.5
	// FieldWeight is added per scored field present.
	FieldWeight = 0.1
)

// ScoredFields returns how many of the five scored fields are present:
// business name, target market, problem statement, revenue model, industry.
func ScoredFields(in extractor.Insight) int {
	n := 0
	for _, p := range []*string{in.BusinessName, in.TargetMarket, in.ProblemStatement, in.RevenueModel, in.Industry} {
		if extractor.Present(p) {
			n++
		}
	}
	return n
}

// Score returns the extraction confidence for an insight, in [Base, 1.0].
func Score(in extractor.Insight) float64 {
	// single multiply: five fields must land on exactly 1.0
	return clamp(Base + float64(ScoredFields(in))*FieldWeight)
}

func clamp(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}
