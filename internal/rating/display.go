package rating

import "math"

// MinSigma is the reference uncertainty for the stability display metric.
const MinSigma = 1.5

// SkillScore converts mu to the integer score shown in ranking tables.
func SkillScore(mu float64) int {
	return int(math.Round(mu * 25))
}

// Stability maps sigma to a percentage relative to MinSigma. Monotone
// decreasing in sigma and deliberately not clamped: values above 100 are
// valid for ratings more certain than the reference.
func Stability(sigma float64) int {
	return int(math.Round((1 / sigma) / (1 / MinSigma) * 100))
}
