package batch

import (
	"math"
	"slices"
)

// LengthStats summarizes chunk lengths in characters.
type LengthStats struct {
	// Count is the number of chunks measured.
	Count int `json:"count"`
	// Min is the shortest chunk length.
	Min int `json:"min"`
	// Max is the longest chunk length.
	Max int `json:"max"`
	// Mean is the mean chunk length, rounded to two decimals.
	Mean float64 `json:"mean"`
	// P95 is the 95th percentile chunk length.
	P95 int `json:"p95"`
}

// ComputeLengthStats computes min, max, mean, and p95 from chunk lengths.
func ComputeLengthStats(lengths []int) LengthStats {
	if len(lengths) == 0 {
		return LengthStats{}
	}

	sorted := slices.Clone(lengths)
	slices.Sort(sorted)

	sum := 0
	for _, n := range sorted {
		sum += n
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	p95Index = max(0, min(p95Index, len(sorted)-1))

	return LengthStats{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  math.Round(mean*100) / 100,
		P95:   sorted[p95Index],
	}
}
