package stats

import (
	"fmt"
	"math"
)

// MaxBins caps the number of histogram bins
const MaxBins = 20

// Bin is one histogram bucket covering [Lower, Upper). The last bin also
// includes its upper bound.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram holds the bins for one column
type Histogram struct {
	Width float64 `json:"width"`
	Bins  []Bin   `json:"bins"`
}

// BinCount returns min(20, floor(sqrt(n)))
func BinCount(n int) int {
	if n <= 0 {
		return 0
	}
	c := int(math.Floor(math.Sqrt(float64(n))))
	if c > MaxBins {
		c = MaxBins
	}
	return c
}

// BinIndex places v into one of binCount bins of the given width starting at
// min. The result is clamped so the maximum value lands in the last bin.
func BinIndex(v, min, width float64, binCount int) int {
	if binCount <= 1 || width <= 0 {
		return 0
	}
	idx := int(math.Floor((v - min) / width))
	if idx >= binCount {
		idx = binCount - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// NewHistogram bins values. No values produce no bins; when every value is
// equal the result is a single zero-width bin holding all of them.
func NewHistogram(values []float64) Histogram {
	n := len(values)
	if n == 0 {
		return Histogram{Bins: []Bin{}}
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	binCount := BinCount(n)
	width := (max - min) / float64(binCount)
	if width == 0 {
		return Histogram{
			Width: 0,
			Bins:  []Bin{{Lower: min, Upper: max, Count: n}},
		}
	}

	bins := make([]Bin, binCount)
	for i := range bins {
		bins[i].Lower = min + float64(i)*width
		bins[i].Upper = min + float64(i+1)*width
	}
	bins[binCount-1].Upper = max

	for _, v := range values {
		bins[BinIndex(v, min, width, binCount)].Count++
	}

	return Histogram{Width: width, Bins: bins}
}

// Labels renders "lower-upper" labels for each bin
func (h Histogram) Labels() []string {
	labels := make([]string, len(h.Bins))
	for i, b := range h.Bins {
		labels[i] = fmt.Sprintf("%.2f-%.2f", b.Lower, b.Upper)
	}
	return labels
}

// Counts returns the bin counts in order
func (h Histogram) Counts() []int {
	counts := make([]int, len(h.Bins))
	for i, b := range h.Bins {
		counts[i] = b.Count
	}
	return counts
}
