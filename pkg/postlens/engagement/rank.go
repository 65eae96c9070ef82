package engagement

import "sort"

// Key is what ranking looks at for one item.
type Key struct {
	Rate    float64
	Ordinal int
	Scored  bool
}

// Rank orders items by descending rate; equal rates keep ingestion order.
// Unscored items follow all scored ones, in ingestion order. The input slice
// is not modified.
func Rank[T any](items []T, key func(T) Key) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := key(out[i]), key(out[j])
		if ki.Scored != kj.Scored {
			return ki.Scored
		}
		if ki.Scored && ki.Rate != kj.Rate {
			return ki.Rate > kj.Rate
		}
		return ki.Ordinal < kj.Ordinal
	})
	return out
}
