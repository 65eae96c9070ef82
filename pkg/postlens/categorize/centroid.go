package categorize

import (
	"math"
	"sort"

	"github.com/cognicore/postlens/pkg/postlens/category"
)

// vector is a sparse L2-normalized bag of tokens.
type vector map[string]float64

func newVector(tokens []string) vector {
	v := make(vector, len(tokens))
	for _, t := range tokens {
		v[t]++
	}
	v.normalize()
	return v
}

func (v vector) normalize() {
	var sum float64
	for _, k := range v.sortedKeys() {
		sum += v[k] * v[k]
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for k, w := range v {
		v[k] = w / norm
	}
}

// dot is the cosine similarity of two normalized vectors. Sums always visit
// keys in sorted order so results are bit-identical across runs.
func (v vector) dot(o vector) float64 {
	small, large := v, o
	if len(small) > len(large) {
		small, large = large, small
	}
	var sum float64
	for _, k := range small.sortedKeys() {
		sum += small[k] * large[k]
	}
	return sum
}

func (v vector) sortedKeys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Centroids is a nearest-centroid text classifier trained from seed examples.
type Centroids struct {
	byCategory map[category.Category]vector
}

// NewCentroids averages the token vectors of each category's seed texts.
// seeds maps a category to already tokenized examples.
func NewCentroids(seeds map[category.Category][][]string) *Centroids {
	c := &Centroids{byCategory: make(map[category.Category]vector)}
	for cat, examples := range seeds {
		centroid := make(vector)
		n := 0
		for _, tokens := range examples {
			if len(tokens) == 0 {
				continue
			}
			for k, w := range newVector(tokens) {
				centroid[k] += w
			}
			n++
		}
		if n == 0 {
			continue
		}
		centroid.normalize()
		c.byCategory[cat] = centroid
	}
	return c
}

// Empty reports whether no category has a centroid.
func (c *Centroids) Empty() bool { return len(c.byCategory) == 0 }

// Similarities returns the cosine similarity of tokens to every trained category.
func (c *Centroids) Similarities(tokens []string) map[category.Category]float64 {
	out := make(map[category.Category]float64, len(c.byCategory))
	if len(tokens) == 0 {
		return out
	}
	v := newVector(tokens)
	for cat, centroid := range c.byCategory {
		out[cat] = v.dot(centroid)
	}
	return out
}
