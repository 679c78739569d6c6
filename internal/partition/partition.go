// Package partition splits an item collection into train, validation and test subsets.
package partition

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/agleyzer/vidset/internal/faults"
)

// Subset labels, also used as directory names.
const (
	Train = "train"
	Val   = "val"
	Test  = "test"
)

// Ratios are the requested subset fractions. Only Train and Val determine subset sizes; Test
// receives whatever remains after both are floored.
type Ratios struct {
	Train float64
	Val   float64
	Test  float64
}

// Validate requires every ratio to lie in [0, 1]. The sum is not enforced.
func (r Ratios) Validate() error {
	for _, v := range []struct {
		name  string
		ratio float64
	}{
		{Train, r.Train},
		{Val, r.Val},
		{Test, r.Test},
	} {
		if math.IsNaN(v.ratio) || v.ratio < 0 || v.ratio > 1 {
			return fmt.Errorf("%w: %s ratio %v outside [0,1]", faults.ErrConfiguration, v.name, v.ratio)
		}
	}
	return nil
}

// Sum returns Train+Val+Test.
func (r Ratios) Sum() float64 {
	return r.Train + r.Val + r.Test
}

// Split holds three disjoint subsets that together cover the input exactly once.
type Split struct {
	Train []string
	Val   []string
	Test  []string
}

// Len returns the total number of items across all subsets.
func (s Split) Len() int {
	return len(s.Train) + len(s.Val) + len(s.Test)
}

// Subset pairs a label with its items.
type Subset struct {
	Label string
	Items []string
}

// Subsets returns the subsets in materialization order: train, val, test.
func (s Split) Subsets() []Subset {
	return []Subset{
		{Label: Train, Items: s.Train},
		{Label: Val, Items: s.Val},
		{Label: Test, Items: s.Test},
	}
}

// Partitioner shuffles with an injected random source so that splits can be reproduced.
type Partitioner struct {
	rng *rand.Rand
}

// New creates a partitioner drawing from rng. A nil rng is seeded from the clock.
func New(rng *rand.Rand) *Partitioner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Partitioner{rng: rng}
}

// NewSeeded creates a partitioner whose splits are fully determined by seed.
func NewSeeded(seed int64) *Partitioner {
	return New(rand.New(rand.NewSource(seed)))
}

// Split shuffles a copy of items and cuts it at floor(M*Train) and floor(M*Train)+floor(M*Val).
// The test subset absorbs the rounding remainder regardless of r.Test. Cut points are clamped to
// M when the ratios sum to more than one.
func (p *Partitioner) Split(items []string, r Ratios) (Split, error) {
	if err := r.Validate(); err != nil {
		return Split{}, err
	}

	shuffled := make([]string, len(items))
	copy(shuffled, items)
	p.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	total := len(shuffled)
	trainEnd := min(floorCount(total, r.Train), total)
	valEnd := min(trainEnd+floorCount(total, r.Val), total)

	return Split{
		Train: shuffled[:trainEnd:trainEnd],
		Val:   shuffled[trainEnd:valEnd:valEnd],
		Test:  shuffled[valEnd:],
	}, nil
}

func floorCount(total int, ratio float64) int {
	return int(math.Floor(float64(total) * ratio))
}
