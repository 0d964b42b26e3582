// Package anomaly implements an isolation forest outlier detector.
package anomaly

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultTrees         = 100
	DefaultMaxSamples    = 256
	DefaultContamination = 0.1

	eulerGamma = 0.5772156649015329
)

// ErrTooFewSamples is returned by Fit when fewer than two samples are given.
var ErrTooFewSamples = errors.New("anomaly: need at least 2 samples")

// Config holds the forest hyper-parameters. A zero Seed seeds from the clock.
type Config struct {
	Trees         int
	MaxSamples    int
	Contamination float64
	Seed          int64
}

// DefaultConfig returns 100 trees, sub-samples of at most 256 rows and a 10% contamination rate.
func DefaultConfig() Config {
	return Config{Trees: DefaultTrees, MaxSamples: DefaultMaxSamples, Contamination: DefaultContamination}
}

// Validate checks that trees and sub-sample size are positive and
// contamination lies in (0, 0.5].
func (c Config) Validate() error {
	if c.Trees <= 0 {
		return fmt.Errorf("anomaly: trees must be positive, got %d", c.Trees)
	}
	if c.MaxSamples <= 0 {
		return fmt.Errorf("anomaly: max samples must be positive, got %d", c.MaxSamples)
	}
	if c.Contamination <= 0 || c.Contamination > 0.5 {
		return fmt.Errorf("anomaly: contamination must be in (0, 0.5], got %g", c.Contamination)
	}
	return nil
}

type node struct {
	leaf      bool
	size      int
	feature   int
	threshold float64
	left      *node
	right     *node
}

// Forest is an isolation forest. Fit must be called before scoring.
type Forest struct {
	cfg       Config
	rng       *rand.Rand
	trees     []*node
	subsample int
	offset    float64
}

// NewForest validates cfg and returns an unfitted forest.
func NewForest(cfg Config) (*Forest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Forest{cfg: cfg, rng: rand.New(rand.NewSource(seed))}, nil
}

// Fit grows the trees on X (rows are samples) and sets the decision offset
// so that roughly Contamination of X is predicted as outliers.
func (f *Forest) Fit(X [][]float64) error {
	n := len(X)
	if n < 2 {
		return ErrTooFewSamples
	}
	dims := len(X[0])
	if dims == 0 {
		return errors.New("anomaly: samples have no features")
	}
	for i, row := range X {
		if len(row) != dims {
			return fmt.Errorf("anomaly: sample %d has %d features, want %d", i, len(row), dims)
		}
	}

	f.subsample = min(f.cfg.MaxSamples, n)
	maxDepth := int(math.Ceil(math.Log2(float64(max(f.subsample, 2)))))

	f.trees = make([]*node, f.cfg.Trees)
	for t := range f.trees {
		idx := f.rng.Perm(n)[:f.subsample]
		f.trees[t] = f.grow(X, idx, 0, maxDepth)
	}

	f.offset = percentile(f.ScoreSamples(X), 100*f.cfg.Contamination)
	return nil
}

func (f *Forest) grow(X [][]float64, idx []int, depth, maxDepth int) *node {
	if depth >= maxDepth || len(idx) <= 1 {
		return &node{leaf: true, size: len(idx)}
	}

	col := make([]float64, len(idx))
	for _, feat := range f.rng.Perm(len(X[idx[0]])) {
		for i, r := range idx {
			col[i] = X[r][feat]
		}
		lo, hi := floats.Min(col), floats.Max(col)
		if hi <= lo {
			continue
		}
		thr := lo + f.rng.Float64()*(hi-lo)

		var left, right []int
		for _, r := range idx {
			if X[r][feat] <= thr {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
		return &node{
			feature:   feat,
			threshold: thr,
			left:      f.grow(X, left, depth+1, maxDepth),
			right:     f.grow(X, right, depth+1, maxDepth),
		}
	}
	// every feature is constant on this node
	return &node{leaf: true, size: len(idx)}
}

func pathLength(x []float64, n *node) float64 {
	depth := 0
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is the expected path length of an unsuccessful search in
// a binary search tree of n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// ScoreSamples returns the negated anomaly score of every row: values close
// to -1 are outliers, values around -0.5 are normal.
func (f *Forest) ScoreSamples(X [][]float64) []float64 {
	norm := averagePathLength(f.subsample)
	out := make([]float64, len(X))
	for i, x := range X {
		var sum float64
		for _, t := range f.trees {
			sum += pathLength(x, t)
		}
		mean := sum / float64(len(f.trees))
		out[i] = -math.Pow(2, -mean/norm)
	}
	return out
}

// Offset is the decision threshold learned by Fit.
func (f *Forest) Offset() float64 { return f.offset }

// Predict labels each row -1 (outlier) or 1 (inlier).
func (f *Forest) Predict(X [][]float64) []int {
	scores := f.ScoreSamples(X)
	out := make([]int, len(scores))
	for i, s := range scores {
		out[i] = 1
		if s-f.offset < 0 {
			out[i] = -1
		}
	}
	return out
}

// FitPredict fits on X and predicts X.
func (f *Forest) FitPredict(X [][]float64) ([]int, error) {
	if err := f.Fit(X); err != nil {
		return nil, err
	}
	return f.Predict(X), nil
}

// percentile uses linear interpolation between closest ranks.
func percentile(xs []float64, p float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	pos := p / 100 * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return s[lo] + (pos-float64(lo))*(s[hi]-s[lo])
}
