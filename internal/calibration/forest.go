package calibration

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Node is one node of a fitted tree, stored in a flat slice. Leaves carry the
// weighted share of the positive class; interior nodes send x[Feature] <=
// Threshold to Left.
type Node struct {
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Leaf      bool    `json:"leaf,omitempty"`
	Prob      float64 `json:"p,omitempty"`
}

// Tree is a binary decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) prob(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Prob
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is a bagged ensemble of trees.
type Forest struct {
	Trees []Tree `json:"trees"`
}

// Prob returns the mean positive-class probability over all trees.
func (f Forest) Prob(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.prob(x)
	}
	return sum / float64(len(f.Trees))
}

// Predict returns the majority decision.
func (f Forest) Predict(x []float64) bool {
	return f.Prob(x) > 0.5
}

type forestParams struct {
	trees        int
	maxDepth     int
	minLeaf      int
	classWeights [2]float64
}

// classWeights returns per-class sample weights. "balanced" weighs each class
// by n / (2 * count), so both classes carry equal total weight.
func classWeights(y []int, mode string) [2]float64 {
	w := [2]float64{1, 1}
	if mode != ClassWeightBalanced {
		return w
	}
	var counts [2]int
	for _, v := range y {
		counts[v]++
	}
	for c := range w {
		if counts[c] > 0 {
			w[c] = float64(len(y)) / (2 * float64(counts[c]))
		}
	}
	return w
}

func fitForest(ds dataset, p forestParams, rng *rand.Rand) Forest {
	f := Forest{Trees: make([]Tree, 0, p.trees)}
	n := len(ds.y)
	for range p.trees {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		b := &treeBuilder{ds: ds, params: p, rng: rng}
		b.grow(sample, 0)
		f.Trees = append(f.Trees, Tree{Nodes: b.nodes})
	}
	return f
}

type treeBuilder struct {
	ds     dataset
	params forestParams
	rng    *rand.Rand
	nodes  []Node
}

type candidate struct {
	feature   int
	threshold float64
	gain      float64
}

// grow appends the subtree over idx and returns its root index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{})

	w := b.weights(idx)
	total := w[0] + w[1]
	prob := 0.0
	if total > 0 {
		prob = w[1] / total
	}

	leaf := Node{Leaf: true, Prob: prob}
	if w[0] == 0 || w[1] == 0 ||
		(b.params.maxDepth > 0 && depth >= b.params.maxDepth) ||
		len(idx) < 2*b.params.minLeaf {
		b.nodes[self] = leaf
		return self
	}

	best, ok := b.bestSplit(idx, w)
	if !ok {
		b.nodes[self] = leaf
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.ds.x[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = Node{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r}
	return self
}

func (b *treeBuilder) weights(idx []int) [2]float64 {
	var w [2]float64
	for _, i := range idx {
		c := b.ds.y[i]
		w[c] += b.params.classWeights[c]
	}
	return w
}

// bestSplit examines sqrt(features) randomly chosen features, continuing past
// that quota only while no valid split has been found.
func (b *treeBuilder) bestSplit(idx []int, parent [2]float64) (candidate, bool) {
	mtry := max(1, int(math.Sqrt(float64(numFeatures))))
	parentImpurity := gini(parent) * (parent[0] + parent[1])

	var (
		best  candidate
		found bool
	)
	for k, f := range b.rng.Perm(numFeatures) {
		if k >= mtry && found {
			break
		}
		if c, ok := b.splitOn(f, idx, parent, parentImpurity); ok && (!found || c.gain > best.gain) {
			best, found = c, true
		}
	}
	return best, found
}

func (b *treeBuilder) splitOn(f int, idx []int, parent [2]float64, parentImpurity float64) (candidate, bool) {
	sorted := make([]int, len(idx))
	copy(sorted, idx)
	sort.SliceStable(sorted, func(i, j int) bool {
		return b.ds.x[sorted[i]][f] < b.ds.x[sorted[j]][f]
	})

	var (
		left  [2]float64
		best  candidate
		found bool
		minL  = b.params.minLeaf
	)
	for pos := 0; pos < len(sorted)-1; pos++ {
		i := sorted[pos]
		c := b.ds.y[i]
		left[c] += b.params.classWeights[c]

		cur, next := b.ds.x[i][f], b.ds.x[sorted[pos+1]][f]
		if cur == next {
			continue
		}
		nLeft := pos + 1
		if nLeft < minL || len(sorted)-nLeft < minL {
			continue
		}

		right := [2]float64{parent[0] - left[0], parent[1] - left[1]}
		child := gini(left)*(left[0]+left[1]) + gini(right)*(right[0]+right[1])
		gain := parentImpurity - child
		if gain <= 1e-12 {
			continue
		}
		if !found || gain > best.gain {
			best = candidate{feature: f, threshold: (cur + next) / 2, gain: gain}
			found = true
		}
	}
	return best, found
}

func gini(w [2]float64) float64 {
	total := w[0] + w[1]
	if total == 0 {
		return 0
	}
	p0, p1 := w[0]/total, w[1]/total
	return 1 - p0*p0 - p1*p1
}
