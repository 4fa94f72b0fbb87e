package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Skufu/aidoctor/internal/features"
)

// Tree is one decision tree in the flat array layout of the training
// library: node i is a leaf when ChildrenLeft[i] == -1, otherwise samples with
// x[Feature[i]] <= Threshold[i] go left.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest averages the class distributions of its trees. A single-tree forest
// is a plain decision tree.
type Forest struct {
	NFeatures int      `json:"n_features"`
	Classes   []string `json:"classes"`
	Trees     []Tree   `json:"trees"`
}

// LoadForest reads and validates an exported tree ensemble.
func LoadForest(path string) (*Forest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var f Forest
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &f, nil
}

func (f *Forest) validate() error {
	if f.NFeatures <= 0 {
		return fmt.Errorf("n_features must be positive")
	}
	if len(f.Classes) == 0 {
		return fmt.Errorf("no classes")
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("no trees")
	}
	for ti, t := range f.Trees {
		n := len(t.ChildrenLeft)
		if n == 0 {
			return fmt.Errorf("tree %d: no nodes", ti)
		}
		if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
			return fmt.Errorf("tree %d: node arrays differ in length", ti)
		}
		for i := 0; i < n; i++ {
			left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
			if left == -1 {
				if right != -1 {
					return fmt.Errorf("tree %d node %d: half-leaf", ti, i)
				}
				if len(t.Value[i]) != len(f.Classes) {
					return fmt.Errorf("tree %d node %d: %d class weights, want %d", ti, i, len(t.Value[i]), len(f.Classes))
				}
				continue
			}
			// children always come after their parent, so traversal terminates
			if left <= i || left >= n || right <= i || right >= n {
				return fmt.Errorf("tree %d node %d: child index out of range", ti, i)
			}
			if t.Feature[i] < 0 || t.Feature[i] >= f.NFeatures {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, i, t.Feature[i])
			}
		}
	}
	return nil
}

// Predict returns the class with the highest mean probability. Ties go to the
// class listed first.
func (f *Forest) Predict(ctx context.Context, v features.Vector) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if v.Len() != f.NFeatures {
		return "", fmt.Errorf("vector has %d features, model expects %d", v.Len(), f.NFeatures)
	}
	x := v.Values()

	scores := make([]float64, len(f.Classes))
	for _, t := range f.Trees {
		leaf := t.leaf(x)
		var total float64
		for _, w := range t.Value[leaf] {
			total += w
		}
		if total == 0 {
			continue
		}
		for c, w := range t.Value[leaf] {
			scores[c] += w / total
		}
	}

	best := 0
	for c := 1; c < len(scores); c++ {
		if scores[c] > scores[best] {
			best = c
		}
	}
	return f.Classes[best], nil
}

func (f *Forest) Close() error { return nil }

func (t Tree) leaf(x []float32) int {
	node := 0
	for t.ChildrenLeft[node] != -1 {
		if float64(x[t.Feature[node]]) <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return node
}
