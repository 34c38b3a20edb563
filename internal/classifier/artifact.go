// Package classifier wraps the pre-trained fraud model artifact.
package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Artifact is a gradient-boosted tree ensemble exported to JSON at training
// time. Read-only after load; safe for concurrent use.
type Artifact struct {
	Features    []string `json:"feature_names"`
	Categorical []string `json:"categorical_features"`
	BaseScore   float64  `json:"base_score"`
	Trees       []Tree   `json:"trees"`

	categoricalSet map[string]bool
}

// Tree is one additive component of the ensemble, stored as a flat node
// array with index 0 as the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a binary split or a leaf. A split carries either a numeric
// Threshold (go left when value < threshold) or a Category (go left when
// value equals it). A node with an empty Feature is a leaf.
type Node struct {
	Feature   string   `json:"feature,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Category  string   `json:"category,omitempty"`
	Left      int      `json:"left,omitempty"`
	Right     int      `json:"right,omitempty"`
	Value     float64  `json:"value"`
}

// Load reads a model artifact from disk. A missing or malformed artifact is
// a configuration error; callers treat it as fatal at startup.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}
	if len(a.Features) == 0 {
		return nil, fmt.Errorf("model artifact %s declares no features", path)
	}

	// Trees are flat arrays with root 0; children must point strictly
	// forward, otherwise a walk could cycle.
	for ti, tree := range a.Trees {
		for ni, node := range tree.Nodes {
			if node.Feature == "" {
				continue
			}
			if node.Left <= ni || node.Left >= len(tree.Nodes) ||
				node.Right <= ni || node.Right >= len(tree.Nodes) {
				return nil, fmt.Errorf("model artifact %s: tree %d node %d has invalid child indices", path, ti, ni)
			}
		}
	}

	a.categoricalSet = make(map[string]bool, len(a.Categorical))
	for _, c := range a.Categorical {
		a.categoricalSet[c] = true
	}

	return &a, nil
}

// FeatureNames returns the ordered feature columns the model expects.
func (a *Artifact) FeatureNames() []string {
	return a.Features
}

// CategoricalFeatures returns the columns holding categories.
func (a *Artifact) CategoricalFeatures() []string {
	return a.Categorical
}

// PredictProbability walks every tree and squashes the summed margins into
// a probability.
func (a *Artifact) PredictProbability(row map[string]any) (float64, error) {
	margin := a.BaseScore
	for i, tree := range a.Trees {
		leaf, err := a.walk(tree, row)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		margin += leaf
	}
	return sigmoid(margin), nil
}

func (a *Artifact) walk(tree Tree, row map[string]any) (float64, error) {
	if len(tree.Nodes) == 0 {
		return 0, fmt.Errorf("empty tree")
	}

	// A well-formed tree reaches a leaf in at most len(nodes) steps; the
	// bound turns a malformed artifact into an error instead of a hang.
	idx := 0
	for steps := 0; steps < len(tree.Nodes); steps++ {
		if idx < 0 || idx >= len(tree.Nodes) {
			return 0, fmt.Errorf("node index %d out of range", idx)
		}
		node := tree.Nodes[idx]
		if node.Feature == "" {
			return node.Value, nil
		}

		val, ok := row[node.Feature]
		if !ok {
			return 0, fmt.Errorf("feature %q missing from row", node.Feature)
		}

		var goLeft bool
		if a.categoricalSet[node.Feature] {
			s, ok := val.(string)
			if !ok {
				return 0, fmt.Errorf("feature %q: expected string, got %T", node.Feature, val)
			}
			goLeft = s == node.Category
		} else {
			f, err := toFloat(val)
			if err != nil {
				return 0, fmt.Errorf("feature %q: %w", node.Feature, err)
			}
			if node.Threshold == nil {
				return 0, fmt.Errorf("feature %q: numeric split without threshold", node.Feature)
			}
			goLeft = f < *node.Threshold
		}

		if goLeft {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return 0, fmt.Errorf("no leaf reached after %d steps", len(tree.Nodes))
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not a numeric value: %T", v)
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
