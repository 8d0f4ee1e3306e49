package ml

import (
	"errors"
	"math"
	"sort"
)

// DecisionTree is a CART regression tree stored as a flat node slice with
// the root at index 0.
type DecisionTree struct {
	nodes []TreeNode
}

// TreeNode is one node of a flat tree; children are node indices.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// NewDecisionTree validates the node list before use.
func NewDecisionTree(nodes []TreeNode) (*DecisionTree, error) {
	dt := &DecisionTree{nodes: nodes}
	if err := dt.validate(-1); err != nil {
		return nil, err
	}
	return dt, nil
}

func (dt *DecisionTree) Nodes() []TreeNode {
	return append([]TreeNode(nil), dt.nodes...)
}

// Train grows a regression tree by variance reduction, replacing any
// existing nodes.
func (dt *DecisionTree) Train(features [][]float64, targets []float64, maxDepth, minSamplesLeaf int) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if minSamplesLeaf <= 0 {
		minSamplesLeaf = 1
	}

	dt.nodes = dt.buildNode(features, targets, 0, maxDepth, minSamplesLeaf)
	return nil
}

// Predict walks from the root to a leaf.
func (dt *DecisionTree) Predict(features []float64) (float64, error) {
	if len(dt.nodes) == 0 {
		return 0, ErrNotLoaded
	}
	idx := 0
	// a valid tree reaches a leaf in at most len(nodes) steps
	for steps := 0; steps <= len(dt.nodes); steps++ {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("tree contains a cycle")
}

// validate checks child indices and, when featureCount >= 0, that every split
// refers to an existing feature.
func (dt *DecisionTree) validate(featureCount int) error {
	if len(dt.nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range dt.nodes {
		if node.IsLeaf {
			continue
		}
		if node.LeftChild <= i || node.LeftChild >= len(dt.nodes) || node.RightChild <= i || node.RightChild >= len(dt.nodes) {
			return errors.New("tree child index out of range")
		}
		if node.FeatureIdx < 0 || (featureCount >= 0 && node.FeatureIdx >= featureCount) {
			return errors.New("tree split on unknown feature")
		}
	}
	return nil
}

func (dt *DecisionTree) buildNode(features [][]float64, targets []float64, depth, maxDepth, minSamplesLeaf int) []TreeNode {
	leaf := []TreeNode{{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Value:      mean(targets),
		IsLeaf:     true,
	}}
	if depth >= maxDepth || len(targets) < 2*minSamplesLeaf || isConstant(targets) {
		return leaf
	}

	bestFeature, threshold, ok := findBestSplit(features, targets, minSamplesLeaf)
	if !ok {
		return leaf
	}

	leftFeatures, leftTargets, rightFeatures, rightTargets := splitData(features, targets, bestFeature, threshold)
	leftNodes := dt.buildNode(leftFeatures, leftTargets, depth+1, maxDepth, minSamplesLeaf)
	rightNodes := dt.buildNode(rightFeatures, rightTargets, depth+1, maxDepth, minSamplesLeaf)

	root := TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		Value:      leaf[0].Value,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, offsetNodes(leftNodes, 1)...)
	nodes = append(nodes, offsetNodes(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// offsetNodes shifts child indices of a subtree placed at position offset.
func offsetNodes(nodes []TreeNode, offset int) []TreeNode {
	out := make([]TreeNode, len(nodes))
	for i, node := range nodes {
		if !node.IsLeaf {
			node.LeftChild += offset
			node.RightChild += offset
		}
		out[i] = node
	}
	return out
}

func findBestSplit(features [][]float64, targets []float64, minSamplesLeaf int) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		left, right := splitTargets(features, targets, featureIdx, threshold)
		if len(left) < minSamplesLeaf || len(right) < minSamplesLeaf {
			continue
		}
		impurity := weightedVariance(left, right)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitData(features [][]float64, targets []float64, featureIdx int, threshold float64) ([][]float64, []float64, [][]float64, []float64) {
	leftFeatures := make([][]float64, 0)
	leftTargets := make([]float64, 0)
	rightFeatures := make([][]float64, 0)
	rightTargets := make([]float64, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftTargets = append(leftTargets, targets[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightTargets = append(rightTargets, targets[i])
		}
	}
	return leftFeatures, leftTargets, rightFeatures, rightTargets
}

func splitTargets(features [][]float64, targets []float64, featureIdx int, threshold float64) ([]float64, []float64) {
	left := make([]float64, 0)
	right := make([]float64, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			left = append(left, targets[i])
		} else {
			right = append(right, targets[i])
		}
	}
	return left, right
}

func weightedVariance(left, right []float64) float64 {
	leftWeight := float64(len(left))
	rightWeight := float64(len(right))
	total := leftWeight + rightWeight
	return (leftWeight/total)*variance(left) + (rightWeight/total)*variance(right)
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		diff := v - m
		sum += diff * diff
	}
	return sum / float64(len(values))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
