package classifier

import (
	"math"
	"math/rand"
)

// logistic L2 正则的二分类逻辑回归
type logistic struct {
	weights []float64
	bias    float64
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// fitLogistic 确定性的全批量梯度下降，目标为 C·Σlogloss + ½‖w‖²（按 C·n 缩放），截距不参与正则
func fitLogistic(xs []sparseVector, ys []float64, dim int, opts Options) *logistic {
	m := &logistic{weights: make([]float64, dim)}
	n := float64(len(xs))
	if n == 0 {
		return m
	}
	reg := 1 / (opts.C * n)
	grad := make([]float64, dim)
	for iter := 0; iter < opts.Iterations; iter++ {
		for j := range grad {
			grad[j] = reg * m.weights[j]
		}
		var gradBias float64
		for i, x := range xs {
			residual := (sigmoid(x.dot(m.weights)+m.bias) - ys[i]) / n
			for k, j := range x.idx {
				grad[j] += residual * x.val[k]
			}
			gradBias += residual
		}
		for j := range m.weights {
			m.weights[j] -= opts.LearningRate * grad[j]
		}
		m.bias -= opts.LearningRate * gradBias
	}
	return m
}

func (m *logistic) probability(x sparseVector) float64 {
	return sigmoid(x.dot(m.weights) + m.bias)
}

func (m *logistic) accuracy(xs []sparseVector, ys []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	correct := 0
	for i, x := range xs {
		pred := 0.0
		if m.probability(x) >= 0.5 {
			pred = 1
		}
		if pred == ys[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(xs))
}

// splitIndices 固定种子打乱后切分，测试集大小为 ceil(ratio·n)
func splitIndices(n int, ratio float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	testSize := int(math.Ceil(ratio*float64(n) - 1e-9))
	if testSize > n {
		testSize = n
	}
	return perm[testSize:], perm[:testSize]
}
