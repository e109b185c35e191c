package classifier

// Options 训练与预测参数
type Options struct {
	MaxFeatures        int     // TF-IDF 特征上限
	MinPositives       int     // 单个技能最少正样本数
	MinAccuracy        float64 // 保留分类器所需的留出集准确率（严格大于）
	Threshold          float64 // 预测概率阈值（严格大于）
	FallbackConfidence float64 // 单技能评分出错时子串命中的置信度
	TestRatio          float64
	Seed               int64
	Iterations         int
	LearningRate       float64
	C                  float64 // L2 正则强度的倒数
	TopN               int
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		MaxFeatures:        5000,
		MinPositives:       2,
		MinAccuracy:        0.6,
		Threshold:          0.3,
		FallbackConfidence: 0.5,
		TestRatio:          0.2,
		Seed:               42,
		Iterations:         300,
		LearningRate:       1.0,
		C:                  1.0,
		TopN:               10,
	}
}

// Option 函数式选项
type Option func(*Options)

// WithMaxFeatures 设置特征上限
func WithMaxFeatures(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxFeatures = n
		}
	}
}

// WithMinPositives 设置最少正样本数
func WithMinPositives(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MinPositives = n
		}
	}
}

// WithMinAccuracy 设置准确率门槛
func WithMinAccuracy(acc float64) Option {
	return func(o *Options) {
		if acc >= 0 && acc <= 1 {
			o.MinAccuracy = acc
		}
	}
}

// WithThreshold 设置预测概率阈值
func WithThreshold(t float64) Option {
	return func(o *Options) {
		if t >= 0 && t < 1 {
			o.Threshold = t
		}
	}
}

// WithFallbackConfidence 设置出错回退置信度
func WithFallbackConfidence(c float64) Option {
	return func(o *Options) {
		if c > 0 && c <= 1 {
			o.FallbackConfidence = c
		}
	}
}

// WithSeed 设置切分随机种子
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithIterations 设置梯度下降迭代次数
func WithIterations(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Iterations = n
		}
	}
}

// WithLearningRate 设置学习率
func WithLearningRate(lr float64) Option {
	return func(o *Options) {
		if lr > 0 {
			o.LearningRate = lr
		}
	}
}

// WithC 设置正则强度倒数
func WithC(c float64) Option {
	return func(o *Options) {
		if c > 0 {
			o.C = c
		}
	}
}

// WithTopN 设置默认返回数量
func WithTopN(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.TopN = n
		}
	}
}
