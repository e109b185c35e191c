package classifier

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// 两个及以上单词字符
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// sparseVector 稀疏向量，idx 升序
type sparseVector struct {
	idx []int
	val []float64
}

func (s sparseVector) dot(weights []float64) float64 {
	var sum float64
	for i, j := range s.idx {
		sum += s.val[i] * weights[j]
	}
	return sum
}

// vectorizer TF-IDF 向量化器（unigram + bigram，平滑 IDF，L2 归一化）
type vectorizer struct {
	terms []string // 按字母序排列的特征
	index map[string]int
	idf   []float64
}

// analyze 分词、去停用词并生成 1~2 gram
func analyze(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if _, stop := englishStopWords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	grams := make([]string, 0, 2*len(tokens))
	grams = append(grams, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		grams = append(grams, tokens[i]+" "+tokens[i+1])
	}
	return grams
}

func fitVectorizer(docs []string, maxFeatures int) *vectorizer {
	tf := make(map[string]int)
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, g := range analyze(doc) {
			tf[g]++
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				df[g]++
			}
		}
	}

	terms := make([]string, 0, len(tf))
	for term := range tf {
		terms = append(terms, term)
	}
	// 词频降序，同频按字母序
	sort.Slice(terms, func(i, j int) bool {
		if tf[terms[i]] != tf[terms[j]] {
			return tf[terms[i]] > tf[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v := &vectorizer{
		terms: terms,
		index: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	for i, term := range terms {
		v.index[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

func (v *vectorizer) dim() int {
	return len(v.terms)
}

func (v *vectorizer) transform(text string) sparseVector {
	counts := make(map[int]float64)
	for _, g := range analyze(text) {
		if j, ok := v.index[g]; ok {
			counts[j]++
		}
	}
	vec := sparseVector{
		idx: make([]int, 0, len(counts)),
		val: make([]float64, 0, len(counts)),
	}
	for j := range counts {
		vec.idx = append(vec.idx, j)
	}
	sort.Ints(vec.idx)

	var norm float64
	for _, j := range vec.idx {
		w := counts[j] * v.idf[j]
		vec.val = append(vec.val, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec.val {
			vec.val[i] /= norm
		}
	}
	return vec
}
