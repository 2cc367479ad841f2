// Package dedup detects near-duplicate question statements so a session does
// not ask the same thing twice.
package dedup

import (
	"math"
	"strings"
	"unicode"
)

// DefaultThreshold is the similarity at or above which two statements are
// treated as the same question.
const DefaultThreshold = 0.9

// Index holds the statements seen so far in a session.
type Index struct {
	threshold float64
	texts     []string
	vectors   []map[string]float64
}

func NewIndex(threshold float64, texts ...string) *Index {
	x := &Index{threshold: threshold}
	for _, t := range texts {
		x.Add(t)
	}
	return x
}

func (x *Index) Add(text string) {
	x.texts = append(x.texts, text)
	x.vectors = append(x.vectors, bigrams(text))
}

func (x *Index) Len() int { return len(x.texts) }

// Match returns the most similar indexed statement when its similarity
// reaches the threshold.
func (x *Index) Match(text string) (match string, similarity float64, ok bool) {
	v := bigrams(text)
	best := -1
	for i, other := range x.vectors {
		s := cosineSimilarity(v, other)
		if s > similarity {
			best, similarity = i, s
		}
	}
	if best < 0 || similarity < x.threshold {
		return "", similarity, false
	}
	return x.texts[best], similarity, true
}

// Similarity compares two statements by the cosine of their character
// bigram counts after normalization. Identical statements score 1.
func Similarity(a, b string) float64 {
	return cosineSimilarity(bigrams(a), bigrams(b))
}

// normalize lowercases s and drops spaces and punctuation, so "はい。" and
// "はい" compare equal.
func normalize(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func bigrams(s string) map[string]float64 {
	rs := normalize(s)
	v := make(map[string]float64, len(rs))
	if len(rs) == 1 {
		v[string(rs)] = 1
		return v
	}
	for i := 0; i+1 < len(rs); i++ {
		v[string(rs[i:i+2])]++
	}
	return v
}

func cosineSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for k, va := range a {
		normA += va * va
		if vb, ok := b[k]; ok {
			dotProduct += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}

	if normA == 0.0 || normB == 0.0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
