package textutil

import "math"

// WordSimilarity returns the cosine similarity of the folded word-frequency
// vectors of a and b. Words that fold to nothing are ignored. Returns 0 when
// either side has no usable words.
func WordSimilarity(a, b string) float64 {
	left := wordFrequencies(a)
	right := wordFrequencies(b)
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	var dot, leftNorm, rightNorm float64
	for word, count := range left {
		leftNorm += count * count
		if other, ok := right[word]; ok {
			dot += count * other
		}
	}
	for _, count := range right {
		rightNorm += count * count
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(leftNorm) * math.Sqrt(rightNorm))
}

func wordFrequencies(text string) map[string]float64 {
	words := Words(text)
	freq := make(map[string]float64, len(words))
	for _, word := range words {
		folded := AlphaNum(word)
		if folded == "" {
			continue
		}
		freq[folded]++
	}
	return freq
}
