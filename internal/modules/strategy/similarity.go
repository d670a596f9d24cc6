package strategy

import (
	"strings"
	"unicode"
)

// Score returns the Jaccard index of the normalized word sets of a and b.
// Either side empty yields 0.
func Score(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// MaxScore returns the highest Score of text against any candidate.
func MaxScore(text string, candidates []string) float64 {
	best := 0.0
	for _, c := range candidates {
		if s := Score(text, c); s > best {
			best = s
			if best >= 1 {
				break
			}
		}
	}
	return best
}
