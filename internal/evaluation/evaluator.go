// Package evaluation scores pipeline output: ROUGE overlap against
// reference answers and faithfulness of answers to their source context.
package evaluation

import (
	"errors"
	"strings"
	"unicode"
)

var ErrLengthMismatch = errors.New("predictions and references must have same length")

// Metric is one precision/recall/f-measure triple.
type Metric struct {
	Precision float64
	Recall    float64
	FMeasure  float64
}

// RougeScores aggregates ROUGE-1, ROUGE-2 and ROUGE-L.
type RougeScores struct {
	Rouge1 Metric
	Rouge2 Metric
	RougeL Metric
}

// Faithfulness reports how many answer sentences trace back to the context.
type Faithfulness struct {
	Score             float64
	GroundedSentences int
	TotalSentences    int
}

var faithStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true,
}

// ComputeROUGE averages sentence-level ROUGE scores over prediction and
// reference pairs. No stemming is applied.
func ComputeROUGE(predictions, references []string) (RougeScores, error) {
	if len(predictions) != len(references) {
		return RougeScores{}, ErrLengthMismatch
	}

	var scores RougeScores
	if len(predictions) == 0 {
		return scores, nil
	}

	for i := range predictions {
		pred := tokenize(predictions[i])
		ref := tokenize(references[i])

		scores.Rouge1 = scores.Rouge1.add(ngramOverlap(pred, ref, 1))
		scores.Rouge2 = scores.Rouge2.add(ngramOverlap(pred, ref, 2))
		scores.RougeL = scores.RougeL.add(lcsScore(pred, ref))
	}

	n := float64(len(predictions))
	scores.Rouge1 = scores.Rouge1.scale(1 / n)
	scores.Rouge2 = scores.Rouge2.scale(1 / n)
	scores.RougeL = scores.RougeL.scale(1 / n)
	return scores, nil
}

// ComputeFaithfulness counts answer sentences whose non-stopword words
// appear at least 50% in the context.
func ComputeFaithfulness(answer, context string) Faithfulness {
	sentences := splitSentences(answer)
	contextLower := strings.ToLower(context)

	grounded := 0
	total := len(sentences)
	for _, sentence := range sentences {
		words := make(map[string]bool)
		for _, word := range strings.Fields(strings.ToLower(sentence)) {
			if !faithStopWords[word] {
				words[word] = true
			}
		}
		if len(words) == 0 {
			total--
			continue
		}
		matching := 0
		for word := range words {
			if strings.Contains(contextLower, word) {
				matching++
			}
		}
		if float64(matching)/float64(len(words)) >= 0.5 {
			grounded++
		}
	}

	result := Faithfulness{GroundedSentences: grounded, TotalSentences: total}
	if total > 0 {
		result.Score = float64(grounded) / float64(total)
	}
	return result
}

func (m Metric) add(other Metric) Metric {
	return Metric{
		Precision: m.Precision + other.Precision,
		Recall:    m.Recall + other.Recall,
		FMeasure:  m.FMeasure + other.FMeasure,
	}
}

func (m Metric) scale(f float64) Metric {
	return Metric{Precision: m.Precision * f, Recall: m.Recall * f, FMeasure: m.FMeasure * f}
}

// tokenize lowercases and keeps alphanumeric runs.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func ngramOverlap(pred, ref []string, n int) Metric {
	predGrams := ngrams(pred, n)
	refGrams := ngrams(ref, n)
	if len(predGrams) == 0 || len(refGrams) == 0 {
		return Metric{}
	}

	refCounts := make(map[string]int, len(refGrams))
	for _, gram := range refGrams {
		refCounts[gram]++
	}
	overlap := 0
	for _, gram := range predGrams {
		if refCounts[gram] > 0 {
			refCounts[gram]--
			overlap++
		}
	}

	return metricFrom(overlap, len(predGrams), len(refGrams))
}

func ngrams(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	grams := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams = append(grams, strings.Join(tokens[i:i+n], " "))
	}
	return grams
}

func lcsScore(pred, ref []string) Metric {
	if len(pred) == 0 || len(ref) == 0 {
		return Metric{}
	}

	// Classic LCS over two token sequences, one row at a time.
	prev := make([]int, len(ref)+1)
	curr := make([]int, len(ref)+1)
	for i := 1; i <= len(pred); i++ {
		for j := 1; j <= len(ref); j++ {
			if pred[i-1] == ref[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return metricFrom(prev[len(ref)], len(pred), len(ref))
}

func metricFrom(overlap, predTotal, refTotal int) Metric {
	m := Metric{
		Precision: float64(overlap) / float64(predTotal),
		Recall:    float64(overlap) / float64(refTotal),
	}
	if m.Precision+m.Recall > 0 {
		m.FMeasure = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// splitSentences breaks text on runs of sentence-ending punctuation.
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	var sentences []string
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
