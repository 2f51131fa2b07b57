package generation

import (
	"strings"
)

// Stop words removed from the question before sentence scoring.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "what": true,
	"how": true, "why": true, "when": true, "where": true,
}

const (
	minSentenceLen   = 20
	maxTopSentences  = 5
	maxAnswerLen     = 500
	fallbackCtxLen   = 400
	fallbackPreamble = "Based on the provided context, I found information related to your question. Here are the relevant details:\n\n"
)

// ExtractiveAnswer selects the context sentences that best match the
// question terms. Fully deterministic given (question, context): same
// inputs, byte-identical output.
func ExtractiveAnswer(question, context string) string {
	terms := questionTerms(question)
	sentences := splitSentences(context)

	type scored struct {
		score    int
		sentence string
	}
	var relevant []scored
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > 0 && len(sentence) > minSentenceLen {
			relevant = append(relevant, scored{score: score, sentence: sentence})
		}
	}

	if len(relevant) == 0 {
		return fallbackPreamble + truncateRunes(context, fallbackCtxLen) + "..."
	}

	// Stable sort by score descending, insertion sort keeps tie order.
	for i := 1; i < len(relevant); i++ {
		for j := i; j > 0 && relevant[j].score > relevant[j-1].score; j-- {
			relevant[j], relevant[j-1] = relevant[j-1], relevant[j]
		}
	}

	top := relevant
	if len(top) > maxTopSentences {
		top = top[:maxTopSentences]
	}
	parts := make([]string, len(top))
	for i, s := range top {
		parts[i] = s.sentence
	}

	return truncateRunes(strings.Join(parts, ". ")+".", maxAnswerLen)
}

// truncateRunes cuts s to at most n runes, never splitting a multi-byte
// rune mid-sequence.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

// questionTerms lowercases, trims punctuation, and drops stop words.
// Terms are deduplicated preserving first occurrence so scoring order is
// deterministic.
func questionTerms(question string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(question)) {
		cleaned := strings.Trim(word, ".,!?;:'\"-()[]{}")
		if cleaned == "" || stopWords[cleaned] || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		terms = append(terms, cleaned)
	}
	return terms
}

// splitSentences breaks text on sentence-ending punctuation followed by
// whitespace or end of input, so abbreviations like "doc.pdf" survive.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		if r == '.' || r == '!' || r == '?' {
			atEnd := i == len(runes)-1
			nextIsSpace := !atEnd && (runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' || runes[i+1] == '\r')
			if atEnd || nextIsSpace {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
				continue
			}
		}
		current.WriteRune(r)
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
