package generation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const diabetesContext = "[1] Source: diabetes.pdf, Page: 1, Chunk: 0\n" +
	"Diabetes is a chronic metabolic disorder. It has two main types."

func TestExtractiveAnswerDeterministic(t *testing.T) {
	question := "What is diabetes and how does insulin work?"
	context := diabetesContext + "\n\n---\n\n[2] Source: insulin.pdf, Page: 2, Chunk: 0\n" +
		"Insulin regulates blood glucose levels. Beta cells produce insulin in the pancreas."

	first := ExtractiveAnswer(question, context)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ExtractiveAnswer(question, context))
	}
}

func TestExtractiveAnswerDiabetesScenario(t *testing.T) {
	answer := ExtractiveAnswer("What is diabetes?", diabetesContext)
	assert.Contains(t, answer, "Diabetes is a chronic metabolic disorder.")
}

func TestExtractiveAnswerPunctuationInQuestion(t *testing.T) {
	// The trailing question mark must not prevent term matching.
	withMark := ExtractiveAnswer("What is diabetes?", diabetesContext)
	withoutMark := ExtractiveAnswer("What is diabetes", diabetesContext)
	assert.Equal(t, withoutMark, withMark)
}

func TestExtractiveAnswerNoMatchFallback(t *testing.T) {
	context := "Hypertension increases cardiovascular risk over long periods of time."
	answer := ExtractiveAnswer("What is photosynthesis?", context)

	require.True(t, strings.HasPrefix(answer, fallbackPreamble))
	assert.Contains(t, answer, context)
	assert.True(t, strings.HasSuffix(answer, "..."))
}

func TestExtractiveAnswerFallbackTruncatesContext(t *testing.T) {
	context := strings.Repeat("z", 1000)
	answer := ExtractiveAnswer("What is photosynthesis?", context)
	assert.Equal(t, fallbackPreamble+strings.Repeat("z", fallbackCtxLen)+"...", answer)
}

func TestExtractiveAnswerSkipsShortSentences(t *testing.T) {
	// "Diabetes rises" matches but is under the length floor.
	context := "Diabetes rises. Diabetes is a chronic metabolic disorder affecting millions."
	answer := ExtractiveAnswer("diabetes", context)
	assert.NotContains(t, answer, "Diabetes rises")
	assert.Contains(t, answer, "chronic metabolic disorder")
}

func TestExtractiveAnswerScoreOrdering(t *testing.T) {
	context := "Insulin affects metabolism in complex ways. " +
		"Diabetes and insulin resistance are closely linked conditions."
	answer := ExtractiveAnswer("diabetes insulin", context)

	// The sentence matching both terms must come first.
	require.NotEmpty(t, answer)
	assert.True(t, strings.HasPrefix(answer, "Diabetes and insulin resistance"))
}

func TestExtractiveAnswerCapsLength(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("Diabetes mellitus is a chronic metabolic disorder characterized by elevated blood glucose. ")
	}
	answer := ExtractiveAnswer("diabetes", b.String())
	assert.LessOrEqual(t, len(answer), maxAnswerLen)
}

func TestExtractiveAnswerMultiByteTruncation(t *testing.T) {
	// Truncation boundaries must land on rune boundaries for non-ASCII
	// medical text, both on the answer cap and the fallback path.
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("Diabetes affects β-cell function and μ-receptor signaling pathways significantly. ")
	}
	answer := ExtractiveAnswer("diabetes", b.String())
	assert.True(t, utf8.ValidString(answer))
	assert.LessOrEqual(t, utf8.RuneCountInString(answer), maxAnswerLen)

	fallback := ExtractiveAnswer("photosynthesis", strings.Repeat("β", 600))
	assert.True(t, utf8.ValidString(fallback))
	assert.Equal(t, fallbackPreamble+strings.Repeat("β", fallbackCtxLen)+"...", fallback)
}

func TestSplitSentencesKeepsFilenames(t *testing.T) {
	sentences := splitSentences("[1] Source: doc.pdf, Page: 1, Chunk: 0\nDiabetes is a disorder. It has types.")
	require.Len(t, sentences, 2)
	assert.Contains(t, sentences[0], "doc.pdf")
	assert.Equal(t, "It has types", sentences[1])
}

func TestQuestionTerms(t *testing.T) {
	terms := questionTerms("What is diabetes, and how does Insulin work?")
	assert.Equal(t, []string{"diabetes", "does", "insulin", "work"}, terms)
}
