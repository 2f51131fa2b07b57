package models

const (
	// DemoModelTag marks answers produced by the extractive fallback path.
	DemoModelTag = "Demo Mode (Context Extraction)"

	// NoInformationAnswer is returned when retrieval yields zero chunks.
	NoInformationAnswer = "I could not find any relevant information to answer this question."

	// ContextSeparator delimits chunks inside a formatted context string.
	ContextSeparator = "\n\n---\n\n"

	// CitationPreviewLen bounds the content preview carried by a citation.
	CitationPreviewLen = 200
)

// DefaultSeparators order split boundaries coarse to fine: paragraph, line,
// sentence, word, character.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// AnswerPromptTemplate binds the generative model to the retrieved context.
// Placeholders: context, question.
var AnswerPromptTemplate = `You are a medical AI assistant providing evidence-based answers to healthcare questions.

CRITICAL INSTRUCTIONS:
1. Answer ONLY using information from the provided context
2. If the context does not contain enough information to answer, say "I cannot answer this question based on the provided context"
3. Do NOT add any information not present in the context
4. Cite specific sources using [1], [2], etc. when referencing information
5. Be precise and factual - avoid speculation or assumptions

Context from medical research documents:
%s

Question: %s

Answer (based ONLY on the provided context):`
