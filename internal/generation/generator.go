// Package generation turns (question, context) into a citation-bearing
// answer, through an external model when one is available and through a
// deterministic extractive fallback when it is not.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"medical-rag/internal/config"
	"medical-rag/internal/helper"
	"medical-rag/internal/models"
)

// State of the external generative model.
type State int

const (
	StateUninitialized State = iota
	StateReady               // external model loaded
	StateUnavailable         // external model cannot load
	StateExtractive          // caller forced demo mode
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	case StateExtractive:
		return "extractive"
	default:
		return "uninitialized"
	}
}

// Path identifies which generation path produced an answer.
type Path string

const (
	PathModel      Path = "model"
	PathExtractive Path = "extractive"
)

// Result pairs the response with the path that produced it so tests can
// assert the executed path without parsing logs.
type Result struct {
	Response *models.QueryResponse
	Path     Path
}

const (
	genTemperature = 0.1
	genMaxTokens   = 512
)

// Generator is the answer-generation state machine. A generation failure
// in the Ready state demotes to extractive for that single call only; the
// state stays Ready and the next call re-attempts the model.
type Generator struct {
	cfg   *config.LLMConfig
	state State
	llm   llms.Model
}

func New(cfg *config.LLMConfig) *Generator {
	return &Generator{cfg: cfg, state: StateUninitialized}
}

// State reports the current state of the machine.
func (g *Generator) State() State { return g.state }

// ForceExtractive pins the generator to the extractive path.
func (g *Generator) ForceExtractive() {
	g.state = StateExtractive
}

// initialize loads the external model client once. Missing model artifact
// or client construction failure lands in Unavailable.
func (g *Generator) initialize() {
	if g.state != StateUninitialized {
		return
	}

	if g.cfg.ModelPath != "" && !helper.FileExists(g.cfg.ModelPath) {
		log.Warn().Str("model_path", g.cfg.ModelPath).Msg("Model artifact not found, generator unavailable")
		g.state = StateUnavailable
		return
	}

	llm, err := g.buildClient()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize generative model, generator unavailable")
		g.state = StateUnavailable
		return
	}

	g.llm = llm
	g.state = StateReady
	log.Info().Str("model", g.cfg.Model).Msg("Initialized generative model")
}

func (g *Generator) buildClient() (llms.Model, error) {
	switch g.cfg.Provider {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(g.cfg.BaseURL),
			ollama.WithModel(g.cfg.Model),
		)
	default:
		return openai.New(
			openai.WithBaseURL(g.cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(g.cfg.Key, "Bearer ")),
			openai.WithModel(g.cfg.Model),
		)
	}
}

// Generate produces an answer for the question bound to the given context.
// useDemoMode forces the extractive path. Model failures never surface to
// the caller, they resolve to the extractive fallback; the response's
// Model tag discloses which path ran.
func (g *Generator) Generate(ctx context.Context, question, contextText string, citations []models.Citation, useDemoMode bool) (*Result, error) {
	if useDemoMode {
		g.ForceExtractive()
	}

	if g.state == StateUninitialized {
		g.initialize()
	}

	if g.state != StateReady {
		return g.generateExtractive(question, contextText, citations), nil
	}

	log.Info().Str("question", truncateRunes(question, 50)).Msg("Generating answer")

	answer, err := g.complete(ctx, question, contextText)
	if err != nil {
		log.Warn().Err(err).Msg("Generation failed, falling back to extractive answer")
		return g.generateExtractive(question, contextText, citations), nil
	}

	return &Result{
		Response: &models.QueryResponse{
			Answer:        answer,
			Citations:     formatCitations(citations),
			Question:      question,
			ContextLength: len(contextText),
			Model:         g.cfg.Model,
		},
		Path: PathModel,
	}, nil
}

func (g *Generator) complete(ctx context.Context, question, contextText string) (string, error) {
	prompt := fmt.Sprintf(models.AnswerPromptTemplate, contextText, question)
	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	resp, err := g.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(genTemperature),
		llms.WithMaxTokens(genMaxTokens),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func (g *Generator) generateExtractive(question, contextText string, citations []models.Citation) *Result {
	log.Info().Str("question", truncateRunes(question, 50)).Msg("Generating extractive answer")
	return &Result{
		Response: &models.QueryResponse{
			Answer:        ExtractiveAnswer(question, contextText),
			Citations:     formatCitations(citations),
			Question:      question,
			ContextLength: len(contextText),
			Model:         models.DemoModelTag,
		},
		Path: PathExtractive,
	}
}

// formatCitations re-emits the citation list, never nil, so responses
// serialize with an empty array rather than null.
func formatCitations(citations []models.Citation) []models.Citation {
	if citations == nil {
		return []models.Citation{}
	}
	return citations
}

