package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"medical-rag/internal/config"
	"medical-rag/internal/embedding"
	"medical-rag/internal/helper"
	"medical-rag/internal/pipeline"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	// .env is optional, used for API keys
	_ = godotenv.Load()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	ingestPath := flag.String("ingest", "", "Path to a PDF file or directory of PDFs to ingest")
	query := flag.String("query", "", "Question to answer against the ingested corpus")
	k := flag.Int("k", 0, "Number of chunks to retrieve (0 uses the configured default)")
	flag.Parse()

	if *ingestPath == "" && *query == "" {
		log.Fatal().Msg("Please provide a document path using the -ingest flag or a question using the -query flag")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setLogLevel(cfg.LogLevel)
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	p, err := pipeline.New(cfg, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing pipeline")
	}

	ctx := context.Background()

	if *ingestPath != "" {
		if err := p.Ingest(ctx, *ingestPath); err != nil {
			log.Fatal().Err(err).Str("path", *ingestPath).Msg("Error ingesting documents")
		}
	}

	if *query == "" {
		return
	}

	if *ingestPath == "" {
		if err := p.LoadIndex(); err != nil {
			log.Fatal().Err(err).Msg("Error loading index, ingest documents first")
		}
	}

	response, err := p.Query(ctx, *query, *k)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Str("model", response.Model).Msg("Query answered")

	fmt.Printf("Question: %s\n\n", response.Question)
	fmt.Printf("Answer: %s\n\n", response.Answer)
	fmt.Println("Citations:")
	helper.PrettyPrint(response.Citations)
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
