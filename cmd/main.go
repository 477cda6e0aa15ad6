package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"amli-assistant/handler"
	"amli-assistant/internal/certificate"
	"amli-assistant/internal/config"
	"amli-assistant/internal/conversation"
	"amli-assistant/internal/generation"
	"amli-assistant/internal/integrations/gemini"
	"amli-assistant/internal/integrations/paramstore"
	"amli-assistant/internal/integrations/supabase"
	"amli-assistant/internal/intent"
	"amli-assistant/internal/repository"
	"amli-assistant/internal/usecase"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

// app holds everything the subcommands need once configuration is loaded.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	chat    *usecase.ChatService
	handler *handler.Handler
}

func newApp(ctx context.Context, jsonLogs bool) (*app, error) {
	// ---- Configuration (read only here) ----
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, jsonLogs)
	slog.SetDefault(logger)

	// ---- AWS SDK config (only when something needs it) ----
	var awsCfg *aws.Config
	if cfg.ParamPrefix != "" || cfg.CertificateBackend == config.BackendDynamoDB {
		c, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		awsCfg = &c
	}

	var params paramstore.Getter
	if cfg.ParamPrefix != "" {
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(*awsCfg))
		if err != nil {
			return nil, fmt.Errorf("create SSM client: %w", err)
		}
		params = ssmClient
	}

	// ---- Clients ----
	model, err := newModel(cfg, params)
	if err != nil {
		return nil, err
	}
	if model == nil {
		logger.Warn("GEMINI_API_KEY not configured; generation is unavailable")
	}
	generator := generation.NewClient(model, generation.WithLogger(logger))

	searcher, err := newSearcher(cfg, params, awsCfg)
	if err != nil {
		return nil, err
	}
	if searcher == nil {
		logger.Warn("certificate search not configured")
	}
	docs := certificate.NewClient(searcher, certificate.WithTimeout(cfg.SearchTimeout), certificate.WithLogger(logger))

	// ---- Use case and handler ----
	chat, err := usecase.NewChatService(
		intent.NewClassifier(),
		conversation.NewMemoryStore(cfg.HistoryLimit),
		generator,
		docs,
		usecase.WithJobFormURL(cfg.JobFormURL),
		usecase.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create chat service: %w", err)
	}
	h, err := handler.NewHandler(chat, handler.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create handler: %w", err)
	}

	return &app{cfg: cfg, logger: logger, chat: chat, handler: h}, nil
}

func newLogger(cfg *config.Config, jsonLogs bool) *slog.Logger {
	lvl, _ := cfg.Level() // validated by config.Load
	opts := &slog.HandlerOptions{Level: lvl}
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// secret prefers the static value and falls back to Parameter Store.
// It returns nil when neither is available.
func secret(static string, params paramstore.Getter, name string) (*paramstore.Secret, error) {
	if static != "" {
		return paramstore.StaticSecret(static), nil
	}
	if params == nil || name == "" {
		return nil, nil
	}
	return paramstore.NewSecret(params, name)
}

// newModel returns a nil interface when no API key source is configured so the
// generation client reports itself unavailable.
func newModel(cfg *config.Config, params paramstore.Getter) (generation.Model, error) {
	key, err := secret(cfg.GeminiAPIKey, params, cfg.SecretParam("gemini-api-key"))
	if err != nil {
		return nil, fmt.Errorf("gemini key: %w", err)
	}
	if key == nil {
		return nil, nil
	}
	client, err := gemini.NewClient(key, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

func newSearcher(cfg *config.Config, params paramstore.Getter, awsCfg *aws.Config) (certificate.Searcher, error) {
	switch cfg.CertificateBackend {
	case config.BackendDynamoDB:
		client, err := repository.New(awsdynamodb.NewFromConfig(*awsCfg), cfg.CertificateTable)
		if err != nil {
			return nil, fmt.Errorf("create certificate repository: %w", err)
		}
		return client, nil
	default:
		if cfg.SupabaseURL == "" {
			return nil, nil
		}
		key, err := secret(cfg.SupabaseKey, params, cfg.SecretParam("supabase-key"))
		if err != nil {
			return nil, fmt.Errorf("supabase key: %w", err)
		}
		if key == nil {
			return nil, nil
		}
		client, err := supabase.NewClient(cfg.SupabaseURL, key, supabase.WithFunction(cfg.SupabaseRPC))
		if err != nil {
			return nil, fmt.Errorf("create supabase client: %w", err)
		}
		return client, nil
	}
}
