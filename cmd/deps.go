package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/ai"
	"github.com/spigell/resume-query/internal/ai/azure"
	"github.com/spigell/resume-query/internal/ai/gemini"
	"github.com/spigell/resume-query/internal/answer"
	"github.com/spigell/resume-query/internal/keywords"
	"github.com/spigell/resume-query/internal/logger"
	"github.com/spigell/resume-query/internal/pipeline"
	"github.com/spigell/resume-query/internal/rerank"
	"github.com/spigell/resume-query/internal/secrets"
	"github.com/spigell/resume-query/internal/store/memory"
	"github.com/spigell/resume-query/internal/store/mongo"
)

// application bundles what every command needs after configuration is loaded.
type application struct {
	config   *Config
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
	// pinger is set when the store supports health checks.
	pinger interface {
		Ping(ctx context.Context) error
	}
	close func()
}

// setup loads the config and builds the pipeline. Any failure is fatal.
func setup(ctx context.Context, log *zap.Logger) *application {
	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}
	if config == nil || config.LLM == nil || config.Store == nil {
		log.Fatal("config is required")
	}

	log.Info("starting the resume-query", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	completer, err := newCompleter(ctx, config.LLM, log)
	if err != nil {
		log.Fatal("building a language model client", zap.Error(err))
	}

	a := &application{config: config, logger: log, close: func() {}}

	var store pipeline.Store
	switch driver := strings.ToLower(strings.TrimSpace(config.Store.Driver)); driver {
	case "", "mongo":
		uri, err := secrets.Load(secrets.Source{Name: "mongo uri", File: config.Store.URIFile, Env: "MONGO_URI"})
		if err != nil {
			log.Fatal("loading mongo uri", zap.Error(err),
				zap.String("hint", "set MONGO_URI environment variable or the 'store.uri-file' key in the configuration file"),
			)
		}

		mstore, err := mongo.New(ctx, mongo.Config{
			URI:        uri,
			Database:   config.Store.Database,
			Collection: config.Store.Collection,
			Timeout:    config.Store.Timeout,
			Limit:      config.Store.Limit,
		}, log)
		if err != nil {
			log.Fatal("connecting to mongo", zap.Error(err))
		}

		store, a.pinger = mstore, mstore
		a.close = func() {
			if err := mstore.Close(context.Background()); err != nil {
				log.Warn("closing mongo connection", zap.Error(err))
			}
		}
	case "memory":
		mem, err := memory.Load(config.Store.File, int(config.Store.Limit), log)
		if err != nil {
			log.Fatal("loading resumes", zap.Error(err), zap.String("file", config.Store.File))
		}
		log.Info("resumes loaded", zap.Int("count", mem.Len()))
		store = mem
	default:
		log.Fatal("unsupported store driver", zap.String("driver", driver))
	}

	expand := true
	if config.Pipeline != nil {
		expand = config.Pipeline.ExpandKeywords
	}

	a.pipeline = pipeline.New(pipeline.Deps{
		Extractor:   keywords.New(completer, expand, log),
		Store:       store,
		Reranker:    rerank.New(completer, log),
		Synthesizer: answer.New(completer, log),
		Logger:      log,
	})

	return a
}

func newCompleter(ctx context.Context, cfg *LLMConfig, log *zap.Logger) (ai.Completer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", "gemini":
		gcfg := cfg.Gemini
		if gcfg == nil {
			gcfg = &GeminiConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{Name: "gemini api key", File: gcfg.APIKeyFile, Env: "GEMINI_API_KEY"})
		if err != nil {
			return nil, fmt.Errorf("%w (set llm.gemini.api-key-file or GEMINI_API_KEY)", err)
		}

		generator, err := gemini.NewGenerator(ctx, gemini.Config{
			APIKey:      apiKey,
			Model:       gcfg.Model,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
			Temperature: cfg.Temperature,
		}, logger.WithCommonFields(log, "gemini", gcfg.Model).With(zap.Int("ai_retry_attempts", cfg.MaxRetries)))
		if err != nil {
			return nil, err
		}

		return ai.NewInstrumented(generator, "gemini", generator.Model(), cfg.MaxLogLength, log), nil
	case "azure":
		acfg := cfg.Azure
		if acfg == nil {
			acfg = &AzureConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{Name: "azure openai api key", File: acfg.APIKeyFile, Env: "AZURE_OPENAI_API_KEY"})
		if err != nil {
			return nil, fmt.Errorf("%w (set llm.azure.api-key-file or AZURE_OPENAI_API_KEY)", err)
		}

		client, err := azure.New(azure.Config{
			APIKey:      apiKey,
			Endpoint:    acfg.Endpoint,
			Deployment:  acfg.Deployment,
			APIVersion:  acfg.APIVersion,
			Azure:       true,
			Timeout:     cfg.Timeout,
			Temperature: cfg.Temperature,
		}, logger.WithCommonFields(log, "azure", acfg.Deployment))
		if err != nil {
			return nil, err
		}

		return ai.NewInstrumented(client, "azure", client.Model(), cfg.MaxLogLength, log), nil
	case "openai":
		ocfg := cfg.OpenAI
		if ocfg == nil {
			ocfg = &OpenAIConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{Name: "openai api key", File: ocfg.APIKeyFile, Env: "OPENAI_API_KEY"})
		if err != nil {
			return nil, fmt.Errorf("%w (set llm.openai.api-key-file or OPENAI_API_KEY)", err)
		}

		client, err := azure.New(azure.Config{
			APIKey:      apiKey,
			BaseURL:     ocfg.BaseURL,
			Model:       ocfg.Model,
			Timeout:     cfg.Timeout,
			Temperature: cfg.Temperature,
		}, logger.WithCommonFields(log, "openai", ocfg.Model))
		if err != nil {
			return nil, err
		}

		return ai.NewInstrumented(client, "openai", client.Model(), cfg.MaxLogLength, log), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}
