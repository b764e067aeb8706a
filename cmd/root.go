package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resume-query"
)

type Config struct {
	LLM      *LLMConfig      `mapstructure:"llm"`
	Store    *StoreConfig    `mapstructure:"store"`
	Pipeline *PipelineConfig `mapstructure:"pipeline"`
	Batch    *BatchConfig    `mapstructure:"batch"`
	Server   *ServerConfig   `mapstructure:"server"`
}

type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max-retries"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Temperature  float32       `mapstructure:"temperature"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	Azure        *AzureConfig  `mapstructure:"azure"`
	OpenAI       *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type AzureConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Endpoint   string `mapstructure:"endpoint"`
	Deployment string `mapstructure:"deployment"`
	APIVersion string `mapstructure:"api-version"`
}

type OpenAIConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
}

type StoreConfig struct {
	Driver     string        `mapstructure:"driver"`
	URIFile    string        `mapstructure:"uri-file"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	File       string        `mapstructure:"file"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Limit      int64         `mapstructure:"limit"`
}

type PipelineConfig struct {
	ExpandKeywords bool `mapstructure:"expand-keywords"`
}

type BatchConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Concurrency int           `mapstructure:"concurrency"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-query answers natural language questions about a resume collection",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"llm.azure.endpoint":   "AZURE_OPENAI_ENDPOINT",
		"llm.azure.deployment": "AZURE_OPENAI_DEPLOYMENT",
		"llm.openai.base-url":  "OPENAI_BASE_URL",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-query.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("llm.provider", "gemini")
	viper.SetDefault("llm.timeout", 60*time.Second)
	viper.SetDefault("llm.max-retries", 0)
	viper.SetDefault("llm.max-log-length", 200)
	viper.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("llm.azure.api-version", "2024-08-01-preview")

	viper.SetDefault("store.driver", "mongo")
	viper.SetDefault("store.database", "resumes")
	viper.SetDefault("store.collection", "standardized")
	viper.SetDefault("store.timeout", 30*time.Second)
	viper.SetDefault("store.limit", 0)

	viper.SetDefault("pipeline.expand-keywords", true)

	viper.SetDefault("batch.interval", 2*time.Second)
	viper.SetDefault("batch.concurrency", 1)

	viper.SetDefault("server.listen", ":8080")
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every key has a default or an environment fallback, so only an explicit
	// or broken config file is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
