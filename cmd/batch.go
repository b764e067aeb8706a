package cmd

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/batch"
	"github.com/spigell/resume-query/internal/logger"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the keyword and retrieval stages for a file of queries",
	Run: func(cmd *cobra.Command, _ []string) {
		runBatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("input", "i", "", "JSON file with an array of queries")
	batchCmd.Flags().StringP("output", "o", "batch_results.json", "file to write the results to")
	batchCmd.Flags().Duration("interval", 0, "minimum delay between query starts (default from batch.interval)")
	batchCmd.Flags().Int("concurrency", 0, "number of queries processed at once (default from batch.concurrency)")

	batchCmd.MarkFlagRequired("input")

	viper.BindPFlag("batch.interval", batchCmd.Flags().Lookup("interval"))
	viper.BindPFlag("batch.concurrency", batchCmd.Flags().Lookup("concurrency"))
}

func runBatch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		stdlog.Fatalf("creating a logger: %s", err)
	}

	input := cmd.Flag("input").Value.String()
	output := cmd.Flag("output").Value.String()

	queries, err := batch.LoadQueries(input)
	if err != nil {
		log.Fatal("loading queries", zap.Error(err), zap.String("file", input))
	}
	if len(queries) == 0 {
		log.Info("exiting", zap.String("reason", "no queries found"))
		return
	}

	a := setup(ctx, log)
	defer a.close()

	cfg := a.config.Batch
	if cfg == nil {
		cfg = &BatchConfig{Interval: batch.DefaultInterval, Concurrency: batch.DefaultConcurrency}
	}

	log.Info("starting the batch",
		zap.Int("queries", len(queries)),
		zap.Duration("interval", cfg.Interval),
		zap.Int("concurrency", cfg.Concurrency),
	)

	runner := batch.New(a.pipeline, batch.NewLimiter(cfg.Interval), cfg.Concurrency, log)

	items, runErr := runner.Run(ctx, queries)
	if err := batch.WriteResults(output, items); err != nil {
		log.Fatal("writing results", zap.Error(err), zap.String("file", output))
	}

	log.Info("results written", zap.String("file", output), zap.Int("count", len(items)))

	if runErr != nil {
		log.Fatal("batch interrupted", zap.Error(runErr))
	}
}
