package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/logger"
	"github.com/spigell/resume-query/internal/pipeline"
)

const promptExit = "exit"

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question about the resume collection",
	Long:  "Answer a single question given with --query, or start an interactive session when the flag is omitted.",
	Run: func(cmd *cobra.Command, _ []string) {
		ask(cmd)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringP("query", "q", "", "question to answer; interactive mode when empty")
	askCmd.Flags().Bool("trace", false, "print keywords and candidate names after the answer")
}

func ask(cmd *cobra.Command) {
	ctx := context.Background()

	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		stdlog.Fatalf("creating a logger: %s", err)
	}

	a := setup(ctx, log)
	defer a.close()

	out := cmd.OutOrStdout()
	trace := cmd.Flag("trace").Value.String() == "true"

	if q := strings.TrimSpace(cmd.Flag("query").Value.String()); q != "" {
		printResult(out, a.pipeline.Execute(ctx, q), trace)
		return
	}

	prompt := promptui.Prompt{
		Label: fmt.Sprintf("Question (%q to quit)", promptExit),
	}

	for {
		q, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			log.Fatal("reading a question", zap.Error(err))
		}

		q = strings.TrimSpace(q)
		switch q {
		case "":
			continue
		case promptExit:
			log.Info("exiting", zap.String("reason", "got exit from prompt"))
			return
		}

		printResult(out, a.pipeline.Execute(ctx, q), trace)
	}
}

func printResult(out io.Writer, res *pipeline.Result, trace bool) {
	fmt.Fprintln(out, res.Answer)
	if !trace {
		return
	}

	fmt.Fprintf(out, "\nstate: %s\nkeywords: %s\nretrieved: %s\nrelevant: %s\n",
		res.State,
		strings.Join(res.Keywords, ", "),
		strings.Join(res.Retrieved, ", "),
		strings.Join(res.Relevant, ", "),
	)
	for _, err := range res.Degraded {
		fmt.Fprintf(out, "degraded: %v\n", err)
	}
}
