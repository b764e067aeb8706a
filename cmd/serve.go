package cmd

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/logger"
	"github.com/spigell/resume-query/internal/metrics"
	chiTransport "github.com/spigell/resume-query/internal/transport/chi"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default from server.listen)")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		stdlog.Fatalf("creating a logger: %s", err)
	}

	metrics.Register()

	a := setup(ctx, log)
	defer a.close()

	addr := ":8080"
	if a.config.Server != nil && a.config.Server.Listen != "" {
		addr = a.config.Server.Listen
	}

	var pinger chiTransport.Pinger
	if a.pinger != nil {
		pinger = a.pinger
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           chiTransport.NewServer(a.pipeline, pinger, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting http server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}

	log.Info("server stopped gracefully")
}
