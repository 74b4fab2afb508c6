package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/community-ranker/internal/api"
	"github.com/spigell/community-ranker/internal/community"
	"github.com/spigell/community-ranker/internal/payload"
	"github.com/spigell/community-ranker/internal/ranking"
	"github.com/spigell/community-ranker/internal/sheet"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ranking API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address (default :8080)")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, log := setup()
	defer log.Sync()

	schema := community.DefaultSchema()
	loader := sheet.NewLoader(schema, log)

	src, err := newSource(ctx, config, loader, log)
	if err != nil {
		log.Fatal("preparing community data source", zap.Error(err))
	}

	handler := &api.Handler{
		Schema: schema,
		Parser: payload.NewParser(schema),
		Loader: loader,
		Engine: &ranking.Engine{
			Schema:          schema,
			TopN:            config.TopN,
			DisabledFilters: config.DisabledFilters,
		},
		Source:    src,
		ObjectKey: config.Data.Object,
		Logger:    log,
	}

	// Uploads go to the workbook ranking reads from.
	if s, ok := src.(*sheet.StorageSource); ok {
		handler.Storage = s.Storage
	} else {
		log.Warn("community data uploads are disabled", zap.String("reason", "csv source is read only"))
	}

	server := &http.Server{
		Addr:              config.Server.Address,
		Handler:           handler.Router(api.Options{AllowedOrigins: config.Server.AllowedOrigins, Timeout: config.Server.Timeout}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("shutting down the server", zap.Error(err))
		}
	}()

	log.Info("starting the server",
		zap.String("version", version),
		zap.String("address", server.Addr),
		zap.String("source", src.String()),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("serving", zap.Error(err))
	}
	log.Info("server stopped")
}
