package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rawblock/splitscore/internal/api"
	"github.com/rawblock/splitscore/internal/db"
	"github.com/rawblock/splitscore/internal/logging"
	"github.com/rawblock/splitscore/internal/shadow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP scoring API",
	Long: `Serve the /api/v1 scoring routes. With DATABASE_URL set, every run is
recorded in PostgreSQL and shadow comparisons are stored for drift reports.`,
	RunE: runServe,
}

var (
	servePort  string
	snapshotID int64
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Listen port (overrides config)")
	serveCmd.Flags().Int64Var(&snapshotID, "snapshot", 0, "Shadow snapshot ID (default: start time)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := logging.Get()
	log.Infow("Starting split scoring service",
		"criterion", cfg.Split.Criterion,
		"shadowCriterion", cfg.Split.ShadowCriterion,
		"correction", cfg.Distribution.Correction)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if snapshotID == 0 {
		snapshotID = time.Now().Unix()
	}

	var store api.RunStore
	var shadowStore shadow.ResultStore
	if cfg.Database.URL != "" {
		dbConn, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			log.Warnf("Failed to connect to PostgreSQL, continuing without a run ledger: %v", err)
		} else {
			defer dbConn.Close()
			if err := dbConn.InitSchema(ctx); err != nil {
				log.Warnf("DB schema init failed: %v", err)
			}
			store, shadowStore = dbConn, dbConn
		}
	} else {
		log.Info("DATABASE_URL not set, runs are not persisted")
	}

	wsHub := api.NewHub()
	go wsHub.Run(ctx)

	runner := shadow.NewRunner(shadowStore, snapshotID, cfg.Criterion(), cfg.ShadowCriterion())
	router, err := api.SetupRouter(ctx, cfg, store, runner, wsHub)
	if err != nil {
		return err
	}

	port := cfg.Server.Port
	if servePort != "" {
		port = servePort
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Scorer running on :%s (snapshot %d)", port, snapshotID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
