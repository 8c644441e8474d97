package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danthegoodman1/tablesplit/crdb"
	"github.com/danthegoodman1/tablesplit/gologger"
	"github.com/danthegoodman1/tablesplit/http_server"
	"github.com/danthegoodman1/tablesplit/metastore"
	"github.com/danthegoodman1/tablesplit/migrations"
	"github.com/danthegoodman1/tablesplit/session"
	"github.com/danthegoodman1/tablesplit/utils"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	logger = gologger.NewLogger()

	rootCmd = &cobra.Command{
		Use:          "tablesplit",
		Short:        "Split a CSV or XLSX table into one xlsx file per distinct column value.",
		SilenceUsage: true,
		RunE:         runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default).",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
)

func init() {
	rootCmd.AddCommand(serveCmd, splitCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openMetaStore() (metastore.MetaStore, error) {
	if utils.CRDB_DSN == "" {
		logger.Warn().Msg("CRDB_DSN not set, keeping export history in memory")
		return metastore.NewMemoryMetaStore(), nil
	}

	if err := crdb.ConnectToDB(); err != nil {
		return nil, fmt.Errorf("error connecting to CRDB: %w", err)
	}

	if utils.AUTO_MIGRATE {
		n, err := migrations.RunMigrations(utils.CRDB_DSN)
		if err != nil {
			return nil, fmt.Errorf("error running migrations: %w", err)
		}
		logger.Info().Int("applied", n).Msg("ran migrations")
	} else if err := migrations.CheckMigrations(utils.CRDB_DSN); err != nil {
		return nil, fmt.Errorf("error checking migrations: %w", err)
	}

	return metastore.NewCRDBMetaStore(crdb.PGPool), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger.Debug().Msg("starting tablesplit api")

	ms, err := openMetaStore()
	if err != nil {
		logger.Error().Err(err).Msg("error opening meta store")
		return err
	}
	defer crdb.Close()

	ttl := time.Second * time.Duration(utils.SESSION_TTL_SEC)
	sessions := session.NewStore(ttl)
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	if ttl > 0 {
		go sessions.RunSweeper(sweepCtx, time.Minute)
	}

	httpServer := http_server.NewHTTPServer(http_server.Options{
		Sessions:         sessions,
		MetaStore:        ms,
		Fs:               afero.NewOsFs(),
		DefaultOutputDir: utils.OUTPUT_DIR,
		MaxUploadBytes:   int64(utils.MAX_UPLOAD_BYTES),
	})
	if err := httpServer.Start(); err != nil {
		logger.Error().Err(err).Msg("error starting HTTP server")
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Warn().Msg("received shutdown signal!")

	// For AWS ALB needing some time to de-register pod
	sleepTime := utils.SHUTDOWN_SLEEP_SEC
	logger.Info().Msg(fmt.Sprintf("sleeping for %ds before exiting", sleepTime))

	time.Sleep(time.Second * time.Duration(sleepTime))
	logger.Info().Msg(fmt.Sprintf("slept for %ds, exiting", sleepTime))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown HTTP server")
	} else {
		logger.Info().Msg("successfully shutdown HTTP server")
	}
	if err := ms.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown meta store")
	}
	return nil
}
