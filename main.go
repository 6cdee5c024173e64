// main.go
package main

import (
	"errors"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/seqlab/amrsync/config"
	"github.com/seqlab/amrsync/fetch"
	"github.com/seqlab/amrsync/logger"
	"github.com/seqlab/amrsync/services"
	"github.com/seqlab/amrsync/store"
)

func main() {
	configPath := pflag.String("config", "config.yaml", "path to the pipeline config file")
	envFile := pflag.String("env-file", ".env", "path to the environment file selecting output roots")
	resetAudit := pflag.Bool("reset-audit", false, "truncate the ingestion audit table before running")
	skipTraining := pflag.Bool("skip-training", false, "skip the model-training step")
	pflag.Parse()

	logger.Init()

	// The .env file is optional; it overrides AMRSYNC_DATA_ROOT and friends
	// for environment-specific output paths.
	if _, err := os.Stat(*envFile); err == nil {
		if err := godotenv.Load(*envFile); err != nil {
			logger.Log.Fatalf("Error loading env file %s: %v", *envFile, err)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}

	run := logger.WithField("run_id", uuid.NewString())
	run.Infof("Starting BV-BRC AMR mirror pipeline (%s://%s, data root %s)",
		cfg.Mirror.Scheme, cfg.Mirror.Host, cfg.Paths.DataRoot)

	var transport fetch.RemoteTransport
	switch cfg.Mirror.Scheme {
	case "https":
		transport = fetch.NewHTTPMirror(cfg.Transfer.TransferTimeout, cfg.Transfer.ListRetries, cfg.Transfer.ListRetryDelay)
	default:
		transport = fetch.NewFTPClient(fetch.FTPOptions{
			ConnectTimeout:  cfg.Transfer.ConnectTimeout,
			TransferTimeout: cfg.Transfer.TransferTimeout,
			StallWindow:     cfg.Transfer.StallWindow,
			MinBytesPerSec:  cfg.Transfer.MinBytesPerSec,
			ListRetries:     cfg.Transfer.ListRetries,
			ListRetryDelay:  cfg.Transfer.ListRetryDelay,
		})
	}

	wal := store.NewWALStore(cfg.Paths.WALFile)
	audit := store.NewAuditStore(cfg.Paths.AuditFile)

	if *resetAudit {
		if err := audit.Reset(); err != nil {
			run.Fatalf("Failed to reset audit table: %v", err)
		}
		run.Info("Audit table reset")
	}

	syncSvc := services.NewSyncService(cfg, transport, wal, audit)

	if err := syncSvc.SyncSnapshot(); err != nil {
		var perm *services.PermanentError
		if errors.Is(err, services.ErrEmptySource) || errors.As(err, &perm) {
			// No valid source, or good data we cannot place: nothing
			// sensible left to do this run.
			run.Fatalf("Snapshot ingestion aborted the run: %v", err)
		}
		run.Errorf("Snapshot ingestion failed, continuing with the last mirrored copy: %v", err)
	}

	records, err := services.LoadAMRRecords(cfg.Paths.SnapshotFile)
	if err != nil {
		run.Fatalf("No usable AMR snapshot on disk: %v", err)
	}

	targets := services.DeriveGenomeTargets(records, cfg.Selection.Organisms, cfg.Selection.Antibiotics)
	run.Infof("Derived %d genome targets from the snapshot", len(targets))

	fetched, err := syncSvc.SyncGenomes(targets)
	if err != nil {
		run.Fatalf("Per-genome ingestion aborted the run: %v", err)
	}
	run.Infof("Genome ingestion finished: %d fetched this run", fetched)

	labelCount, err := services.NewLabelService(cfg).GenerateLabels(records)
	if err != nil {
		run.Fatalf("Label generation failed: %v", err)
	}
	run.Infof("Label generation finished: %d files", labelCount)

	if *skipTraining {
		run.Info("Skipping model training (--skip-training)")
	} else if err := services.NewTrainingService(cfg).Run(); err != nil {
		run.Errorf("Model training failed: %v", err)
	}

	run.Info("Pipeline run complete")
}
