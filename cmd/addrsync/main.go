package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/addrsync/internal/config"
	"github.com/stwalsh4118/addrsync/internal/database"
	"github.com/stwalsh4118/addrsync/internal/logger"
	"github.com/stwalsh4118/addrsync/internal/registry"
	"github.com/stwalsh4118/addrsync/internal/repository"
	"github.com/stwalsh4118/addrsync/internal/services"
)

var (
	runSRID      int
	runRecordIDs []int64
)

var rootCmd = &cobra.Command{
	Use:   "addrsync",
	Short: "Address point enrichment and registry synchronization",
	Long: `addrsync enriches selected address point records with attributes derived
from spatial containment in reference polygon layers (BIA zones, tax parcels),
then synchronizes each record into the external address registry.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one sync run over the currently selected records",
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().IntVar(&runSRID, "srid", 0,
		"projection SRID for x/y coordinates (default: configured PROJECTION_SRID)")
	runCmd.Flags().Int64SliceVar(&runRecordIDs, "ids", nil,
		"record ids to synchronize (default: records marked selected in the store)")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(cfg.Server.Env)

	// Ctrl-C stops the run between records; nothing is interrupted mid-upsert
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gisDB, err := database.NewPostgresPool(ctx, cfg.GIS)
	if err != nil {
		return fmt.Errorf("failed to connect to GIS store: %w", err)
	}
	defer gisDB.Close()

	registryDB, err := database.NewRegistryPool(ctx, cfg.Registry)
	if err != nil {
		return fmt.Errorf("failed to connect to registry: %w", err)
	}
	defer registryDB.Close()

	addressRepo := repository.NewAddressRepository(gisDB, cfg.Layers.AddressTable)
	joinRepo := repository.NewSpatialJoinRepository(gisDB, cfg.Layers.AddressTable)
	registryClient := registry.NewClient(registryDB, cfg.Registry)
	pipeline := services.NewSyncPipeline(addressRepo, joinRepo, registryClient, cfg.Layers, log)

	srid := runSRID
	if srid == 0 {
		srid = cfg.Layers.SRID
	}

	summary, err := pipeline.Run(ctx, runRecordIDs, srid)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", summary.RunID)
	fmt.Printf("attempted: %d\n", summary.Attempted)
	fmt.Printf("bia updated: %d (stage skipped: %t)\n", summary.BIAUpdated, summary.BIASkipped)
	fmt.Printf("parcels updated: %d (stage skipped: %t)\n", summary.ParcelUpdated, summary.ParcelSkipped)
	fmt.Printf("succeeded: %d  skipped: %d  failed: %d\n", summary.Succeeded, summary.Skipped, summary.Failed)
	for _, r := range summary.Results {
		if r.Outcome == services.OutcomeFailed {
			fmt.Printf("  record %d failed: %s\n", r.ID, r.Reason)
		}
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
