package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rankingsengine/internal/cache"
	"rankingsengine/internal/config"
	"rankingsengine/internal/engine"
	"rankingsengine/internal/models"
	"rankingsengine/internal/store"
)

var (
	triggeredBy string
	pollEvery   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "rebuildctl",
	Short: "Trigger and watch a player rankings rebuild from the command line",
	Long: `rebuildctl runs a full rankings rebuild directly against the configured
Firestore project, bypassing the admin HTTP API. It is an operator tool for
environments where shelling into the server to fix a stuck rebuild is not
practical.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRebuild()
	},
}

func init() {
	rootCmd.Flags().StringVar(&triggeredBy, "triggered-by", "rebuildctl", "identity recorded as triggeredBy on the calculation state")
	rootCmd.Flags().DurationVar(&pollEvery, "poll-every", 500*time.Millisecond, "how often to poll calculation status")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runRebuild() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx := context.Background()
	fsStore, err := store.NewFirestoreStore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
	if err != nil {
		return fmt.Errorf("connect to firestore: %w", err)
	}
	defer fsStore.Close()

	rebuildLock := cache.NewRebuildLock(cfg.Cache)
	controller := engine.NewController(fsStore, engine.ParamsFromConfig(cfg.Rankings), rebuildLock, cfg.Rankings)

	calculationID, err := controller.StartFullRebuild(ctx, triggeredBy)
	if err != nil {
		return fmt.Errorf("start rebuild: %w", err)
	}
	fmt.Printf("started calculation %s\n", calculationID)

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("rebuilding rankings"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	for {
		state, err := controller.GetCalculationStatus(ctx, calculationID)
		if err != nil {
			return fmt.Errorf("poll calculation status: %w", err)
		}

		_ = bar.Set(state.Progress.PercentComplete)

		switch state.Status {
		case models.StatusCompleted:
			_ = bar.Finish()
			fmt.Printf("\ncompleted: %d seasons processed\n", state.Progress.SeasonsProcessed)
			if len(state.Warnings) > 0 {
				fmt.Printf("%d warning(s) recorded\n", len(state.Warnings))
			}
			return nil
		case models.StatusFailed:
			_ = bar.Finish()
			message := "unknown error"
			if state.Error != nil {
				message = state.Error.Message
			}
			return fmt.Errorf("rebuild failed: %s", message)
		}

		time.Sleep(pollEvery)
	}
}
