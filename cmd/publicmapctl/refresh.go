package main

import (
	"context"
	"fmt"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/db"
	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/EmpoweredVote/EV-PublicMap/internal/snapshot"
	"github.com/spf13/cobra"
)

var (
	refreshActor   string
	refreshTimeout time.Duration
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild today's public snapshot once",
	Long:  `Rebuild today's public snapshot in a single transaction. Intended for external cron when the in-process scheduler is disabled.`,
	RunE:  runRefresh,
}

func init() {
	refreshCmd.Flags().StringVar(&refreshActor, "actor", "", "Actor recorded in the audit log (default: SYSTEM_ACTOR_ID)")
	refreshCmd.Flags().DurationVar(&refreshTimeout, "timeout", 10*time.Minute, "Abort the refresh after this long")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	d, err := db.Connect(cfg.DatabaseURL, db.Options{Schema: cfg.DBSchema, LogLevel: cfg.DBLogLevel})
	if err != nil {
		return err
	}
	if err := points.Init(d); err != nil {
		return err
	}
	if err := snapshot.Init(d); err != nil {
		return err
	}

	actor := refreshActor
	if actor == "" {
		actor = cfg.SystemActorID
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), refreshTimeout)
	defer cancel()

	task := snapshot.NewTask(snapshot.NewBuilder(d, loc), snapshot.LogObserver{})
	res, err := task.Run(ctx, snapshot.TriggerCLI, actor)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	fmt.Printf("Refreshed snapshot %s: %d rows at %s\n", res.SnapshotDate, res.Rows, res.RefreshedAt.Format(time.RFC3339))
	return nil
}
