package main

import (
	"context"
	"fmt"

	"go-gin-event-scheduler/internal/clock"
	"go-gin-event-scheduler/internal/model"
	"go-gin-event-scheduler/internal/repository"
	apperrors "go-gin-event-scheduler/pkg/app_errors"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the persisted event state and report its size",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		snap, err := store.Load(ctx)
		if err != nil {
			return apperrors.Persistence("load", err)
		}
		// loading through the repository runs the same integrity checks serve would
		repo, err := repository.NewEventRepository(ctx, store, clock.System())
		if err != nil {
			return err
		}
		upcoming, err := repo.Upcoming(ctx, model.NewTimestamp(clock.System().Now()), cfg.Scanner.Window)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "events: %d\nnext_id: %d\ndue within %s: %d\n",
			len(snap.Events), snap.NextID, cfg.Scanner.Window, len(upcoming))
		return nil
	},
}
