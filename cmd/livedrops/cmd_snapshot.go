package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/livedrops/internal/clock"
	"github.com/user/livedrops/internal/types"
	"github.com/user/livedrops/internal/views"
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVar(&snapshotTab, "tab", "all", "rarity class to show: all, special or mythic")
	snapshotCmd.Flags().BoolVar(&snapshotExact, "exact", false, "print exact timestamps instead of relative labels")
}

var (
	snapshotTab   string
	snapshotExact bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch the activity feed once and print it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tab, err := views.ParseTab(snapshotTab)
		if err != nil {
			return err
		}
		mode := views.TimeRelative
		if snapshotExact {
			mode = views.TimeExact
		}

		cfg := loadConfig()
		setupLogging(cfg)

		// Every event in a one-shot fetch is revealed at once.
		cfg.Timing.FreshThreshold = 0
		cfg.Timing.BacklogThreshold = 0
		a := newApp(cfg, clock.Real())
		defer a.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := a.engine.Load(ctx, newSnapshotSource(cfg)); err != nil {
			return err
		}

		entries := a.ambient.Entries(tab, mode)
		if len(entries) == 0 {
			fmt.Fprintln(os.Stdout, "No drops.")
			return nil
		}
		printEntries(entries)
		return nil
	},
}

func printEntries(entries []views.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tRARITY\tITEM\tPLAYER\tFLAGS")
	for _, e := range entries {
		d := e.Event.Drop
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Event.ID, e.Time, d.Rarity, d.ItemName, e.Event.Actor.DisplayName(), dropFlags(d))
	}
	w.Flush()
}

func dropFlags(d types.Drop) string {
	var flags []string
	if d.Lucky {
		flags = append(flags, "lucky")
	}
	if d.BonusEvent {
		flags = append(flags, "bonus")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
