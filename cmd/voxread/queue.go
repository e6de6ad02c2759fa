package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the playback queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued items",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.db.Close()
		items := a.qc.Items()
		current := a.qc.CurrentIndex()
		for i, item := range items {
			marker := "  "
			if i == current {
				marker = "> "
			}
			fmt.Printf("%s%d. %s [%s] %s, added %s\n", marker, i, item.Title, item.ID,
				humanizeMinutes(item.EstimatedMinutes), humanize.Time(item.AddedAt))
		}
		return nil
	},
}

var queuePlayCmd = &cobra.Command{
	Use:   "play <id>",
	Short: "Play a queued item by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.qc.PlayItem(ctx, args[0]); err != nil {
			return err
		}
		waitForInterrupt()
		a.eng.Stop()
		return nil
	},
}

var queueNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Play the next queued item",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.qc.PlayNext(ctx); err != nil {
			return err
		}
		waitForInterrupt()
		a.eng.Stop()
		return nil
	},
}

var queueRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an item from the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.db.Close()
		return a.qc.RemoveItem(args[0])
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the entire queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.db.Close()
		a.qc.ClearAll()
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueListCmd, queuePlayCmd, queueNextCmd, queueRemoveCmd, queueClearCmd)
}

func humanizeMinutes(m int) string {
	return humanize.Comma(int64(m)) + " min"
}
