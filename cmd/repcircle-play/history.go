package main

import (
	"fmt"

	"github.com/meltforce/repcircle/internal/localstore"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List completed workouts from the local database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := resolveUser()
		if err != nil {
			return err
		}
		store, err := localstore.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		workouts, err := store.History(cmd.Context(), userID, historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(workouts) == 0 {
			fmt.Fprintln(out, "No workouts yet.")
			return nil
		}
		for _, w := range workouts {
			fmt.Fprintln(out, localstore.Describe(w))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of workouts to show")
	rootCmd.AddCommand(historyCmd)
}
