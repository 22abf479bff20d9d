package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/djyunz/SBSample/internal/config"
	"github.com/djyunz/SBSample/internal/engine/state"
	"github.com/djyunz/SBSample/internal/engine/types"
	"github.com/djyunz/SBSample/internal/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show finished and failed downloads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOut, _ := cmd.Flags().GetBool("json")
		clearAll, _ := cmd.Flags().GetBool("clear")

		store, err := state.Open(cmd.Context(), filepath.Join(config.GetStateDir(), "history.db"))
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if clearAll {
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		}

		entries, err := store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if jsonOut {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		printHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries")
	historyCmd.Flags().Bool("json", false, "Print entries as JSON")
	historyCmd.Flags().Bool("clear", false, "Delete all history entries")
}

func printHistory(w io.Writer, entries []types.DownloadEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No downloads in history.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tWHEN\tTOOK\tFILE")
	for _, e := range entries {
		file := e.DestPath
		if e.Status != types.StateFinished.String() {
			file = fmt.Sprintf("%s (%s at %s)", e.URL, e.Error, utils.FormatPercent(e.Progress))
		}
		took := (time.Duration(e.TimeTaken) * time.Millisecond).Round(time.Millisecond)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(e.ID), e.Status, utils.FormatAge(e.CompletedAt), took, file)
	}
	_ = tw.Flush()
}
