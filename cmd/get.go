package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var getCmd = &cobra.Command{
	Use:   "get [url]...",
	Short: "Download files without the dashboard",
	Long: `get downloads every URL, prints each download's lifecycle and exits when all
of them have finished or failed. The exit status is non-zero if any failed.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		batchFile, _ := cmd.Flags().GetString("batch")
		outputDir, _ := cmd.Flags().GetString("output")
		jsonOut, _ := cmd.Flags().GetBool("json")
		noHistory, _ := cmd.Flags().GetBool("no-history")

		urls, err := collectURLs(args, batchFile)
		if err != nil {
			return fmt.Errorf("reading batch file: %w", err)
		}
		if len(urls) == 0 {
			return errors.New("no URLs given (pass them as arguments or with --batch)")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, err := newEngine(ctx, loadSettings(), engineOptions{
			OutputDir: outputDir,
			NoHistory: noHistory,
		})
		if err != nil {
			return err
		}

		var failed int
		out := cmd.OutOrStdout()

		var g errgroup.Group
		g.Go(func() error {
			failed = consumeHeadless(out, eng.events, jsonOut)
			return nil
		})

		accepted := eng.startAll(urls)

		done := make(chan struct{})
		go func() {
			eng.registry.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			fmt.Fprintln(cmd.ErrOrStderr(), "Interrupted, cancelling downloads...")
		}

		// Fails whatever is still in flight and closes the events channel
		eng.Close()
		_ = g.Wait()

		rejected := len(urls) - accepted
		if failed > 0 || rejected > 0 {
			return fmt.Errorf("%d of %d downloads did not complete", failed+rejected, len(urls))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringP("batch", "b", "", "File containing URLs to download (one per line)")
	getCmd.Flags().StringP("output", "o", "", "Download root (default: from settings)")
	getCmd.Flags().Bool("json", false, "Print events as JSON lines, including progress")
	getCmd.Flags().Bool("no-history", false, "Do not record results in the history database")
}
