package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/djyunz/SBSample/internal/core"
	"github.com/djyunz/SBSample/internal/engine/types"
	"github.com/djyunz/SBSample/internal/utils"
)

var addCmd = &cobra.Command{
	Use:   "add <url>...",
	Short: "Add downloads to the running instance",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		batchFile, _ := cmd.Flags().GetString("batch")

		urls, err := collectURLs(args, batchFile)
		if err != nil {
			return fmt.Errorf("reading batch file: %w", err)
		}
		if len(urls) == 0 {
			return errors.New("no URLs given (pass them as arguments or with --batch)")
		}

		svc, err := connect(host)
		if err != nil {
			return err
		}
		defer func() { _ = svc.Shutdown() }()

		return addURLs(cmd.OutOrStdout(), cmd.ErrOrStderr(), svc, urls)
	},
}

var listCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the downloads of the running instance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")

		svc, err := connect(host)
		if err != nil {
			return err
		}
		defer func() { _ = svc.Shutdown() }()

		items, err := svc.List()
		if err != nil {
			return err
		}
		printItems(cmd.OutOrStdout(), items)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)

	addCmd.Flags().String("host", "", "Instance address (default: from the port file)")
	addCmd.Flags().StringP("batch", "b", "", "File containing URLs to add (one per line)")
	listCmd.Flags().String("host", "", "Instance address (default: from the port file)")
}

// connect returns a client for the running instance after a health check
func connect(host string) (*core.RemoteDownloadService, error) {
	baseURL, err := resolveBaseURL(host)
	if err != nil {
		return nil, err
	}
	svc := core.NewRemoteDownloadService(baseURL)
	if err := svc.Health(); err != nil {
		_ = svc.Shutdown()
		return nil, fmt.Errorf("instance at %s is not responding: %w", baseURL, err)
	}
	return svc, nil
}

func addURLs(out, errOut io.Writer, svc core.DownloadService, urls []string) error {
	failed := 0
	for _, u := range urls {
		id, err := svc.Add(u)
		if err != nil {
			fmt.Fprintf(errOut, "Error adding %s: %v\n", u, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "Queued: %s [%s]\n", u, shortID(id))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs were not added", failed, len(urls))
	}
	return nil
}

func printItems(w io.Writer, items []types.ItemStatus) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No downloads.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPROGRESS\tURL\tDETAIL")
	for _, it := range items {
		detail := it.LocalFileLocation
		if it.Error != "" {
			detail = it.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(it.ID), it.Status, utils.FormatPercent(it.Progress), it.URL, detail)
	}
	_ = tw.Flush()
}
