package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/djyunz/SBSample/internal/tui"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var errAlreadyRunning = errors.New("sbsample is already running")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sbsample [url]...",
	Short: "A terminal download manager",
	Long: `sbsample downloads files concurrently and files them under a single downloads folder.
Run without a subcommand it opens the dashboard and serves the local HTTP API.`,
	Version:      Version,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runRoot,
}

func runRoot(cmd *cobra.Command, args []string) error {
	isMaster, err := AcquireLock()
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if !isMaster {
		fmt.Fprintln(os.Stderr, "Use 'sbsample add <url>' to add a download to the active instance.")
		return errAlreadyRunning
	}
	defer func() { _ = ReleaseLock() }()

	portFlag, _ := cmd.Flags().GetInt("port")
	batchFile, _ := cmd.Flags().GetString("batch")
	outputDir, _ := cmd.Flags().GetString("output")
	exitWhenDone, _ := cmd.Flags().GetBool("exit-when-done")

	urls, err := collectURLs(args, batchFile)
	if err != nil {
		return fmt.Errorf("reading batch file: %w", err)
	}

	settings := loadSettings()
	tui.ApplyTheme(settings.General.Theme)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eng, err := newEngine(ctx, settings, engineOptions{OutputDir: outputDir})
	if err != nil {
		return err
	}
	defer eng.Close()

	ln, port, err := listen(portFlag)
	if err != nil {
		return fmt.Errorf("starting HTTP API: %w", err)
	}
	if err := saveActivePort(port); err != nil {
		eng.logger.Warn().Err(err).Msg("could not write port file")
	}
	defer removeActivePort()
	eng.logger.Info().Int("port", port).Msg("HTTP API listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveHTTP(gctx, ln, newAPIHandler(eng.registry, settings.General.InterceptPatterns, port, eng.logger))
	})

	eng.startAll(urls)

	runErr := startTUI(eng, exitWhenDone)

	cancel()
	if err := g.Wait(); err != nil {
		eng.logger.Warn().Err(err).Msg("HTTP API stopped with error")
	}
	return runErr
}

// startTUI runs the dashboard until the user quits
func startTUI(eng *engine, exitWhenDone bool) error {
	m := tui.InitialRootModel(eng.registry, eng.events, eng.settings)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if exitWhenDone {
		go func() {
			eng.registry.Wait()
			p.Send(tea.Quit())
		}()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringP("batch", "b", "", "File containing URLs to download (one per line)")
	rootCmd.Flags().IntP("port", "p", 0, "Port to listen on (default: 8080 or first available)")
	rootCmd.Flags().StringP("output", "o", "", "Download root (default: from settings)")
	rootCmd.Flags().Bool("exit-when-done", false, "Exit when all downloads complete")
	rootCmd.SetVersionTemplate("sbsample version {{.Version}} (built " + BuildTime + ")\n")
}
