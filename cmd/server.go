package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/djyunz/SBSample/internal/config"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the sbsample background server (daemon)",
	Long:  `Start, stop, or check the status of the sbsample background server.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start [url]...",
	Short: "Start the sbsample server in headless mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		isMaster, err := AcquireLock()
		if err != nil {
			return fmt.Errorf("acquiring lock: %w", err)
		}
		if !isMaster {
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

		savePID()
		defer removePID()

		return startServerLogic(cmd, urls, portFlag, outputDir, exitWhenDone)
	},
}

var serverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running sbsample server",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := readPID()
		if pid == 0 {
			fmt.Println("No running sbsample server found (PID file missing).")
			return nil
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("finding process %d: %w", pid, err)
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("stopping server: %w", err)
		}

		fmt.Printf("Sent stop signal to process %d\n", pid)
		return nil
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the status of the sbsample server",
	Run: func(cmd *cobra.Command, args []string) {
		pid := readPID()
		if pid == 0 {
			fmt.Println("sbsample server is NOT running.")
			return
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			fmt.Printf("sbsample server is NOT running (Process %d not found).\n", pid)
			return
		}

		// Signal 0 only checks that the process exists
		if err := process.Signal(syscall.Signal(0)); err != nil {
			fmt.Printf("sbsample server is NOT running (Process %d dead).\n", pid)
			return
		}

		fmt.Printf("sbsample server is running (PID: %d, Port: %d).\n", pid, readActivePort())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStopCmd)
	serverCmd.AddCommand(serverStatusCmd)

	serverStartCmd.Flags().StringP("batch", "b", "", "File containing URLs to download")
	serverStartCmd.Flags().IntP("port", "p", 0, "Port to listen on")
	serverStartCmd.Flags().StringP("output", "o", "", "Download root (default: from settings)")
	serverStartCmd.Flags().Bool("exit-when-done", false, "Exit when all downloads complete")
}

func pidFilePath() string {
	return filepath.Join(config.GetStateDir(), "pid")
}

func savePID() {
	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: writing PID file: %v\n", err)
	}
}

func removePID() {
	if err := os.Remove(pidFilePath()); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: removing PID file: %v\n", err)
	}
}

func readPID() int {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return pid
}

// startServerLogic serves the HTTP API and logs download events until
// interrupted, or until every download is done with exitWhenDone.
func startServerLogic(cmd *cobra.Command, urls []string, portFlag int, outputDir string, exitWhenDone bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := loadSettings()
	eng, err := newEngine(ctx, settings, engineOptions{
		OutputDir: outputDir,
		LogOut:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	ln, port, err := listen(portFlag)
	if err != nil {
		eng.Close()
		return fmt.Errorf("starting HTTP API: %w", err)
	}
	if err := saveActivePort(port); err != nil {
		eng.logger.Warn().Err(err).Msg("could not write port file")
	}
	defer removeActivePort()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveHTTP(gctx, ln, newAPIHandler(eng.registry, settings.General.InterceptPatterns, port, eng.logger))
	})
	g.Go(func() error {
		logEvents(eng.logger, eng.events)
		return nil
	})

	eng.logger.Info().Str("version", Version).Int("port", port).Msg("server mode, press Ctrl+C to exit")

	eng.startAll(urls)

	if exitWhenDone {
		go func() {
			eng.registry.Wait()
			eng.logger.Info().Msg("all downloads finished, exiting")
			stop()
		}()
	}

	<-gctx.Done()
	eng.logger.Info().Msg("shutting down")
	eng.Close()
	return g.Wait()
}
