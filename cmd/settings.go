package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/djyunz/SBSample/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.LoadSettings()
		if err != nil {
			return err
		}
		describe, _ := cmd.Flags().GetBool("describe")
		if describe {
			printSettingsHelp(cmd.OutOrStdout())
			return nil
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(settings)
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetSettingsPath())
	},
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path := config.GetSettingsPath()
		if !force && fileExists(path) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.SaveSettingsTo(path, config.DefaultSettings()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	settingsCmd.AddCommand(settingsInitCmd)

	settingsCmd.Flags().Bool("describe", false, "List every setting with its description")
	settingsInitCmd.Flags().Bool("force", false, "Overwrite an existing settings file")
}

func printSettingsHelp(w io.Writer) {
	meta := config.GetSettingsMetadata()
	for _, category := range config.CategoryOrder() {
		fmt.Fprintf(w, "%s\n", category)
		for _, m := range meta[category] {
			fmt.Fprintf(w, "  %-26s %-9s %s\n", m.Key, m.Type, m.Description)
		}
	}
}
