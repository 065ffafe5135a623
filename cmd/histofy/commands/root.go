package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/histofy/histofy/internal/version"
	"github.com/histofy/histofy/pkg/cobrax/topics"
	"github.com/histofy/histofy/pkg/logging"
	"github.com/histofy/histofy/pkg/ui"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	// Initialize custom template formatting functions
	initTemplateFormatting()

	var verbosity int

	rootCmd := &cobra.Command{
		Use:     "histofy",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Setup logging based on verbosity
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")

			// A bad --output value should fail before any command runs.
			name, _ := cmd.Flags().GetString("output")
			if _, err := ui.ParseFormat(name); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// If we get here, no subcommand was provided
			// Show help but return an error to indicate incorrect usage
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"histofy version {{.Version}}\n  commit: %s\n  built:  %s\n",
		version.Commit, version.Date))

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().Bool("dry-run", false, MsgFlagDryRun)
	rootCmd.PersistentFlags().Bool("force", false, MsgFlagForce)
	rootCmd.PersistentFlags().BoolP("yes", "y", false, MsgFlagYes)
	rootCmd.PersistentFlags().StringP("output", "o", "auto", MsgFlagOutput)

	// Disable automatic help command (we'll use our custom one from topics)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Define command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "COMMANDS:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "misc",
		Title: "MISC:",
	})

	// Set custom help template
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	// Add all commands
	rootCmd.AddCommand(newCommitCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newTopicsCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Initialize topic-based help system
	// Try to find help topics relative to the executable location
	exe, err := os.Executable()
	if err == nil {
		// Look for help topics in various locations
		possiblePaths := []string{
			filepath.Join(filepath.Dir(exe), "topics"),                               // Same directory as binary (production)
			filepath.Join(filepath.Dir(exe), "..", "..", "cmd", "histofy", "topics"), // Development
			"cmd/histofy/topics", // Current directory fallback
		}

		for _, helpPath := range possiblePaths {
			if _, err := os.Stat(helpPath); err == nil {
				opts := topics.Options{
					Extensions: []string{".txt", ".md"},
					// Always use Glamour renderer for markdown files
					Renderer: topics.NewGlamourRenderer(),
				}

				if err := topics.InitializeWithOptions(rootCmd, helpPath, opts); err == nil {
					break
				}
			}
		}
	}

	return rootCmd
}

// outputFormat resolves the --output flag against the real stdout.
func outputFormat(cmd *cobra.Command) ui.Format {
	name, _ := cmd.Root().PersistentFlags().GetString("output")
	format, err := ui.ParseFormat(name)
	if err != nil {
		format = ui.FormatAuto
	}
	return ui.Resolve(format, os.Stdout)
}

// confirm asks before a mutating step. --yes answers every prompt.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	yes, _ := cmd.Root().PersistentFlags().GetBool("yes")
	if yes {
		return true, nil
	}
	return ui.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt, false)
}
