package cmd

import (
	"fmt"
	"os"

	"codebundle/config"
	"codebundle/constants/lipgloss"
	"codebundle/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is stamped at build time via ldflags.
var Version = "dev"

// RootDependencies holds the wiring shared by every subcommand.
type RootDependencies struct {
	Config *config.Config
	Logger *zap.Logger
	Cwd    string
}

// rootCmd: codebundle [paths...]
var rootCmd = &cobra.Command{
	Use:   "codebundle [paths...]",
	Short: "Collect project files into a single reviewable bundle document.",
	Long: `Codebundle walks the given paths, builds an ordered inventory of source
files, and acquires their content either by reading them from disk or by
interactive copy-paste capture. Progress is checkpointed after every step,
so an interrupted session resumes exactly where it stopped. The result is
one bundle document with clearly delimited per-file sections.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleBundleCommand(rootDependencies, cmd, args)
	},
}

func init() {
	config.InitFlags(rootCmd)

	rootCmd.Flags().BoolP("auto", "a", false, "Start in AUTO mode: read every file from disk without prompting.")
	rootCmd.Flags().BoolP("paste", "p", false, "Start in PASTE mode: capture every file by hand.")
	rootCmd.Flags().Bool("hybrid", false, "Start in HYBRID mode: auto-read first, offer paste on failure.")

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level regardless of the configured log level.")
}

func handleRootCommand(cmd *cobra.Command) *RootDependencies {
	rootDependencies := &RootDependencies{}

	var err error
	rootDependencies.Cwd, err = os.Getwd()
	if err != nil || rootDependencies.Cwd == "" {
		fmt.Println(lipgloss.Red.Render("Error getting current directory"))
		return nil
	}

	rootDependencies.Config = config.LoadConfigs(cmd.Root(), rootDependencies.Cwd)

	logCfg := rootDependencies.Config.Log
	if verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose"); verbose {
		logCfg.Level = "debug"
	}
	rootDependencies.Logger = logging.Setup(logging.Options{
		Path:       logCfg.Path,
		Level:      logCfg.Level,
		MaxSizeMB:  logCfg.MaxSizeMB,
		MaxBackups: logCfg.MaxBackups,
		MaxAgeDays: logCfg.MaxAgeDays,
		Compress:   logCfg.Compress,
	}, Version)

	return rootDependencies
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}
}
