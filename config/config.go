package config

import (
	"fmt"
	"os"
	"strings"

	"codebundle/constants/lipgloss"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ScanConfig is the inventory policy: which files the scanner collects.
// The session core treats these lists as opaque configuration.
type ScanConfig struct {
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	ExcludeDirs       []string `mapstructure:"exclude_dirs"`
}

// GuardConfig is the direct-read skip/decode policy.
type GuardConfig struct {
	MaxFileSizeBytes int64    `mapstructure:"max_file_size_bytes"`
	SkipNames        []string `mapstructure:"skip_names"`
	SkipExtensions   []string `mapstructure:"skip_extensions"`
	Encodings        []string `mapstructure:"encodings"`
}

// CaptureConfig controls the manual paste capture.
type CaptureConfig struct {
	EndMarker    string `mapstructure:"end_marker"`
	ProgressStep int    `mapstructure:"progress_step"`
}

// OutputConfig names the generated files. Both are always excluded from
// scanning so a bundle never swallows itself.
type OutputConfig struct {
	BundleFile string `mapstructure:"bundle_file"`
	StateFile  string `mapstructure:"state_file"`
}

// LogConfig configures the rotating session log file.
type LogConfig struct {
	Path       string `mapstructure:"path"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Config represents the structure of the configuration file.
type Config struct {
	Version string        `mapstructure:"version"`
	Theme   string        `mapstructure:"theme"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Guard   GuardConfig   `mapstructure:"guard"`
	Capture CaptureConfig `mapstructure:"capture"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
}

// DefaultConfig values mirror the tool's built-in scan and guard policy.
var DefaultConfig = Config{
	Version: "1.0.0",
	Theme:   "dracula",
	Scan: ScanConfig{
		AllowedExtensions: []string{
			"py", "sql",
			"html", "css", "js",
			"c", "h",
			"cpp", "hpp", "cc", "hh",
			"cs",
		},
		ExcludeDirs: []string{
			".git", ".svn", ".hg",
			"__pycache__", ".pytest_cache",
			"node_modules",
			"venv", ".venv",
			"dist", "build",
			".idea", ".vscode",
		},
	},
	Guard: GuardConfig{
		MaxFileSizeBytes: 5 * 1024 * 1024,
		SkipNames: []string{
			".env", ".env.local", ".env.production", ".env.development",
			"id_rsa", "id_dsa", "id_ed25519",
		},
		SkipExtensions: []string{
			"pem", "key", "p12", "pfx", "der", "crt", "cer",
		},
		Encodings: []string{"utf-8", "utf-8-sig", "euc-kr"},
	},
	Capture: CaptureConfig{
		EndMarker:    `\END`,
		ProgressStep: 50,
	},
	Output: OutputConfig{
		BundleFile: "bundle.txt",
		StateFile:  "bundle_state.json",
	},
	Log: LogConfig{
		Path:       ".codebundle/session.log",
		Level:      "info",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 14,
		Compress:   false,
	},
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment
// variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) *Config {
	var config *Config

	setDefaults()

	viper.AutomaticEnv()
	bindEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error reading config file: %v", err)))
			os.Exit(1)
		}
	} else {
		viper.SetConfigName("codebundle-config")
		viper.AddConfigPath(cwd)

		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			// If YAML fails, try JSON; no config file at all is fine.
			viper.SetConfigType("json")
			_ = viper.ReadInConfig()
		}
	}

	bindFlags(rootCmd)

	if err := viper.Unmarshal(&config); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Unable to decode into struct: %v", err)))
		os.Exit(1)
	}

	return config
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("theme", DefaultConfig.Theme)
	viper.SetDefault("scan.allowed_extensions", DefaultConfig.Scan.AllowedExtensions)
	viper.SetDefault("scan.exclude_dirs", DefaultConfig.Scan.ExcludeDirs)
	viper.SetDefault("guard.max_file_size_bytes", DefaultConfig.Guard.MaxFileSizeBytes)
	viper.SetDefault("guard.skip_names", DefaultConfig.Guard.SkipNames)
	viper.SetDefault("guard.skip_extensions", DefaultConfig.Guard.SkipExtensions)
	viper.SetDefault("guard.encodings", DefaultConfig.Guard.Encodings)
	viper.SetDefault("capture.end_marker", DefaultConfig.Capture.EndMarker)
	viper.SetDefault("capture.progress_step", DefaultConfig.Capture.ProgressStep)
	viper.SetDefault("output.bundle_file", DefaultConfig.Output.BundleFile)
	viper.SetDefault("output.state_file", DefaultConfig.Output.StateFile)
	viper.SetDefault("log.path", DefaultConfig.Log.Path)
	viper.SetDefault("log.level", DefaultConfig.Log.Level)
	viper.SetDefault("log.max_size_mb", DefaultConfig.Log.MaxSizeMB)
	viper.SetDefault("log.max_backups", DefaultConfig.Log.MaxBackups)
	viper.SetDefault("log.max_age_days", DefaultConfig.Log.MaxAgeDays)
	viper.SetDefault("log.compress", DefaultConfig.Log.Compress)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("theme", "CODEBUNDLE_THEME")
	_ = viper.BindEnv("guard.max_file_size_bytes", "CODEBUNDLE_MAX_FILE_SIZE")
	_ = viper.BindEnv("output.bundle_file", "CODEBUNDLE_BUNDLE_FILE")
	_ = viper.BindEnv("output.state_file", "CODEBUNDLE_STATE_FILE")
	_ = viper.BindEnv("log.level", "CODEBUNDLE_LOG_LEVEL")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(rootCmd *cobra.Command) {
	_ = viper.BindPFlag("theme", rootCmd.PersistentFlags().Lookup("theme"))
	_ = viper.BindPFlag("output.bundle_file", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("output.state_file", rootCmd.PersistentFlags().Lookup("state_file"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log_level"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Syntax highlighting theme for previews (e.g., 'dracula', 'monokai').")
	rootCmd.PersistentFlags().String("output", DefaultConfig.Output.BundleFile, "Path of the generated bundle document.")
	rootCmd.PersistentFlags().String("state_file", DefaultConfig.Output.StateFile, "Path of the session checkpoint file.")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.Log.Level, "Log level for the session log file ('debug', 'info', 'warn', 'error').")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}
