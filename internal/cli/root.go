package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "INTRALIGN"

// version is set at build time with -ldflags "-X github.com/ppiankov/intralign/internal/cli.version=..."
var version = "0.1.0-dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "intralign",
	Short: "intralign - comparative analysis of simplified texts",
	Long: `intralign aligns a source text with its simplified rewrite paragraph by
paragraph, sentence by sentence and phrase by phrase, detects the
simplification strategies used, and keeps a reviewed, audited record of
those findings for export.

Every confidence comes with the evidence that produced it. Annotations
are proposals until a reviewer accepts, rejects or corrects them.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command, cancelling its context on SIGINT or SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "intralign %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.intralign/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console, json")
	flags.String("storage-mode", "", "annotation storage: fs, sqlite, dual, fallback")
	flags.String("storage-dir", "", "directory of the filesystem backend")
	flags.String("sqlite-path", "", "database file of the SQLite backend")

	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("storage.mode", flags.Lookup("storage-mode"))
	_ = viper.BindPFlag("storage.dir", flags.Lookup("storage-dir"))
	_ = viper.BindPFlag("storage.sqlite_path", flags.Lookup("sqlite-path"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setDefaults(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".intralign"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// INTRALIGN_STORAGE_MODE overrides storage.mode, and so on
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("embedding.api_key", envPrefix+"_EMBEDDING_API_KEY", "OPENAI_API_KEY")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
