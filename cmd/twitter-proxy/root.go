package main

import (
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-twitter-proxy/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	envFile    string
	flags      *config.Flags
)

var rootCmd = &cobra.Command{
	Use:           "twitter-proxy",
	Short:         "HTTP/JSON proxy for a Twitter/X account",
	Long:          `twitter-proxy exposes timeline, search, messaging and social-graph actions of one logged-in account as a small JSON API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file loaded into the environment when present")
	flags = config.BindFlags(pf)

	rootCmd.AddCommand(serveCmd, cookiesCmd, versionCmd)
}

// loadConfig resolves the configuration for the running command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}
	flags.Apply(cfg)
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(version)
	},
}
