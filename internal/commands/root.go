// Package commands implements the sigquery CLI.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sigquery/sigquery/client"
	"github.com/sigquery/sigquery/config"
	"github.com/sigquery/sigquery/internal/log"
	"github.com/sigquery/sigquery/internal/secrets"
)

var (
	flagConfig  string
	flagProfile string
	flagLevel   string
	flagFormat  string
)

// Version information injected from main via SetVersion.
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

// SetVersion records build-time version information for the version command.
func SetVersion(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
}

// NewRootCommand creates the sigquery root command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sigquery",
		Short: "Signed requests against query-style remote APIs",
		Long: `sigquery executes signed requests against query-style remote APIs.

Profiles in the config file describe the endpoint, credentials, and
signing variant for each remote API. Credentials left out of the config
are resolved from environment variables or the system keychain.

Examples:
  sigquery call DescribeInstances --param InstanceId.1=i-1234
  sigquery status GetServiceStatus
  sigquery configure prod
  sigquery validate --region us-east-1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := log.FromEnv()
			if flagLevel != "" {
				cfg.Level = flagLevel
			}
			if flagFormat != "" {
				cfg.Format = log.Format(flagFormat)
			}
			slog.SetDefault(log.New(cfg))
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: $SIGQUERY_CONFIG or ~/.config/sigquery/config.yaml)")
	cmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "Profile name (default: default_profile from config)")
	cmd.PersistentFlags().StringVar(&flagLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flagFormat, "log-format", "", "Log format (json, text)")

	cmd.AddCommand(newCallCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newConfigureCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// configPath resolves the config file location from the flag or defaults.
func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultPath()
}

// selectedProfile loads the config file and picks the active profile,
// returning its name alongside so credential lookups can key on it.
func selectedProfile() (string, *config.Profile, error) {
	path, err := configPath()
	if err != nil {
		return "", nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return "", nil, err
	}

	name := flagProfile
	if name == "" {
		name = cfg.DefaultProfile
	}
	if name == "" && len(cfg.Profiles) == 1 {
		for n := range cfg.Profiles {
			name = n
		}
	}

	profile, err := cfg.Profile(name)
	if err != nil {
		return "", nil, err
	}
	return name, profile, nil
}

// newClient builds a client from the selected profile with credentials
// resolved through the secrets backends.
func newClient(ctx context.Context) (*client.Client, error) {
	name, profile, err := selectedProfile()
	if err != nil {
		return nil, err
	}

	profile.ResolveCredentials(ctx, name, secrets.DefaultResolver())

	cfg, err := profile.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	cfg.Logger = slog.Default()

	return client.New(cfg)
}
