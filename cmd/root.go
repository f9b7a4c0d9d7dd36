// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"firestige.xyz/batadv/internal/config"
	"firestige.xyz/batadv/internal/log"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "batadv",
	Short: "batadv - B.A.T.M.A.N. Advanced protocol decoder",
	Long: `batadv decodes B.A.T.M.A.N. Advanced mesh traffic of every protocol
generation, from the early routing announcements to the v15 OGM2/ELP
family with TVLV containers and fragment reassembly.

Decoded trees go to the console; tapped headers can feed Kafka, an
originator table and Prometheus metrics.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults and BATADV_* env only when empty)")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(hexCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig loads the configuration, applies command line overrides and
// installs the global logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}
	if err := log.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// applyFlags copies explicitly set decoder and output flags over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Lookup("format") != nil && flags.Changed("format") {
		cfg.Sinks.Console.Format, _ = flags.GetString("format")
		cfg.Sinks.Console.Enabled = true
	}
	if flags.Lookup("workers") != nil && flags.Changed("workers") {
		cfg.Decoder.Workers, _ = flags.GetInt("workers")
	}
	if flags.Lookup("ethertype") != nil && flags.Changed("ethertype") {
		s, _ := flags.GetString("ethertype")
		v, err := parseEtherType(s)
		if err != nil {
			return err
		}
		cfg.Decoder.EtherType = v
	}
	if flags.Lookup("quiet") != nil && flags.Changed("quiet") {
		quiet, _ := flags.GetBool("quiet")
		cfg.Sinks.Console.Enabled = !quiet
	}
	if flags.Lookup("summary") != nil && flags.Changed("summary") {
		summary, _ := flags.GetBool("summary")
		cfg.Sinks.Originators.Enabled = cfg.Sinks.Originators.Enabled || summary
		cfg.Sinks.Stats.Enabled = cfg.Sinks.Stats.Enabled || summary
	}
	return nil
}

func parseEtherType(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid ethertype %q: %w", s, err)
	}
	return uint16(v), nil
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
