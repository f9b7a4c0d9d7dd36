package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/batadv/internal/capture"
	"firestige.xyz/batadv/internal/config"
	"firestige.xyz/batadv/internal/sink"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without decoding anything.

The file is loaded with the same defaults and BATADV_* environment
overrides as the decode command. The Kafka sink options are checked too.

Examples:
  batadv validate -c batadv.yml
  batadv validate -c batadv.yml --filter   # also print the BPF program`,
	Run: func(cmd *cobra.Command, args []string) {
		showFilter, _ := cmd.Flags().GetBool("filter")
		if err := runValidate(configFile, showFilter, cmd.OutOrStdout()); err != nil {
			exitWithError("invalid configuration", err)
		}
	},
}

func init() {
	validateCmd.Flags().Bool("filter", false, "print the compiled ethertype filter")
}

func runValidate(path string, showFilter bool, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if cfg.Sinks.Kafka.Enabled {
		if _, err := sink.ParseKafkaConfig(cfg.Sinks.Kafka.Options); err != nil {
			return err
		}
	}

	var enabled []string
	if cfg.Sinks.Console.Enabled {
		enabled = append(enabled, "console("+cfg.Sinks.Console.Format+")")
	}
	if cfg.Sinks.Kafka.Enabled {
		enabled = append(enabled, "kafka")
	}
	if cfg.Sinks.Originators.Enabled {
		enabled = append(enabled, "originators")
	}
	if cfg.Sinks.Stats.Enabled {
		enabled = append(enabled, "stats")
	}
	if len(enabled) == 0 {
		enabled = append(enabled, "none")
	}

	fmt.Fprintf(out, "VALID: ethertype 0x%04x, %d worker(s), sinks: %s\n",
		cfg.Decoder.EtherType, cfg.Decoder.Workers, strings.Join(enabled, ", "))

	if !showFilter {
		return nil
	}
	f, err := capture.NewEtherTypeFilter(cfg.Decoder.EtherType)
	if err != nil {
		return err
	}
	raw, err := f.Raw()
	if err != nil {
		return err
	}
	fmt.Fprint(out, f.String())
	for _, ins := range raw {
		fmt.Fprintf(out, "{ 0x%02x, %d, %d, 0x%08x },\n", ins.Op, ins.Jt, ins.Jf, ins.K)
	}
	return nil
}
