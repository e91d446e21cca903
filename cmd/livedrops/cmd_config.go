package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/user/livedrops/internal/config"
)

func init() {
	rootCmd.AddCommand(newConfigCmd())
}

func newConfigCmd() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit the config file",
		Long: `Read and write the JSON config file. Keys are dot-separated paths such
as snapshot.url, timing.full_delay or caps.store. Values that parse as JSON
are stored as JSON; anything else is stored as a string, so durations are
written as "5s" or "300ms".`,
	}
	cmd.PersistentFlags().BoolVar(&showSecrets, "show-secrets", false, "print secret values unmasked")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print every configuration value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := config.ListValues(loadConfig(), !showSecrets)
			if err != nil {
				return fmt.Errorf("list config: %w", err)
			}
			printValues(os.Stdout, values)
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			val, err := config.GetValue(cfgPath, key)
			if err != nil {
				return err
			}
			if !showSecrets {
				val = config.MaskSecrets(map[string]any{key: val})[key]
			}
			fmt.Fprintln(os.Stdout, val)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write one configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, raw := args[0], args[1]
			if err := config.SetValue(cfgPath, key, raw); err != nil {
				return err
			}
			if config.IsSecretKey(key) {
				raw = "***"
			}
			fmt.Fprintf(os.Stdout, "%s = %s\n", key, raw)
			return nil
		},
	}

	cmd.AddCommand(list, get, set)
	return cmd
}

func printValues(w io.Writer, values map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(values)) {
		fmt.Fprintf(w, "%s = %v\n", k, values[k])
	}
}
