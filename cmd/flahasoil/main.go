package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

type rootOptions struct {
	output  string
	precise bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "flahasoil",
		Short:         "Soil water, salinity and irrigation calculations",
		Long:          `Runs the FlahaSoil calculations locally and prints the result as JSON or YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "json" && opts.output != "yaml" {
				return fmt.Errorf("unsupported output format %q (json or yaml)", opts.output)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "Output format: json or yaml")
	rootCmd.PersistentFlags().BoolVar(&opts.precise, "precise", false, "Print full precision instead of display rounding")

	rootCmd.AddCommand(newWaterCmd(opts))
	rootCmd.AddCommand(newCurveCmd(opts))
	rootCmd.AddCommand(newProfileCmd(opts))
	rootCmd.AddCommand(newLeachingCmd(opts))
	rootCmd.AddCommand(newCropsCmd(opts))
	return rootCmd
}

// render writes v in the selected format, display-rounded unless --precise is set.
// YAML keys follow the JSON field names.
func render(w io.Writer, opts *rootOptions, v interface{}) error {
	if !opts.precise {
		v = present(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if opts.output == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return enc.Close()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
