package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/adreport-cli/internal/ai"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known Gemini models and list prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		current := ""
		if cfg != nil {
			current = cfg.Model
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MODEL\tCONTEXT\tIN $/1K\tOUT $/1K\t")
		for _, name := range ai.ModelNames() {
			mi, _ := ai.LookupModel(name)
			marker := ""
			if name == current {
				marker = "*"
			}
			fmt.Fprintf(tw, "%s%s\t%d\t%.5f\t%.5f\t\n", name, marker, mi.ContextTokens, mi.InputPerK, mi.OutputPerK)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nProviders: %v\n", ai.Providers())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
