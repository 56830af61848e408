package cmd

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/adreport-cli/internal/kpi"
	"github.com/KaramelBytes/adreport-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	extJSON   bool
	extLayout string
	extOutput string
)

type extractOutput struct {
	kpi.Result
	Numbers map[kpi.Field]kpi.Number `json:"numbers,omitempty"`
	Passed  bool                     `json:"passed"`
	Missing []kpi.Field              `json:"missing,omitempty"`
}

var extractCmd = &cobra.Command{
	Use:   "extract <file.xlsx>",
	Short: "Read the KPIs from a report workbook and show the extraction log",
	Example: `  adreport extract 2024-05.xlsx
  adreport extract 2024-05.xlsx --json --output kpi.json
  adreport extract 2024-05.xlsx --layout my-layout.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ex, err := newExtractor(cfg, extLayout)
		if err != nil {
			return err
		}
		res, err := extractFile(ex, args[0])
		if err != nil {
			return err
		}
		gateErr := newGate(cfg).Check(res.Record)

		out := extractOutput{Result: res, Numbers: res.Record.Numbers(), Passed: gateErr == nil}
		var qe *kpi.QualityError
		if errors.As(gateErr, &qe) {
			out.Missing = qe.Missing
		}

		w := cmd.OutOrStdout()
		if extJSON || extOutput != "" {
			b, err := utils.PrettyJSON(out)
			if err != nil {
				return err
			}
			if extJSON {
				fmt.Fprintln(w, string(b))
			}
			if extOutput != "" {
				if err := utils.SafeWriteFile(extOutput, b); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				if !extJSON {
					fmt.Fprintf(w, "💾 Saved extraction to %s\n", extOutput)
				}
			}
		}
		if !extJSON {
			printExtraction(w, res)
			if gateErr == nil {
				fmt.Fprintln(w, "\n✓ Values look current")
			}
		}
		if gateErr != nil {
			return staleError(gateErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&extJSON, "json", false, "print the record and log as JSON")
	extractCmd.Flags().StringVar(&extLayout, "layout", "", "YAML layout override (default from config or built-in)")
	extractCmd.Flags().StringVar(&extOutput, "output", "", "also write the JSON result to this path")
}
