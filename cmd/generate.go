package cmd

import (
	"context"
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/KaramelBytes/adreport-cli/internal/ai"
	"github.com/KaramelBytes/adreport-cli/internal/report"
	"github.com/KaramelBytes/adreport-cli/internal/utils"
	"github.com/spf13/cobra"
)

// defaultGenerateTimeoutSec bounds a whole generate run: six attempts and
// 31s of backoff fit inside it. Runtimes carry no per-attempt timeout.
const defaultGenerateTimeoutSec = 300

var (
	genModel       string
	genProvider    string
	genMaxTokens   int
	genTemp        float64
	genDryRun      bool
	genQuiet       bool
	genJSON        bool
	genPrintPrompt bool
	genBudgetLimit float64
	genOutputPath  string
	genOutputFmt   string
	genTimeoutSec  int
	genLayout      string
	// Business context
	genPreset string
	genGoal   string
	genIssues string
	genTasks  string
)

// expectedOutputTokens is the cost-estimate allowance for three short lines.
const expectedOutputTokens = 400

var generateCmd = &cobra.Command{
	Use:   "generate <file.xlsx>",
	Short: "Extract KPIs and generate the three-line client summary",
	Example: `  adreport generate 2024-05.xlsx --dry-run
  adreport generate 2024-05.xlsx --issues "CPA高騰" --tasks "除外KW追加"
  adreport generate 2024-05.xlsx --preset <preset-id> --output summary.txt
  adreport generate 2024-05.xlsx --provider genai --model gemini-2.5-pro --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if genJSON {
			genQuiet = true
		}
		out := cmd.OutOrStdout()

		ex, err := newExtractor(cfg, genLayout)
		if err != nil {
			return err
		}
		res, err := extractFile(ex, args[0])
		if err != nil {
			return err
		}
		gate := newGate(cfg)
		if !genQuiet {
			printExtraction(out, res)
		}
		if err := gate.Check(res.Record); err != nil {
			return staleError(err)
		}

		rc, err := resolveContext(cmd.Context(), cfg, contextOptions{
			PresetID: genPreset,
			Goal:     genGoal,
			Issues:   genIssues,
			Tasks:    genTasks,
		})
		if err != nil {
			return err
		}

		model := selectModel(cfg, genModel)
		maxTokens := genMaxTokens
		if maxTokens == 0 && cfg != nil {
			maxTokens = cfg.MaxTokens
		}
		temp := genTemp
		if !cmd.Flags().Changed("temp") && cfg != nil {
			temp = cfg.Temperature
		}

		sum := &report.Summarizer{
			Gate:        gate,
			Model:       model,
			Temperature: temp,
			MaxTokens:   maxTokens,
			Logger:      logger,
		}
		req := sum.Request(res.Record, rc)
		breakdown := utils.TokenBreakdown(map[string]string{"system": req.System, "prompt": req.Prompt})
		tokens := breakdown["system"] + breakdown["prompt"]
		if !genQuiet {
			fmt.Fprintf(out, "\nTokens: total≈%d (system≈%d, prompt≈%d)\n", tokens, breakdown["system"], breakdown["prompt"])
		}

		var estCost float64
		if mi, ok := ai.LookupModel(model); ok {
			completion := expectedOutputTokens
			if maxTokens > 0 {
				completion = maxTokens
			}
			if cost, ok := ai.EstimateCostUSD(model, tokens, completion); ok {
				estCost = cost
				if !genQuiet {
					fmt.Fprintf(out, "Estimated max cost: ~$%.4f (in %.5f/out %.5f per 1K tokens)\n", cost, mi.InputPerK, mi.OutputPerK)
				}
			}
		} else if !genQuiet {
			fmt.Fprintf(out, "⚠ Unknown model %s: no cost estimate\n", model)
		}
		if err := enforceBudget(estCost, genBudgetLimit); err != nil {
			return err
		}

		if genDryRun {
			if !genQuiet {
				digest := sha1.Sum([]byte(req.Prompt))
				fmt.Fprintln(out, "\n--dry-run: no API call will be made. Prompt preview below --")
				fmt.Fprintf(out, "Request ID (dry-run): sim_%x\n", digest[:6])
			}
			fmt.Fprintln(out, req.Prompt)
			return nil
		}

		if genPrintPrompt && !genQuiet {
			fmt.Fprintln(out, "\n--print-prompt: sending the following prompt --")
			fmt.Fprintln(out, req.Prompt)
		}

		rt, providerName, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: genProvider})
		if err != nil {
			return err
		}
		sum.Runtime = rt

		timeoutSec := genTimeoutSec
		if timeoutSec <= 0 {
			timeoutSec = defaultGenerateTimeoutSec
		}
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, time.Duration(timeoutSec)*time.Second)
		defer cancel()

		if !genQuiet {
			fmt.Fprintf(out, "⚙ Generating with %s model=%s (prompt tokens≈%d) ...\n", providerName, model, tokens)
		}
		s, err := sum.Summarize(ctx, res.Record, rc)
		if err != nil {
			return describeGenerateError(err)
		}
		return formatAndWriteOutput(s.Text, outputOptions{
			JSON:         genJSON,
			Quiet:        genQuiet,
			Workbook:     args[0],
			Model:        s.Model,
			MaxTokens:    maxTokens,
			Temperature:  temp,
			PromptTokens: tokens,
			Usage:        s.Usage,
			OutputPath:   genOutputPath,
			OutputFormat: genOutputFmt,
			Writer:       out,
		})
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&genModel, "model", "", "override model (default from config)")
	generateCmd.Flags().StringVar(&genProvider, "provider", "", "runtime: gemini (REST) or genai (SDK)")
	generateCmd.Flags().IntVar(&genMaxTokens, "max-tokens", 0, "max tokens for response (0 = provider default)")
	generateCmd.Flags().Float64Var(&genTemp, "temp", 0, "sampling temperature (default from config)")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "build the prompt and print the token estimate without calling the API")
	generateCmd.Flags().BoolVar(&genPrintPrompt, "print-prompt", false, "print the prompt being sent to the API")
	generateCmd.Flags().Float64Var(&genBudgetLimit, "budget-limit", 0, "fail if estimated max cost (USD) exceeds this budget")
	generateCmd.Flags().StringVar(&genOutputPath, "output", "", "optional path to write the summary (skipped in --dry-run)")
	generateCmd.Flags().StringVar(&genOutputFmt, "format", "text", "output format: text|json")
	generateCmd.Flags().BoolVar(&genQuiet, "quiet", false, "suppress non-essential output")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "emit the summary as JSON to stdout")
	generateCmd.Flags().IntVar(&genTimeoutSec, "timeout-sec", defaultGenerateTimeoutSec, "overall timeout including retries")
	generateCmd.Flags().StringVar(&genLayout, "layout", "", "YAML layout override")
	generateCmd.Flags().StringVar(&genPreset, "preset", "", "load goal/issues/tasks from a saved preset")
	generateCmd.Flags().StringVar(&genGoal, "goal", "", "account goal (default: "+report.DefaultGoal+")")
	generateCmd.Flags().StringVar(&genIssues, "issues", "", "current issues")
	generateCmd.Flags().StringVar(&genTasks, "tasks", "", "tasks carried out this month")
}
