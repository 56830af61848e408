package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/adreport-cli/internal/store"
	"github.com/KaramelBytes/adreport-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	presetCustomer string
	presetName     string
	presetGoal     string
	presetIssues   string
	presetTasks    string
	presetJSON     bool
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved goal/issues/tasks presets per customer",
}

var presetAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Create a preset for a customer",
	Example: `  adreport preset add --customer <id> --name 5月 --goal "CV30件" --issues "CPA高騰"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if presetCustomer == "" || presetName == "" {
			return fmt.Errorf("--customer and --name are required")
		}
		return withStore(func(st *store.Store) error {
			p, err := st.CreatePreset(cmd.Context(), store.Preset{
				CustomerID: presetCustomer,
				Name:       presetName,
				Goal:       presetGoal,
				Issues:     presetIssues,
				Tasks:      presetTasks,
			})
			if err != nil {
				return notFound("customer", presetCustomer, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created preset %s (%s)\n", p.Name, p.ID)
			return nil
		})
	},
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a customer's presets in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		if presetCustomer == "" {
			return fmt.Errorf("--customer is required")
		}
		return withStore(func(st *store.Store) error {
			list, err := st.ListPresets(cmd.Context(), presetCustomer)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if presetJSON {
				b, err := utils.PrettyJSON(list)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
				return nil
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No presets for this customer.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tGOAL\t")
			for _, p := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t\n", p.ID, p.Name, p.Goal)
			}
			return tw.Flush()
		})
	},
}

var presetShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			p, err := st.GetPreset(cmd.Context(), args[0])
			if err != nil {
				return notFound("preset", args[0], err)
			}
			out := cmd.OutOrStdout()
			if presetJSON {
				b, err := utils.PrettyJSON(p)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
				return nil
			}
			fmt.Fprintf(out, "Name: %s\nCustomer: %s\nGoal: %s\nIssues: %s\nTasks: %s\n",
				p.Name, p.CustomerID, p.Goal, p.Issues, p.Tasks)
			return nil
		})
	},
}

var presetUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of a preset (only the flags given are written)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		return withStore(func(st *store.Store) error {
			p, err := st.GetPreset(cmd.Context(), args[0])
			if err != nil {
				return notFound("preset", args[0], err)
			}
			if f.Changed("name") {
				p.Name = presetName
			}
			if f.Changed("goal") {
				p.Goal = presetGoal
			}
			if f.Changed("issues") {
				p.Issues = presetIssues
			}
			if f.Changed("tasks") {
				p.Tasks = presetTasks
			}
			if err := st.UpdatePreset(cmd.Context(), p); err != nil {
				return notFound("preset", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated preset %s\n", p.Name)
			return nil
		})
	},
}

var presetRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a preset",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			if err := st.DeletePreset(cmd.Context(), args[0]); err != nil {
				return notFound("preset", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted preset %s\n", args[0])
			return nil
		})
	},
}

var presetReorderCmd = &cobra.Command{
	Use:   "reorder <id>...",
	Short: "Set the display order of a customer's presets",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if presetCustomer == "" {
			return fmt.Errorf("--customer is required")
		}
		return withStore(func(st *store.Store) error {
			if err := st.ReorderPresets(cmd.Context(), presetCustomer, args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Reordered %d presets\n", len(args))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(presetCmd)
	presetCmd.AddCommand(presetAddCmd, presetListCmd, presetShowCmd, presetUpdateCmd, presetRmCmd, presetReorderCmd)

	for _, c := range []*cobra.Command{presetAddCmd, presetListCmd, presetReorderCmd} {
		c.Flags().StringVar(&presetCustomer, "customer", "", "customer id")
	}
	for _, c := range []*cobra.Command{presetAddCmd, presetUpdateCmd} {
		c.Flags().StringVar(&presetName, "name", "", "preset name")
		c.Flags().StringVar(&presetGoal, "goal", "", "account goal")
		c.Flags().StringVar(&presetIssues, "issues", "", "current issues")
		c.Flags().StringVar(&presetTasks, "tasks", "", "tasks carried out")
	}
	presetListCmd.Flags().BoolVar(&presetJSON, "json", false, "print as JSON")
	presetShowCmd.Flags().BoolVar(&presetJSON, "json", false, "print as JSON")
}
