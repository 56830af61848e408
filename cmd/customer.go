package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/adreport-cli/internal/store"
	"github.com/KaramelBytes/adreport-cli/internal/utils"
	"github.com/spf13/cobra"
)

var customerJSON bool

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage customers (each owns a list of context presets)",
}

// withStore opens the configured store for the duration of fn.
func withStore(fn func(st *store.Store) error) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %s not found", kind, id)
	}
	return err
}

var customerAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			cu, err := st.CreateCustomer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created customer %s (%s)\n", cu.Name, cu.ID)
			return nil
		})
	},
}

var customerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customers in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			list, err := st.ListCustomers(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if customerJSON {
				b, err := utils.PrettyJSON(list)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
				return nil
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No customers yet. Add one with `adreport customer add <name>`.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCREATED\t")
			for _, cu := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t\n", cu.ID, cu.Name, cu.CreatedAt.Local().Format("2006-01-02"))
			}
			return tw.Flush()
		})
	},
}

var customerRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a customer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			if err := st.RenameCustomer(cmd.Context(), args[0], args[1]); err != nil {
				return notFound("customer", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Renamed customer %s to %s\n", args[0], args[1])
			return nil
		})
	},
}

var customerRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a customer and all of its presets",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			if err := st.DeleteCustomer(cmd.Context(), args[0]); err != nil {
				return notFound("customer", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted customer %s\n", args[0])
			return nil
		})
	},
}

var customerReorderCmd = &cobra.Command{
	Use:   "reorder <id>...",
	Short: "Set the display order of customers (first id comes first)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			if err := st.ReorderCustomers(cmd.Context(), args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Reordered %d customers\n", len(args))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(customerCmd)
	customerCmd.AddCommand(customerAddCmd, customerListCmd, customerRenameCmd, customerRmCmd, customerReorderCmd)
	customerListCmd.Flags().BoolVar(&customerJSON, "json", false, "print as JSON")
}
