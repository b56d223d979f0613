package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/billbatista/acasinha-ledger/views"
)

func newGroupCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Create and inspect groups",
	}
	cmd.AddCommand(newGroupCreateCmd(c), newGroupShowCmd(c))
	return cmd
}

func newGroupCreateCmd(c *cli) *cobra.Command {
	var (
		name     string
		currency string
		members  []string
	)

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a group",
		Example: `acasinha group create --name "Flat 3B" --currency INR --member Alice --member Bob --member Carol`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if currency == "" {
				currency = c.cfg.Ledger.DefaultCurrency
			}
			if name == "" {
				if err := promptGroup(&name, &members); err != nil {
					return err
				}
			}

			g, err := c.app.Service.CreateGroup(cmd.Context(), name, currency, members)
			if err != nil {
				return err
			}
			if err := views.RenderGroup(g); err != nil {
				return err
			}
			pterm.Success.Println("Group created.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "group name (prompted when empty)")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO 4217 currency (defaults to ledger.default_currency)")
	cmd.Flags().StringArrayVarP(&members, "member", "m", nil, "member name, repeat for each member")
	return cmd
}

// promptGroup asks for the group name and, when none were given as flags,
// a comma separated member list.
func promptGroup(name *string, members *[]string) error {
	var list string
	fields := []huh.Field{
		huh.NewInput().Title("Group name").Value(name).Validate(func(s string) error {
			if s == "" {
				return fmt.Errorf("name can't be empty")
			}
			return nil
		}),
	}
	if len(*members) == 0 {
		fields = append(fields, huh.NewInput().Title("Members").Description("comma separated").Value(&list))
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}
	if list != "" {
		*members = splitList(list)
	}
	return nil
}

func newGroupShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <group-id>",
		Short: "Show a group and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, err := c.loadGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return views.RenderGroup(g)
		},
	}
}
