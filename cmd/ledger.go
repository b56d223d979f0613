package cmd

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/huh"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/money"
	"github.com/billbatista/acasinha-ledger/settlement"
	"github.com/billbatista/acasinha-ledger/views"
)

func newSettleCmd(c *cli) *cobra.Command {
	var (
		from, to string
		amount   string
		notes    string
	)

	cmd := &cobra.Command{
		Use:     "settle <group-id>",
		Short:   "Record a payment from one member to another",
		Example: `acasinha settle $GROUP --from Bob --to Alice --amount 30`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, g, err := c.loadGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			in := ledger.SettlementInput{Notes: notes}
			if in.From, err = member(g, from); err != nil {
				return err
			}
			if in.To, err = member(g, to); err != nil {
				return err
			}
			if in.Amount, err = money.Parse(amount, g.Currency); err != nil {
				return fmt.Errorf("--amount: %w", err)
			}

			st, err := c.app.Service.RecordSettlement(ctx, g.ID, in)
			if err != nil {
				return err
			}
			return views.RenderSettlement(views.NamesOf(g), st)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "member who paid")
	cmd.Flags().StringVar(&to, "to", "", "member who received the money")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "amount, e.g. 30.00")
	cmd.Flags().StringVar(&notes, "notes", "", "optional notes")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func newBalancesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "balances <group-id>",
		Short: "Show every member's net balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, g, err := c.loadGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			balances, err := c.app.Service.CurrentBalances(ctx, g.ID)
			if err != nil {
				return err
			}
			views.Title("%s balances", g.Name)
			return views.RenderBalances(views.NamesOf(g), balances)
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var desc bool

	cmd := &cobra.Command{
		Use:   "history <group-id>",
		Short: "List every event with the balances right after it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, g, err := c.loadGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			entries, err := c.app.Service.History(ctx, g.ID)
			if err != nil {
				return err
			}
			if desc {
				slices.Reverse(entries)
			}
			return views.RenderHistory(views.NamesOf(g), entries)
		},
	}
	cmd.Flags().BoolVar(&desc, "desc", false, "newest first")
	return cmd
}

func newPlanCmd(c *cli) *cobra.Command {
	var accept, yes bool

	cmd := &cobra.Command{
		Use:   "plan <group-id>",
		Short: "Propose the payments that settle the group",
		Long: `Propose the payments that settle the group. Nothing is recorded unless
--accept is given; each transfer is then confirmed interactively, or all
of them at once with --yes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, g, err := c.loadGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			names := views.NamesOf(g)

			transfers, err := c.app.Service.ProposeSettlementPlan(ctx, g.ID)
			if err != nil {
				return err
			}
			if err := views.RenderPlan(names, transfers); err != nil {
				return err
			}
			if !accept || len(transfers) == 0 {
				return nil
			}

			chosen := transfers
			if !yes {
				if chosen, err = confirmTransfers(names, transfers); err != nil {
					return err
				}
			}
			recorded, err := c.app.Service.AcceptTransfers(ctx, g.ID, chosen)
			return reportAccepted(names, recorded, err, views.RenderSettlement)
		},
	}
	cmd.Flags().BoolVar(&accept, "accept", false, "record the proposed transfers")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "accept every transfer without asking")
	return cmd
}

// reportAccepted prints whatever was recorded, including the settlements
// that made it in before a failure, and joins any rendering error to err.
func reportAccepted(names views.Names, recorded []ledger.Settlement, err error, render func(views.Names, ledger.Settlement) error) error {
	for _, st := range recorded {
		err = errors.Join(err, render(names, st))
	}
	return err
}

func confirmTransfers(names views.Names, transfers []settlement.Transfer) ([]settlement.Transfer, error) {
	var chosen []settlement.Transfer
	for _, t := range transfers {
		ok := true
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Record %s paying %s %s?", names.Of(t.From), names.Of(t.To), t.Amount.Display())).
			Affirmative("Yes").
			Negative("Skip").
			Value(&ok).
			Run()
		if err != nil {
			return nil, err
		}
		if ok {
			chosen = append(chosen, t)
		}
	}
	if len(chosen) == 0 {
		pterm.Info.Println("Nothing recorded.")
	}
	return chosen, nil
}

func newSummaryCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <group-id>",
		Short: "Show spending totals per member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, g, err := c.loadGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			sum, err := c.app.Service.Summary(ctx, g.ID)
			if err != nil {
				return err
			}
			views.Title("%s summary", g.Name)
			return views.RenderSummary(sum)
		},
	}
}

func newVerifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <group-id>",
		Short: "Check the digest chain and replay the whole log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, g, err := c.loadGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			last, err := c.app.Service.VerifyIntegrity(ctx, g.ID)
			if err != nil {
				return fmt.Errorf("ledger of %s failed verification after event %d: %w", g.Name, last, err)
			}
			pterm.Success.Printf("%s: %d events verified.\n", g.Name, last)
			return nil
		},
	}
}
