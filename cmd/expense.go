package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/billbatista/acasinha-ledger/group"
	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/money"
	"github.com/billbatista/acasinha-ledger/views"
)

func newExpenseCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Record and reverse expenses",
	}
	cmd.AddCommand(newExpenseAddCmd(c), newExpenseReverseCmd(c))
	return cmd
}

func newExpenseAddCmd(c *cli) *cobra.Command {
	var (
		name     string
		total    string
		paidBy   []string
		shares   []string
		category string
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "add <group-id>",
		Short: "Record an expense",
		Long: `Record an expense paid by one or more members.

Payers and shares are given as member=amount, where member is a name or an
id. Without --share the total is split equally across the whole group.`,
		Example: `acasinha expense add $GROUP --name Dinner --total 90 --paid-by Alice=90
acasinha expense add $GROUP --name Taxi --total 30 --paid-by Bob=30 --share Alice=20 --share Bob=10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, g, err := c.loadGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			in := ledger.ExpenseInput{Name: name, Category: category, Notes: notes}
			if in.Total, err = money.Parse(total, g.Currency); err != nil {
				return fmt.Errorf("--total: %w", err)
			}
			if in.Payers, err = parsePortions(g, "--paid-by", paidBy); err != nil {
				return err
			}
			if in.Shares, err = parsePortions(g, "--share", shares); err != nil {
				return err
			}

			exp, err := c.app.Service.RecordExpense(ctx, g.ID, in)
			if err != nil {
				return err
			}
			return views.RenderExpense(views.NamesOf(g), exp)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "what the expense was for")
	cmd.Flags().StringVarP(&total, "total", "t", "", "total amount, e.g. 90.00")
	cmd.Flags().StringArrayVarP(&paidBy, "paid-by", "p", nil, "member=amount that member paid, repeatable")
	cmd.Flags().StringArrayVarP(&shares, "share", "s", nil, "member=amount that member owes, repeatable")
	cmd.Flags().StringVar(&category, "category", "", "optional category")
	cmd.Flags().StringVar(&notes, "notes", "", "optional notes")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("total")
	cmd.MarkFlagRequired("paid-by")
	return cmd
}

func newExpenseReverseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <group-id> <expense-id>",
		Short: "Cancel an expense by recording its reversal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, g, err := c.loadGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			expenseID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid expense id %q", args[1])
			}
			rev, err := c.app.Service.ReverseExpense(ctx, g.ID, expenseID)
			if err != nil {
				return err
			}
			return views.RenderExpense(views.NamesOf(g), rev)
		},
	}
}

func parsePortions(g *group.Group, flag string, values []string) ([]ledger.Portion, error) {
	var out []ledger.Portion
	for _, v := range values {
		ref, amount, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("%s %q: want member=amount", flag, v)
		}
		id, err := member(g, strings.TrimSpace(ref))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", flag, err)
		}
		m, err := money.Parse(amount, g.Currency)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", flag, v, err)
		}
		out = append(out, ledger.Portion{MemberID: id, Amount: m})
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
