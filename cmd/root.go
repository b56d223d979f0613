// Package cmd is the acasinha command line: an HTTP server plus commands
// that work on a group's ledger directly.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/billbatista/acasinha-ledger/app"
	"github.com/billbatista/acasinha-ledger/config"
	"github.com/billbatista/acasinha-ledger/group"
	"github.com/billbatista/acasinha-ledger/ledger"
)

// cli holds what every command needs. app is filled in by the root
// command's PersistentPreRunE, after flags are parsed, and torn down by
// Execute.
type cli struct {
	cfgFile string
	actor   string
	cfg     *config.Config
	app     *app.App
	cleanup func()
}

func Execute() {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	c := &cli{}
	err := newRootCmd(c).Execute()
	if c.cleanup != nil {
		c.cleanup()
	}
	if err != nil {
		pterm.Error.Println(capitalize(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "acasinha",
		Short:         "acasinha keeps the shared expenses of a group and works out who owes whom",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&c.actor, "as", "", "member name or id recorded as the actor")

	rootCmd.AddCommand(newServeCmd(c))
	rootCmd.AddCommand(newMigrateCmd(c))
	rootCmd.AddCommand(newGroupCmd(c))
	rootCmd.AddCommand(newExpenseCmd(c))
	rootCmd.AddCommand(newSettleCmd(c))
	rootCmd.AddCommand(newBalancesCmd(c))
	rootCmd.AddCommand(newHistoryCmd(c))
	rootCmd.AddCommand(newPlanCmd(c))
	rootCmd.AddCommand(newSummaryCmd(c))
	rootCmd.AddCommand(newVerifyCmd(c))

	return rootCmd
}

func (c *cli) init(ctx context.Context) error {
	cfg, err := loadConfig(c.cfgFile)
	if err != nil {
		return err
	}
	a, cleanup, err := app.NewApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	c.cfg, c.app, c.cleanup = cfg, a, cleanup
	return nil
}

// loadConfig layers the config file and ACASINHA_* environment variables
// over the built-in defaults. A missing default config file is not an error.
func loadConfig(path string) (*config.Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(dir + "/acasinha")
		}
		v.SetConfigName("acasinha")
	}

	cfg := config.NewDefault()
	for key, value := range cfg.Defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("ACASINHA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	return cfg, nil
}

// loadGroup resolves the group argument and puts the --as member, if any,
// into the returned context.
func (c *cli) loadGroup(ctx context.Context, arg string) (context.Context, *group.Group, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return ctx, nil, fmt.Errorf("invalid group id %q", arg)
	}
	g, err := c.app.Service.Group(ctx, id)
	if err != nil {
		return ctx, nil, err
	}
	if c.actor == "" {
		return ctx, g, nil
	}
	m, ok := g.Member(c.actor)
	if !ok {
		return ctx, nil, fmt.Errorf("%q is not a member of %s", c.actor, g.Name)
	}
	return ledger.WithActor(ctx, m.ID), g, nil
}

func member(g *group.Group, ref string) (uuid.UUID, error) {
	m, ok := g.Member(ref)
	if !ok {
		return uuid.Nil, fmt.Errorf("%q is not a member of %s", ref, g.Name)
	}
	return m.ID, nil
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
