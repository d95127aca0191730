package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/theater/internal/config"
)

// NewStatusCommand returns the status command.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the effective configuration",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("version:  %s\n", cmd.Root().Version)
			fmt.Printf("config:   %s\n", cmd.String("config"))
			fmt.Printf("data:     %s\n", config.TheaterPath())
			fmt.Printf("log:      %s\n", cfg.Log.Level)
			fmt.Printf("events:   buffer %d\n", cfg.Events.BufferSize)
			fmt.Printf("budgets:  immediate %dms, fast %dms, normal %dms\n",
				cfg.Stage.ImmediateBudgetMs, cfg.Stage.FastBudgetMs, cfg.Stage.NormalBudgetMs)
			return nil
		},
	}
}
