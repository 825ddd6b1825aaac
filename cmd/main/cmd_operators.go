package main

import (
	"context"
	"fmt"
	"strings"

	"stream-operators/src/models"
	"stream-operators/src/operators"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// operatorCommands builds map-direct, map-generate, filter-direct,
// filter-generate, accumulate-direct and accumulate-generate.
func operatorCommands() []*cobra.Command {
	var cmds []*cobra.Command
	for _, kind := range []models.OperatorKind{models.KindMap, models.KindFilter, models.KindAccumulate} {
		for _, mode := range []models.OperatorMode{models.ModeDirect, models.ModeGenerate} {
			cmds = append(cmds, newOperatorCmd(kind, mode))
		}
	}
	return cmds
}

func newOperatorCmd(kind models.OperatorKind, mode models.OperatorMode) *cobra.Command {
	var operationConfig string

	use := fmt.Sprintf("%s-%s <symbol>", kind, mode)
	args := cobra.ExactArgs(1)
	if kind == models.KindAccumulate {
		use = fmt.Sprintf("%s-%s <symbol> <streaming_operator>", kind, mode)
		args = cobra.ExactArgs(2)
	}

	how := "asking the reasoning service for every update"
	if mode == models.ModeGenerate {
		how = "with a function the reasoning service writes once"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Apply a %s operation to a symbol's prices, %s", kind, how),
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			streamingOperator := ""
			if len(args) > 1 {
				streamingOperator = args[1]
			}
			spec, err := operators.NewSpec(kind, mode, args[0], operationConfig, streamingOperator)
			if err != nil {
				return err
			}
			return runOperators(cmd.Context(), spec)
		},
	}
	cmd.Flags().StringVar(&operationConfig, "operation-config", "{}",
		`JSON object with "description" and "parameters", e.g. '{"description": "apply exchange rate", "parameters": {"exchange_rate": 35}}'`)
	return cmd
}

// -----------------------------------------------------------------------------

// runOperators starts specs in the foreground and blocks until interrupted or
// one of them fails.
func runOperators(ctx context.Context, specs ...*models.MOperatorSpec) error {
	symbols := make([]string, 0, len(specs))
	for _, s := range specs {
		symbols = append(symbols, s.Symbol)
	}

	a, err := newApp(ctx, stdoutPrinter(), symbols)
	if err != nil {
		return err
	}
	defer a.Close()

	journalCtx, stopJournal := context.WithCancel(context.Background())
	g := new(errgroup.Group)
	g.Go(func() error { return a.runJournal(journalCtx) })

	runErr := func() error {
		for _, spec := range specs {
			if _, err := a.Manager.Add(ctx, spec); err != nil {
				a.Manager.StopAll()
				return err
			}
		}
		return a.Manager.Wait()
	}()

	stopJournal()
	_ = g.Wait()
	return runErr
}

// -----------------------------------------------------------------------------

var executeCmd = &cobra.Command{
	Use:   "execute <command>",
	Short: "Turn a plain-language command into an operator and run it",
	Example: `  stream-operators execute "alert me if AAAA goes below 35"
  stream-operators execute "write a function that converts AAAA prices to euros at 0.92"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		command := strings.Join(args, " ")

		a, err := newApp(ctx, stdoutPrinter(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		journalCtx, stopJournal := context.WithCancel(context.Background())
		g := new(errgroup.Group)
		g.Go(func() error { return a.runJournal(journalCtx) })
		defer func() {
			stopJournal()
			_ = g.Wait()
		}()

		d := operators.ConsoleDispatcher{Manager: a.Manager, Out: cmd.OutOrStdout()}
		routed, err := a.router(d).Route(ctx, command)
		if err != nil {
			return err
		}
		a.Logger.Info("Executed %s on %s", routed.FunctionName, routed.Symbol)
		return a.Manager.Wait()
	},
}
