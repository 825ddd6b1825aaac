package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"stream-operators/src/grpc_control"
	"stream-operators/src/models"
	"stream-operators/src/operators"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var remoteAddr string

var operatorsCmd = &cobra.Command{
	Use:   "operators",
	Short: "Manage operators of a running serve process over gRPC",
}

var operatorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List running operators",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withControl(cmd.Context(), func(ctx context.Context, c *grpc_control.ControlClient) error {
			list, err := c.ListOperators(ctx)
			if err != nil {
				return err
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"ID", "Function", "Symbol", "State", "Events", "Emissions", "Started", "Last error"})
			for _, s := range list {
				tw.AppendRow(table.Row{
					s.ID, s.Function, s.Symbol, s.State, s.EventsProcessed, s.Emissions,
					s.StartedAt.Format(time.DateTime), s.LastError,
				})
			}
			tw.Render()
			return nil
		})
	},
}

var operatorsStopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Stop a running operator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withControl(cmd.Context(), func(ctx context.Context, c *grpc_control.ControlClient) error {
			if err := c.StopOperator(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s\n", args[0])
			return nil
		})
	},
}

var startOperationConfig string

var operatorsStartCmd = &cobra.Command{
	Use:     "start <function> <symbol> [streaming_operator]",
	Short:   "Start an operator, e.g. map_direct AAAA",
	Args:    cobra.RangeArgs(2, 3),
	Example: `  stream-operators operators start filter_generate AAAA --operation-config '{"description": "below threshold", "parameters": {"threshold": 35}}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, mode, err := operators.ParseFunctionName(args[0])
		if err != nil {
			return err
		}
		opCfg, err := operators.ParseOperationConfig(startOperationConfig)
		if err != nil {
			return err
		}
		cfg := models.MOperatorConfig{
			Kind:            string(kind),
			Mode:            string(mode),
			Symbol:          args[1],
			OperationConfig: opCfg.Raw,
		}
		if len(args) == 3 {
			cfg.StreamingOperator = args[2]
		}

		return withControl(cmd.Context(), func(ctx context.Context, c *grpc_control.ControlClient) error {
			id, err := c.StartOperator(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started %s\n", id)
			return nil
		})
	},
}

var operatorsExecuteCmd = &cobra.Command{
	Use:   "execute <command>",
	Short: "Route a plain-language command on the server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withControl(cmd.Context(), func(ctx context.Context, c *grpc_control.ControlClient) error {
			routed, err := c.Execute(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Routed to %s on %s\n", routed.FunctionName, routed.Symbol)
			return nil
		})
	},
}

func init() {
	operatorsCmd.PersistentFlags().StringVar(&remoteAddr, "addr", "", "gRPC address of the serve process (defaults to grpc_host:grpc_port from config)")
	operatorsStartCmd.Flags().StringVar(&startOperationConfig, "operation-config", "{}", "JSON object with description and parameters")
	operatorsCmd.AddCommand(operatorsListCmd, operatorsStopCmd, operatorsStartCmd, operatorsExecuteCmd)
}

// -----------------------------------------------------------------------------

// withControl dials the control plane and runs fn with a bounded deadline.
func withControl(ctx context.Context, fn func(context.Context, *grpc_control.ControlClient) error) error {
	addr := remoteAddr
	if addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		addr = fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort)
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			fmt.Fprintln(os.Stderr, "close:", cerr)
		}
	}()

	// Execute may wait on several reasoning round trips.
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	return fn(ctx, grpc_control.NewControlClient(conn))
}
