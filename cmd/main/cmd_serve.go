package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stream-operators/src/grpc_control"
	"stream-operators/src/helpers"
	"stream-operators/src/logger"
	"stream-operators/src/models"
	"stream-operators/src/operators"
	"stream-operators/src/server"
	"stream-operators/src/storage"
	"stream-operators/src/utils"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const memoryCheckInterval = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the configured operators with the dashboard and gRPC control plane",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// -----------------------------------------------------------------------------

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var symbols []string
	for _, op := range cfg.Operators {
		symbols = append(symbols, op.Symbol)
	}

	maxMemoryMB := cfg.MaxMemoryMB
	if maxMemoryMB == 0 {
		maxMemoryMB = helpers.GetRecommendedMemoryLimit()
	}
	memory := utils.NewMemoryManager(maxMemoryMB, cfg.EmissionsPerSymbol)
	dashboard := &lateServer{}
	a, err := newApp(ctx, dashboard, symbols)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.NewFastAPIServer(a.Config.MConfig, logger.NewLogger(a.Config, "FastAPIServer"), memory, a.Manager, a.Metrics)
	dashboard.srv = srv
	defer srv.Stop()

	specs, err := configuredSpecs(a)
	if err != nil {
		return err
	}

	journalCtx, stopJournal := context.WithCancel(context.Background())
	defer stopJournal()
	journal := new(errgroup.Group)
	journal.Go(func() error { return a.runJournal(journalCtx) })

	for _, spec := range specs {
		if _, err := a.Manager.Add(ctx, spec); err != nil {
			a.Manager.StopAll()
			stopJournal()
			_ = journal.Wait()
			return fmt.Errorf("failed to start %s on %s: %w", spec.FunctionName(), spec.Symbol, err)
		}
	}
	a.Logger.Info("Started %d configured operators (any market open: %v)", len(specs), a.Schedule.AnyMarketOpen())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error {
		control := grpc_control.NewControlService(a.Manager, a.router(a.Manager), logger.NewLogger(a.Config, "ControlService"))
		addr := fmt.Sprintf("%s:%d", a.Config.GrpcHost, a.Config.GrpcPort)
		return grpc_control.Serve(gctx, addr, control, a.Logger)
	})
	g.Go(func() error {
		ticker := time.NewTicker(memoryCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				a.Manager.StopAll()
				return nil
			case <-ticker.C:
				memory.CheckMemoryLimits()
			}
		}
	})

	err = g.Wait()
	if werr := a.Manager.Wait(); err == nil {
		err = werr
	}
	stopJournal()
	if jerr := journal.Wait(); jerr != nil {
		a.Logger.Warning("Journal stopped with error: %v", jerr)
	}
	a.Logger.Info("Shutdown complete")
	return err
}

// configuredSpecs turns cfg.Operators into specs, expanding
// schema.table.field symbol references when the journal is on Postgres.
func configuredSpecs(a *app) ([]*models.MOperatorSpec, error) {
	var specs []*models.MOperatorSpec
	for _, op := range a.Config.Operators {
		symbols := []string{op.Symbol}
		if storage.IsSymbolRef(op.Symbol) {
			pg, ok := a.DB.(*storage.PostgresDB)
			if !ok {
				return nil, fmt.Errorf("symbol reference %q needs db_type postgres", op.Symbol)
			}
			expanded, err := pg.ExpandSymbols(symbols)
			if err != nil {
				return nil, err
			}
			symbols = expanded
		}

		for _, symbol := range symbols {
			spec, err := operators.SpecFromCommand(models.MRoutedCommand{
				FunctionName:      strings.ToLower(op.Kind) + "_" + strings.ToLower(op.Mode),
				Symbol:            symbol,
				OperationConfig:   op.OperationConfig,
				StreamingOperator: op.StreamingOperator,
			})
			if err != nil {
				return nil, err
			}
			specs = append(specs, spec)
		}
	}
	return specs, nil
}

// -----------------------------------------------------------------------------

// lateServer forwards emissions to a server built after the operator runtime.
type lateServer struct {
	srv *server.FastAPIServer
}

func (l *lateServer) Emit(e models.MEmission) {
	if l.srv != nil {
		l.srv.Emit(e)
	}
}
