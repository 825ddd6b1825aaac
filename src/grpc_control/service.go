package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"stream-operators/src/helpers"
	"stream-operators/src/logger"
	"stream-operators/src/models"
	"stream-operators/src/operators"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// OperatorController is the part of operators.Manager the service drives.
type OperatorController interface {
	Add(ctx context.Context, spec *models.MOperatorSpec) (*operators.Operator, error)
	Stop(id string) error
	List() []models.MOperatorStatus
}

// CommandRouter resolves free-text commands.
type CommandRouter interface {
	Route(ctx context.Context, command string) (models.MRoutedCommand, error)
}

// -----------------------------------------------------------------------------

// ControlService exposes the operator manager over gRPC.
type ControlService struct {
	Operators OperatorController
	Router    CommandRouter
	Logger    *logger.Logger
}

func NewControlService(ops OperatorController, router CommandRouter, log *logger.Logger) *ControlService {
	if log == nil {
		log = logger.NewLogger(nil, "ControlService")
	}
	return &ControlService{
		Operators: ops,
		Router:    router,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListOperators(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{"operators": s.Operators.List()})
}

// -----------------------------------------------------------------------------

// StartOperator accepts either "function" or "kind" plus "mode", and
// "symbol", "streaming_operator" and "operation_config".
func (s *ControlService) StartOperator(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()

	function, _ := fields["function"].(string)
	if function == "" {
		kind, _ := fields["kind"].(string)
		mode, _ := fields["mode"].(string)
		function = kind + "_" + mode
	}
	cmd := models.MRoutedCommand{FunctionName: function}
	cmd.Symbol, _ = fields["symbol"].(string)
	cmd.StreamingOperator, _ = fields["streaming_operator"].(string)
	if cfg, ok := fields["operation_config"]; ok && cfg != nil {
		m, ok := cfg.(map[string]interface{})
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "operation_config must be an object")
		}
		cmd.OperationConfig = m
	}

	spec, err := operators.SpecFromCommand(cmd)
	if err != nil {
		return nil, toStatus(err)
	}
	if _, err := s.Operators.Add(ctx, spec); err != nil {
		s.Logger.Error("gRPC: Failed to start %s on %s: %v", function, cmd.Symbol, err)
		return nil, toStatus(err)
	}

	s.Logger.Info("gRPC: Started operator %s (%s on %s)", spec.ID, spec.FunctionName(), spec.Symbol)
	return toStruct(map[string]interface{}{
		"id":       spec.ID,
		"function": spec.FunctionName(),
		"symbol":   spec.Symbol,
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) StopOperator(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, _ := req.AsMap()["id"].(string)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	if err := s.Operators.Stop(id); err != nil {
		if errors.Is(err, helpers.ErrOperatorStopped) {
			return nil, toStatus(err)
		}
		return nil, status.Error(codes.NotFound, err.Error())
	}
	return toStruct(map[string]interface{}{"id": id, "state": string(models.StateStopped)})
}

// -----------------------------------------------------------------------------

func (s *ControlService) Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.Router == nil {
		return nil, status.Error(codes.Unimplemented, "no router configured")
	}
	command, _ := req.AsMap()["command"].(string)
	if command == "" {
		return nil, status.Error(codes.InvalidArgument, "command is required")
	}

	routed, err := s.Router.Route(ctx, command)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]interface{}{"command": routed})
}

// -----------------------------------------------------------------------------

// Serve runs the control service on addr until ctx is done.
func Serve(ctx context.Context, addr string, svc ControlServer, log *logger.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	RegisterControlServer(grpcServer, svc)

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	log.Info("Starting gRPC Control Server on %s", addr)
	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// toStruct converts v to a Struct through its JSON form.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case helpers.IsCancellation(err):
		return status.Error(codes.Canceled, err.Error())
	case helpers.IsConfigParseError(err), errors.Is(err, helpers.ErrUnknownFunction):
		return status.Error(codes.InvalidArgument, err.Error())
	case helpers.IsSynthesisError(err), helpers.IsSubscriptionError(err), errors.Is(err, helpers.ErrOperatorStopped):
		return status.Error(codes.FailedPrecondition, err.Error())
	case helpers.IsRoutingFailedError(err), helpers.IsReasoningServiceError(err):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, helpers.ErrUnsupportedCommand):
		return status.Error(codes.Unimplemented, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
