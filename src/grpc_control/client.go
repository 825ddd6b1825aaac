package grpc_control

import (
	"context"
	"encoding/json"

	"stream-operators/src/models"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlClient calls streamoperators.Control on a running server.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) invoke(ctx context.Context, method string, in map[string]interface{}) (map[string]interface{}, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, req, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// decodeInto maps a Struct field back onto a typed value.
func decodeInto(v interface{}, out interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// -----------------------------------------------------------------------------

func (c *ControlClient) ListOperators(ctx context.Context) ([]models.MOperatorStatus, error) {
	out, err := c.invoke(ctx, "ListOperators", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	var list []models.MOperatorStatus
	if err := decodeInto(out["operators"], &list); err != nil {
		return nil, err
	}
	return list, nil
}

// StartOperator starts an operator and returns its id.
func (c *ControlClient) StartOperator(ctx context.Context, cfg models.MOperatorConfig) (string, error) {
	in := map[string]interface{}{
		"kind":               cfg.Kind,
		"mode":               cfg.Mode,
		"symbol":             cfg.Symbol,
		"streaming_operator": cfg.StreamingOperator,
	}
	if cfg.OperationConfig != nil {
		in["operation_config"] = cfg.OperationConfig
	}
	out, err := c.invoke(ctx, "StartOperator", in)
	if err != nil {
		return "", err
	}
	id, _ := out["id"].(string)
	return id, nil
}

func (c *ControlClient) StopOperator(ctx context.Context, id string) error {
	_, err := c.invoke(ctx, "StopOperator", map[string]interface{}{"id": id})
	return err
}

// Execute routes a free-text command on the server.
func (c *ControlClient) Execute(ctx context.Context, command string) (models.MRoutedCommand, error) {
	var routed models.MRoutedCommand
	out, err := c.invoke(ctx, "Execute", map[string]interface{}{"command": command})
	if err != nil {
		return routed, err
	}
	err = decodeInto(out["command"], &routed)
	return routed, err
}
