package synthesis

import (
	"errors"
	"fmt"

	"stream-operators/src/helpers"
	"stream-operators/src/models"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ErrAccumulateShape is returned when an accumulate function does not yield [acc, summary].
var ErrAccumulateShape = errors.New("accumulate function must return [acc, summary]")

// -----------------------------------------------------------------------------

// GeneratedFunction is a compiled, immutable transformation. It has no access
// to anything but its arguments and the accumulator helpers.
type GeneratedFunction struct {
	Kind      models.OperatorKind
	Name      string
	Params    []string
	Signature string
	Source    string

	program *vm.Program
}

// -----------------------------------------------------------------------------

// Compile parses source and compiles its body for the given kind.
func Compile(kind models.OperatorKind, signature, source string) (*GeneratedFunction, error) {
	decl, err := ParseSource(source)
	if err != nil {
		return nil, err
	}
	if want := Arity(kind); len(decl.Params) != want {
		return nil, helpers.NewSynthesisError(
			fmt.Sprintf("%s declares %d parameters, %s functions take %d", decl.Name, len(decl.Params), kind, want), nil)
	}

	env := make(map[string]interface{}, len(decl.Params))
	for _, p := range decl.Params {
		env[p] = nil
	}

	opts := append([]expr.Option{expr.Env(env)}, builtinOptions()...)
	program, err := expr.Compile(decl.Body, opts...)
	if err != nil {
		return nil, helpers.NewSynthesisError(fmt.Sprintf("failed to compile %s", decl.Name), err)
	}

	return &GeneratedFunction{
		Kind:      kind,
		Name:      decl.Name,
		Params:    decl.Params,
		Signature: signature,
		Source:    source,
		program:   program,
	}, nil
}

// -----------------------------------------------------------------------------

// Call evaluates the function with positional arguments.
func (f *GeneratedFunction) Call(args ...interface{}) (interface{}, error) {
	if len(args) != len(f.Params) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", f.Name, len(f.Params), len(args))
	}
	env := make(map[string]interface{}, len(args))
	for i, p := range f.Params {
		env[p] = args[i]
	}
	out, err := expr.Run(f.program, env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// CallAccumulate evaluates an accumulate function and splits its [acc, summary] result.
func (f *GeneratedFunction) CallAccumulate(acc interface{}, value float64, params map[string]interface{}) (interface{}, interface{}, error) {
	out, err := f.Call(acc, value, params)
	if err != nil {
		return nil, nil, err
	}
	pair, ok := out.([]interface{})
	if !ok || len(pair) != 2 {
		return nil, nil, fmt.Errorf("%s returned %T: %w", f.Name, out, ErrAccumulateShape)
	}
	return pair[0], pair[1], nil
}

// Record returns the audit row for this function.
func (f *GeneratedFunction) Record(operatorID string) models.MGeneratedFunctionRecord {
	return models.MGeneratedFunctionRecord{
		OperatorID: operatorID,
		Kind:       f.Kind,
		Name:       f.Name,
		Signature:  f.Signature,
		Source:     f.Source,
	}
}
