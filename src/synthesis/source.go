package synthesis

import (
	"fmt"
	"regexp"
	"strings"

	"stream-operators/src/helpers"
	"stream-operators/src/models"
)

var (
	declarationPattern = regexp.MustCompile(`(?s)^\s*func\s+([A-Za-z_]\w*)\s*\(([^)]*)\)\s*=\s*(.+?)\s*$`)
	identPattern       = regexp.MustCompile(`^[A-Za-z_]\w*`)
	fencePattern       = regexp.MustCompile("(?s)^```[A-Za-z]*\\s*(.*?)\\s*```$")
)

// Declaration is a parsed `func name(params) = expression` source.
type Declaration struct {
	Name   string
	Params []string
	Body   string
}

// -----------------------------------------------------------------------------

// Arity returns the parameter count expected for a kind:
// (value, params) for map and filter, (acc, value, params) for accumulate.
func Arity(kind models.OperatorKind) int {
	if kind == models.KindAccumulate {
		return 3
	}
	return 2
}

// -----------------------------------------------------------------------------

// ParseSource parses a declaration header and body. Code fences around the
// source are tolerated; parameter type annotations ("value: float") are dropped.
func ParseSource(source string) (Declaration, error) {
	src := strings.TrimSpace(source)
	if m := fencePattern.FindStringSubmatch(src); m != nil {
		src = m[1]
	}

	m := declarationPattern.FindStringSubmatch(src)
	if m == nil {
		return Declaration{}, helpers.NewSynthesisError("source is not a `func name(params) = expression` declaration", nil)
	}

	decl := Declaration{Name: m[1], Body: m[3]}
	seen := make(map[string]bool)
	for _, raw := range strings.Split(m[2], ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name := identPattern.FindString(raw)
		if name == "" {
			return Declaration{}, helpers.NewSynthesisError(fmt.Sprintf("invalid parameter %q in %s", raw, decl.Name), nil)
		}
		if seen[name] {
			return Declaration{}, helpers.NewSynthesisError(fmt.Sprintf("duplicate parameter %q in %s", name, decl.Name), nil)
		}
		if isBuiltin(name) {
			return Declaration{}, helpers.NewSynthesisError(fmt.Sprintf("parameter %q shadows a builtin", name), nil)
		}
		seen[name] = true
		decl.Params = append(decl.Params, name)
	}
	return decl, nil
}
