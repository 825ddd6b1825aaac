package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-operators/src/helpers"
	"stream-operators/src/models"
)

func TestParseOperationConfig(t *testing.T) {
	cfg, err := ParseOperationConfig(`{"description": "apply exchange rate", "parameters": {"exchange_rate": 35}}`)
	require.NoError(t, err)
	assert.Equal(t, "apply exchange rate", cfg.Description)
	assert.Equal(t, map[string]interface{}{"exchange_rate": 35.0}, cfg.Params())

	cfg, err = ParseOperationConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Params())

	cfg, err = ParseOperationConfig(`{"window_size": 5, "description": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"window_size": 5.0}, cfg.Params())
}

func TestParseOperationConfigErrors(t *testing.T) {
	for _, raw := range []string{
		"{not json",
		"[1, 2]",
		`"text"`,
		`{"description": 5}`,
		`{"parameters": [1]}`,
		`{} trailing`,
	} {
		_, err := ParseOperationConfig(raw)
		require.Error(t, err, raw)
		assert.True(t, helpers.IsConfigParseError(err), raw)
	}
}

func TestParseFunctionName(t *testing.T) {
	kind, mode, err := ParseFunctionName("filter_generate")
	require.NoError(t, err)
	assert.Equal(t, models.KindFilter, kind)
	assert.Equal(t, models.ModeGenerate, mode)

	kind, mode, err = ParseFunctionName("Accumulate-Direct")
	require.NoError(t, err)
	assert.Equal(t, models.KindAccumulate, kind)
	assert.Equal(t, models.ModeDirect, mode)

	for _, bad := range []string{"", "read_adhoc", "map", "map_later", "reduce_direct"} {
		_, _, err := ParseFunctionName(bad)
		assert.ErrorIs(t, err, helpers.ErrUnknownFunction, bad)
	}
}

func TestNewSpecValidation(t *testing.T) {
	spec, err := NewSpec(models.KindMap, models.ModeDirect, " AAAA ", "{}", "")
	require.NoError(t, err)
	assert.Equal(t, "AAAA", spec.Symbol)
	assert.NotEmpty(t, spec.ID)

	_, err = NewSpec(models.KindAccumulate, models.ModeGenerate, "AAAA", "{}", "")
	assert.True(t, helpers.IsConfigParseError(err))

	_, err = NewSpec(models.KindMap, models.ModeDirect, "", "{}", "")
	assert.True(t, helpers.IsConfigParseError(err))
}

func TestSpecFromCommand(t *testing.T) {
	spec, err := SpecFromCommand(models.MRoutedCommand{
		FunctionName:      "accumulate_generate",
		Symbol:            "AAAA",
		StreamingOperator: "average",
		OperationConfig:   map[string]interface{}{"window_size": 5.0},
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindAccumulate, spec.Kind)
	assert.Equal(t, "average", spec.StreamingOperator)
	assert.Equal(t, 5.0, spec.Config.Params()["window_size"])

	_, err = SpecFromCommand(models.MRoutedCommand{FunctionName: "explode", Symbol: "AAAA"})
	assert.ErrorIs(t, err, helpers.ErrUnknownFunction)
}
