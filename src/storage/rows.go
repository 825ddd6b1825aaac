package storage

import (
	"encoding/json"
	"time"

	"stream-operators/src/models"
	"stream-operators/src/utils"
)

// emissionRow is an emission flattened into column values.
type emissionRow struct {
	OperatorID  string
	Symbol      string
	Kind        string
	Mode        string
	Price       float64
	Result      *string // JSON, NULL when absent
	Accumulator *string
	Passed      bool
	Timestamp   int64
	MarketOpen  bool
	CreatedAt   int64
}

func encodeJSON(v interface{}) *string {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func toEmissionRow(e models.MEmission) emissionRow {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return emissionRow{
		OperatorID:  e.OperatorID,
		Symbol:      e.Symbol,
		Kind:        string(e.Kind),
		Mode:        string(e.Mode),
		Price:       e.Price,
		Result:      encodeJSON(e.Result),
		Accumulator: encodeJSON(e.Accumulator),
		Passed:      e.Passed,
		Timestamp:   e.Timestamp,
		MarketOpen:  e.MarketOpen,
		CreatedAt:   createdAt.UTC().Unix(),
	}
}

func retentionDays(cfg *models.MConfig) int {
	if cfg == nil || cfg.DataRetentionDays <= 0 {
		return utils.DefaultRetentionDays
	}
	return cfg.DataRetentionDays
}

func retentionCutoff(cfg *models.MConfig) int64 {
	return time.Now().UTC().AddDate(0, 0, -retentionDays(cfg)).Unix()
}
