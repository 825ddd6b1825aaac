package models

// -----------------------------------------------------------------------------
// Dashboard message pushed to websocket clients
// -----------------------------------------------------------------------------

type MDashboardMessage struct {
	Type      string            `json:"type"` // "INITIAL" or "UPDATE"
	Emissions []MEmission       `json:"emissions"`
	Operators []MOperatorStatus `json:"operators,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols"`
}

// -----------------------------------------------------------------------------
// Windowed summary of emissions for one symbol
// -----------------------------------------------------------------------------

type MWindowSummary struct {
	StartTime   int64       `json:"start_time"`
	EndTime     int64       `json:"end_time"`
	Count       int         `json:"count"`
	Passed      int         `json:"passed"`
	Open        float64     `json:"open"`
	High        float64     `json:"high"`
	Low         float64     `json:"low"`
	Close       float64     `json:"close"`
	MeanPrice   float64     `json:"mean_price"`
	StdPrice    float64     `json:"std_price"`
	CloseZScore float64     `json:"close_zscore"`
	LastResult  interface{} `json:"last_result,omitempty"`
}
