// Package trace records autopilot exchanges to parquet files for offline
// inspection of provider behaviour.
package trace

import (
	"encoding/json"

	"github.com/brensch/snekpilot/autopilot"
)

// ExchangeRow is one provider request and its outcome.
//
// Commands holds the batch as the provider JSON ({"commands":[...]}) and is
// empty when the request failed. Error is empty when it succeeded.
type ExchangeRow struct {
	Seq       int64  `parquet:"seq"`
	Provider  string `parquet:"provider,dict"`
	Direction string `parquet:"direction,dict"`
	HeadX     int32  `parquet:"head_x"`
	HeadY     int32  `parquet:"head_y"`
	FoodX     int32  `parquet:"food_x"`
	FoodY     int32  `parquet:"food_y"`
	Commands  string `parquet:"commands"`
	Steps     int32  `parquet:"steps"`
	Error     string `parquet:"error"`
	LatencyMs int64  `parquet:"latency_ms"`
	StartedAt int64  `parquet:"started_at_ns"`
}

// NewExchangeRow flattens an exchange into a row.
func NewExchangeRow(ex autopilot.Exchange) ExchangeRow {
	row := ExchangeRow{
		Seq:       int64(ex.Seq),
		Provider:  string(ex.Provider),
		Direction: ex.Input.SnakeDirection.String(),
		HeadX:     ex.Input.SnakeHeadX,
		HeadY:     ex.Input.SnakeHeadY,
		FoodX:     ex.Input.FoodX,
		FoodY:     ex.Input.FoodY,
		LatencyMs: ex.Latency.Milliseconds(),
		StartedAt: ex.Started.UnixNano(),
	}
	if ex.Err != nil {
		row.Error = ex.Err.Error()
		return row
	}
	if b, err := json.Marshal(ex.Batch); err == nil {
		row.Commands = string(b)
	}
	row.Steps = int32(ex.Batch.Steps())
	return row
}

// Batch decodes the recorded commands.
func (r ExchangeRow) Batch() (autopilot.Batch, error) {
	var b autopilot.Batch
	if r.Commands == "" {
		return b, nil
	}
	err := json.Unmarshal([]byte(r.Commands), &b)
	return b, err
}
