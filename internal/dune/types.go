package dune

import (
	"fmt"
	"time"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"
)

// Execution states as reported by the Dune API.
const (
	stateCompleted = "QUERY_STATE_COMPLETED"
	stateFailed    = "QUERY_STATE_FAILED"
	stateCancelled = "QUERY_STATE_CANCELLED"
	stateExpired   = "QUERY_STATE_EXPIRED"
)

type executeRequest struct {
	QueryParameters map[string]string `json:"query_parameters"`
}

type executeResponse struct {
	ExecutionID string `json:"execution_id"`
	State       string `json:"state"`
}

type resultsResponse struct {
	ExecutionID string `json:"execution_id"`
	State       string `json:"state"`
	Result      struct {
		Rows []resultRow `json:"rows"`
	} `json:"result"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// resultRow mirrors one row of the saved wallet-transactions query.
type resultRow struct {
	BlockTime    string  `json:"block_time"`
	BlockNumber  uint64  `json:"block_number"`
	Hash         string  `json:"hash"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	ValueEth     float64 `json:"value_eth"`
	GasUsed      uint64  `json:"gas_used"`
	GasPriceGwei float64 `json:"gas_price_gwei"`
	TotalFeeEth  float64 `json:"total_fee_eth"`
	Success      bool    `json:"success"`
	Nonce        uint64  `json:"nonce"`
	Direction    string  `json:"direction"`
}

// Dune renders timestamps in a couple of formats depending on the column
// type, so try each before giving up.
var blockTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.000 MST",
	"2006-01-02 15:04:05",
}

func parseBlockTime(s string) (time.Time, error) {
	for _, layout := range blockTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized block_time %q", s)
}

func parseRows(rows []resultRow) ([]models.TransactionRecord, error) {
	out := make([]models.TransactionRecord, 0, len(rows))
	for i, row := range rows {
		ts, err := parseBlockTime(row.BlockTime)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		direction := models.DirectionIncoming
		if row.Direction == string(models.DirectionOutgoing) {
			direction = models.DirectionOutgoing
		}

		out = append(out, models.TransactionRecord{
			BlockTime:    ts,
			BlockNumber:  row.BlockNumber,
			Hash:         row.Hash,
			From:         row.From,
			To:           row.To,
			EthAmount:    row.ValueEth,
			GasUsed:      row.GasUsed,
			GasPriceGwei: row.GasPriceGwei,
			TotalFeeEth:  row.TotalFeeEth,
			Success:      row.Success,
			Nonce:        row.Nonce,
			Direction:    direction,
		})
	}
	return out, nil
}
