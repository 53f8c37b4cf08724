package models

import "time"

// Direction indicates whether the analyzed wallet sent or received a transaction.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// TransactionRecord is one on-chain transaction as returned by the analytics
// provider. Records arrive ordered newest-first: index 0 is the most recent
// transaction and the last index is the oldest. Downstream code relies on
// that ordering and never mutates a record.
type TransactionRecord struct {
	BlockTime    time.Time `json:"block_time"`
	BlockNumber  uint64    `json:"block_number"`
	Hash         string    `json:"hash"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	EthAmount    float64   `json:"eth_amount"`
	GasUsed      uint64    `json:"gas_used"`
	GasPriceGwei float64   `json:"gas_price_gwei"`
	TotalFeeEth  float64   `json:"total_fee_eth"`
	Success      bool      `json:"success"`
	Nonce        uint64    `json:"nonce"`
	Direction    Direction `json:"direction"`
}
