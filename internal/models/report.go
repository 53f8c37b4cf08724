package models

import "time"

// StatsSummary holds aggregate metrics over one wallet's transaction set.
// It is recomputed from scratch on every tool call and never cached
// incrementally.
type StatsSummary struct {
	TotalTransactions int       `json:"total_transactions"`
	Successful        int       `json:"successful"`
	Outgoing          int       `json:"outgoing"`
	Incoming          int       `json:"incoming"`
	SuccessRate       string    `json:"success_rate"` // percentage, one decimal place
	EthSent           float64   `json:"eth_sent"`
	EthReceived       float64   `json:"eth_received"`
	NetBalance        float64   `json:"net_balance"`
	TotalGasFeesEth   float64   `json:"total_gas_fees_eth"`
	TotalGasUsed      uint64    `json:"total_gas_used"`
	AvgGasPriceGwei   float64   `json:"avg_gas_price_gwei"`
	DailyAverage      float64   `json:"daily_average"`
	EarliestTx        time.Time `json:"earliest_tx"`
	LatestTx          time.Time `json:"latest_tx"`
}

// GasStats describes the gas-price distribution across a transaction set.
type GasStats struct {
	AvgGwei    float64 `json:"avg_gwei"`
	MedianGwei float64 `json:"median_gwei"`
	MinGwei    float64 `json:"min_gwei"`
	MaxGwei    float64 `json:"max_gwei"`
}

// ActivityPattern reports the wallet's most active hour of day (0-23) and
// day of week. On equal bucket counts the lowest index wins, so the result
// is deterministic for a given transaction set.
type ActivityPattern struct {
	MostActiveHour int    `json:"most_active_hour"`
	MostActiveDay  string `json:"most_active_day"`
}

// WalletReport bundles everything the formatter and the AI agent consume
// for a single analyzed wallet.
type WalletReport struct {
	Wallet      string              `json:"wallet"`
	Summary     *StatsSummary       `json:"summary"`
	Gas         *GasStats           `json:"gas"`
	Pattern     *ActivityPattern    `json:"pattern"`
	Recent      []TransactionRecord `json:"recent,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// AnalysisEvent is published whenever a tool call completes a wallet
// analysis. Subscribers (cmd/watch, dashboards) receive it over Redis
// pub/sub.
type AnalysisEvent struct {
	Tool             string    `json:"tool"`
	Wallet           string    `json:"wallet"`
	TransactionCount int       `json:"transaction_count"`
	Timestamp        time.Time `json:"timestamp"`
}
