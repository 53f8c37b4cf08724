package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"
)

// ErrNoTransactions is returned when statistics are requested for an empty
// transaction set. Callers are expected to check for this and report "no
// transactions" instead of rendering a report.
var ErrNoTransactions = errors.New("no transactions")

// Summarize computes aggregate metrics over a wallet's transaction set.
// The input must be ordered newest-first (the provider invariant); the
// summary's latest timestamp is taken from index 0 and the earliest from
// the last index.
func Summarize(txs []models.TransactionRecord) (*models.StatsSummary, error) {
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	s := &models.StatsSummary{
		TotalTransactions: len(txs),
		LatestTx:          txs[0].BlockTime,
		EarliestTx:        txs[len(txs)-1].BlockTime,
	}

	var gasPriceSum float64
	for _, tx := range txs {
		if tx.Success {
			s.Successful++
		}
		switch tx.Direction {
		case models.DirectionOutgoing:
			s.Outgoing++
			s.EthSent += tx.EthAmount
		case models.DirectionIncoming:
			s.Incoming++
			s.EthReceived += tx.EthAmount
		}
		s.TotalGasFeesEth += tx.TotalFeeEth
		s.TotalGasUsed += tx.GasUsed
		gasPriceSum += tx.GasPriceGwei
	}

	s.SuccessRate = fmt.Sprintf("%.1f", float64(s.Successful)/float64(s.TotalTransactions)*100)
	// Transfer amounts only; fees are tracked separately and never netted
	// against the balance.
	s.NetBalance = s.EthReceived - s.EthSent
	s.AvgGasPriceGwei = gasPriceSum / float64(s.TotalTransactions)
	s.DailyAverage = dailyAverage(txs)

	return s, nil
}

// dailyAverage is transactions per whole elapsed day. A single record has
// no span, so anything under two records reports 0.
func dailyAverage(txs []models.TransactionRecord) float64 {
	if len(txs) < 2 {
		return 0
	}
	span := txs[0].BlockTime.Sub(txs[len(txs)-1].BlockTime)
	days := math.Ceil(span.Hours() / 24)
	if days < 1 {
		days = 1
	}
	return float64(len(txs)) / days
}

// ComputeGasStats derives the gas-price distribution from a transaction set.
// The median is computed over a sorted copy; the input order is untouched.
func ComputeGasStats(txs []models.TransactionRecord) (*models.GasStats, error) {
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	prices := make([]float64, len(txs))
	var sum float64
	for i, tx := range txs {
		prices[i] = tx.GasPriceGwei
		sum += tx.GasPriceGwei
	}
	sort.Float64s(prices)

	return &models.GasStats{
		AvgGwei:    sum / float64(len(prices)),
		MedianGwei: median(prices),
		MinGwei:    prices[0],
		MaxGwei:    prices[len(prices)-1],
	}, nil
}

// median expects a sorted slice: the middle element for odd counts, the
// mean of the two middle elements for even counts.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
