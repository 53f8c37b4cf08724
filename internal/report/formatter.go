package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"
)

// Format selects how a wallet report is rendered.
type Format string

const (
	FormatSummary  Format = "summary"
	FormatDetailed Format = "detailed"
	FormatRaw      Format = "raw"
)

// ParseFormat validates a format string, defaulting empty input to summary.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatSummary:
		return FormatSummary, nil
	case FormatDetailed:
		return FormatDetailed, nil
	case FormatRaw:
		return FormatRaw, nil
	default:
		return "", fmt.Errorf("unknown format %q (summary, detailed, raw)", s)
	}
}

// Render turns a wallet report into text in the requested format.
func Render(r *models.WalletReport, format Format) (string, error) {
	switch format {
	case FormatSummary:
		return renderSummary(r), nil
	case FormatDetailed:
		return renderDetailed(r), nil
	case FormatRaw:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal report: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

func renderSummary(r *models.WalletReport) string {
	s := r.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "Wallet %s\n", r.Wallet)
	fmt.Fprintf(&b, "Transactions: %d (%d successful, %s%% success rate)\n", s.TotalTransactions, s.Successful, s.SuccessRate)
	fmt.Fprintf(&b, "Sent: %.6f ETH across %d outgoing\n", s.EthSent, s.Outgoing)
	fmt.Fprintf(&b, "Received: %.6f ETH across %d incoming\n", s.EthReceived, s.Incoming)
	fmt.Fprintf(&b, "Net balance change: %.6f ETH\n", s.NetBalance)
	fmt.Fprintf(&b, "Gas: %.6f ETH total fees, %.1f Gwei average price\n", s.TotalGasFeesEth, s.AvgGasPriceGwei)
	return b.String()
}

func renderDetailed(r *models.WalletReport) string {
	var b strings.Builder
	b.WriteString(renderSummary(r))

	s := r.Summary
	fmt.Fprintf(&b, "\nActivity\n")
	fmt.Fprintf(&b, "First seen: %s\n", s.EarliestTx.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Last seen: %s\n", s.LatestTx.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Daily average: %.2f transactions/day\n", s.DailyAverage)
	fmt.Fprintf(&b, "Total gas used: %d units\n", s.TotalGasUsed)

	if r.Gas != nil {
		fmt.Fprintf(&b, "\nGas price distribution (Gwei)\n")
		fmt.Fprintf(&b, "avg %.2f | median %.2f | min %.2f | max %.2f\n",
			r.Gas.AvgGwei, r.Gas.MedianGwei, r.Gas.MinGwei, r.Gas.MaxGwei)
	}

	if r.Pattern != nil {
		fmt.Fprintf(&b, "\nTemporal pattern\n")
		fmt.Fprintf(&b, "Most active hour: %02d:00 UTC\n", r.Pattern.MostActiveHour)
		fmt.Fprintf(&b, "Most active day: %s\n", r.Pattern.MostActiveDay)
	}

	if len(r.Recent) > 0 {
		fmt.Fprintf(&b, "\nRecent transactions\n")
		for _, tx := range r.Recent {
			b.WriteString(RenderTransaction(tx))
		}
	}
	return b.String()
}

// RenderTransaction formats one record as a single report line.
func RenderTransaction(tx models.TransactionRecord) string {
	status := "ok"
	if !tx.Success {
		status = "FAILED"
	}
	arrow := "->"
	if tx.Direction == models.DirectionIncoming {
		arrow = "<-"
	}
	return fmt.Sprintf("%s  %s %s %s  %.6f ETH  %.1f Gwei  [%s]\n",
		tx.BlockTime.Format("2006-01-02 15:04"), shortHash(tx.Hash), arrow, shortHash(tx.To), tx.EthAmount, tx.GasPriceGwei, status)
}

func shortHash(s string) string {
	if len(s) > 12 {
		return s[:8] + ".." + s[len(s)-4:]
	}
	return s
}
