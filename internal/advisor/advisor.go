package advisor

import (
	"fmt"
	"strings"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/oneinch"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/stats"

	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Thresholds are the fixed heuristic constants the advisor applies. They are
// deliberately not market-fed: the USD figures are placeholders, and a
// deployment that needs live prices should feed them in here.
type Thresholds struct {
	FavorableGasGwei  float64   // below this, conditions are flagged favorable
	HighGasGwei       float64   // above this, caution is flagged
	HighCostRatioPct  float64   // gas-cost / tx-value ratio considered high
	HighConfidencePct float64   // historical success rate considered high confidence
	TxValueUSD        float64   // placeholder transaction value for the ratio
	EthUsdRate        float64   // placeholder ETH/USD rate for the ratio
	ScenarioGwei      []float64 // hypothetical gas prices for the optimization variant
}

// DefaultThresholds returns the advisor's standard rule set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FavorableGasGwei:  20,
		HighGasGwei:       50,
		HighCostRatioPct:  5,
		HighConfidencePct: 95,
		TxValueUSD:        1000,
		EthUsdRate:        3000,
		ScenarioGwei:      []float64{15, 10},
	}
}

// SwapContext carries the resolved swap parameters into a recommendation.
type SwapContext struct {
	FromSymbol string
	ToSymbol   string
	Amount     string // human-readable input amount
	ToDecimals int    // destination token decimals, for scaling dstAmount
}

// SwapAdvice is the structured recommendation for one proposed swap.
type SwapAdvice struct {
	FromToken       string   `json:"from_token"`
	ToToken         string   `json:"to_token"`
	AmountIn        string   `json:"amount_in"`
	EstimatedOut    string   `json:"estimated_out"`
	Routes          []string `json:"routes,omitempty"`
	QuoteGasUnits   int64    `json:"quote_gas_units"`
	AvgGasGwei      float64  `json:"avg_gas_gwei"`
	SuccessRate     string   `json:"success_rate"`
	GasCostRatioPct float64  `json:"gas_cost_ratio_pct"`
	Findings        []string `json:"findings"`
	Recommendation  string   `json:"recommendation"`
}

// GasScenario is one hypothetical repricing of the quoted swap.
type GasScenario struct {
	PriceGwei  float64 `json:"price_gwei"`
	CostEth    float64 `json:"cost_eth"`
	SavingsEth float64 `json:"savings_eth"` // versus the wallet's historical average
}

// GasAdvice is the gas-optimization variant's output.
type GasAdvice struct {
	AvgGasGwei    float64       `json:"avg_gas_gwei"`
	MedianGasGwei float64       `json:"median_gas_gwei"`
	GasUnits      int64         `json:"gas_units"`
	CostAtAvgEth  float64       `json:"cost_at_avg_eth"`
	Scenarios     []GasScenario `json:"scenarios"`
	Findings      []string      `json:"findings"`
}

// Advisor turns historical wallet statistics and a live aggregator quote
// into a textual recommendation via fixed heuristic rules.
type Advisor struct {
	thresholds Thresholds
	logger     *logrus.Logger
}

// New creates an advisor with the given rule set.
func New(thresholds Thresholds, logger *logrus.Logger) *Advisor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Advisor{thresholds: thresholds, logger: logger}
}

// gasCostEth is the ETH cost of gasUnits at priceGwei.
func gasCostEth(gasUnits int64, priceGwei float64) float64 {
	return float64(gasUnits) * priceGwei * float64(params.GWei) / float64(params.Ether)
}

// scaleAmount renders a raw smallest-unit integer string as a human amount.
func scaleAmount(raw string, decimals int) string {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}
	return d.Shift(int32(-decimals)).String()
}

// Recommend combines the live quote with the wallet's historical gas and
// success statistics. The transaction set must be non-empty.
func (a *Advisor) Recommend(txs []models.TransactionRecord, quote *oneinch.QuoteResponse, swap SwapContext) (*SwapAdvice, error) {
	summary, err := stats.Summarize(txs)
	if err != nil {
		return nil, err
	}
	gas, err := stats.ComputeGasStats(txs)
	if err != nil {
		return nil, err
	}

	advice := &SwapAdvice{
		FromToken:     strings.ToUpper(swap.FromSymbol),
		ToToken:       strings.ToUpper(swap.ToSymbol),
		AmountIn:      swap.Amount,
		EstimatedOut:  scaleAmount(quote.DstAmount, swap.ToDecimals),
		Routes:        quote.RouteNames(),
		QuoteGasUnits: quote.Gas,
		AvgGasGwei:    gas.AvgGwei,
		SuccessRate:   summary.SuccessRate,
	}

	t := a.thresholds
	if gas.AvgGwei < t.FavorableGasGwei {
		advice.Findings = append(advice.Findings,
			fmt.Sprintf("average gas price %.1f Gwei is below %.0f Gwei: conditions look favorable", gas.AvgGwei, t.FavorableGasGwei))
	} else if gas.AvgGwei > t.HighGasGwei {
		advice.Findings = append(advice.Findings,
			fmt.Sprintf("average gas price %.1f Gwei is above %.0f Gwei: consider waiting for cheaper gas", gas.AvgGwei, t.HighGasGwei))
	}

	// Approximate cost ratio from placeholder USD figures. Known
	// approximation: a production deployment feeds live prices in through
	// Thresholds instead.
	costUSD := gasCostEth(quote.Gas, gas.AvgGwei) * t.EthUsdRate
	advice.GasCostRatioPct = costUSD / t.TxValueUSD * 100
	if advice.GasCostRatioPct > t.HighCostRatioPct {
		advice.Findings = append(advice.Findings,
			fmt.Sprintf("estimated gas cost is %.1f%% of a $%.0f transaction: high relative cost", advice.GasCostRatioPct, t.TxValueUSD))
	} else {
		advice.Findings = append(advice.Findings,
			fmt.Sprintf("estimated gas cost is %.1f%% of a $%.0f transaction: reasonable", advice.GasCostRatioPct, t.TxValueUSD))
	}

	successPct := float64(summary.Successful) / float64(summary.TotalTransactions) * 100
	if successPct > t.HighConfidencePct {
		advice.Findings = append(advice.Findings,
			fmt.Sprintf("historical success rate %s%% is above %.0f%%: high confidence", summary.SuccessRate, t.HighConfidencePct))
	}

	advice.Recommendation = fmt.Sprintf("Swap %s %s -> ~%s %s via %s. %s",
		swap.Amount, advice.FromToken, advice.EstimatedOut, advice.ToToken,
		routeLabel(advice.Routes), strings.Join(advice.Findings, "; "))

	a.logger.WithFields(logrus.Fields{
		"from":      advice.FromToken,
		"to":        advice.ToToken,
		"ratio_pct": fmt.Sprintf("%.2f", advice.GasCostRatioPct),
	}).Debug("swap recommendation computed")

	return advice, nil
}

// Optimize computes hypothetical swap costs at the configured cheap-gas
// scenarios and reports the delta against the wallet's historical average.
// This is a linear re-scaling of gasUnits x price, not a market simulation.
// quote may be nil, in which case a plain transfer's gas limit is assumed.
func (a *Advisor) Optimize(txs []models.TransactionRecord, quote *oneinch.QuoteResponse) (*GasAdvice, error) {
	gas, err := stats.ComputeGasStats(txs)
	if err != nil {
		return nil, err
	}

	gasUnits := int64(params.TxGas)
	if quote != nil && quote.Gas > 0 {
		gasUnits = quote.Gas
	}

	advice := &GasAdvice{
		AvgGasGwei:    gas.AvgGwei,
		MedianGasGwei: gas.MedianGwei,
		GasUnits:      gasUnits,
		CostAtAvgEth:  gasCostEth(gasUnits, gas.AvgGwei),
	}

	for _, price := range a.thresholds.ScenarioGwei {
		scenario := GasScenario{
			PriceGwei: price,
			CostEth:   gasCostEth(gasUnits, price),
		}
		// An average at or below the scenario price has nothing to save;
		// never report a negative saving.
		if gas.AvgGwei > price {
			scenario.SavingsEth = gasCostEth(gasUnits, gas.AvgGwei-price)
		}
		advice.Scenarios = append(advice.Scenarios, scenario)
		if scenario.SavingsEth > 0 {
			advice.Findings = append(advice.Findings,
				fmt.Sprintf("submitting at %.0f Gwei instead of your %.1f Gwei average would save ~%.6f ETH", price, gas.AvgGwei, scenario.SavingsEth))
		} else {
			advice.Findings = append(advice.Findings,
				fmt.Sprintf("your %.1f Gwei average is already at or below the %.0f Gwei scenario", gas.AvgGwei, price))
		}
	}

	if gas.AvgGwei < a.thresholds.FavorableGasGwei {
		advice.Findings = append(advice.Findings, "historical gas usage is already efficient")
	}

	return advice, nil
}

func routeLabel(routes []string) string {
	if len(routes) == 0 {
		return "the aggregator"
	}
	return strings.Join(routes, " + ")
}
