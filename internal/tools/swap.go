package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/advisor"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/oneinch"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/tokens"
)

type smartSwapInput struct {
	WalletAddress string `json:"wallet_address"`
	FromToken     string `json:"from_token"`
	ToToken       string `json:"to_token"`
	Amount        string `json:"amount"`
}

func (r *Registry) smartSwapAnalyzer(ctx context.Context, input json.RawMessage) (string, error) {
	var params smartSwapInput
	if err := json.Unmarshal(input, &params); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if err := validateAddress(params.WalletAddress); err != nil {
		return "", err
	}

	from, to, rawAmount, err := r.resolveSwap(params.FromToken, params.ToToken, params.Amount)
	if err != nil {
		return "", err
	}

	txs, err := r.fetchTransactions(ctx, params.WalletAddress)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return fmt.Sprintf("No transactions found for wallet %s; cannot derive historical context for this swap.", params.WalletAddress), nil
	}

	quote, err := r.deps.Swap.Quote(ctx, oneinch.QuoteRequest{
		Src:    from.Address,
		Dst:    to.Address,
		Amount: rawAmount,
	})
	if err != nil {
		return "", &QuoteError{Err: err}
	}

	advice, err := r.deps.Advisor.Recommend(txs, quote, advisor.SwapContext{
		FromSymbol: params.FromToken,
		ToSymbol:   params.ToToken,
		Amount:     params.Amount,
		ToDecimals: to.Decimals,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Swap analysis: %s %s -> %s\n", advice.AmountIn, advice.FromToken, advice.ToToken)
	fmt.Fprintf(&b, "Estimated output: %s %s (gas estimate %d units)\n", advice.EstimatedOut, advice.ToToken, advice.QuoteGasUnits)
	if len(advice.Routes) > 0 {
		fmt.Fprintf(&b, "Route: %s\n", strings.Join(advice.Routes, " + "))
	}
	fmt.Fprintf(&b, "\nHistorical context (%d transactions, %s%% success rate, %.1f Gwei average gas)\n",
		len(txs), advice.SuccessRate, advice.AvgGasGwei)
	for _, finding := range advice.Findings {
		fmt.Fprintf(&b, "- %s\n", finding)
	}
	fmt.Fprintf(&b, "\n%s\n", advice.Recommendation)

	r.publish(ctx, ToolSmartSwapAnalyzer, params.WalletAddress, len(txs))
	return b.String(), nil
}

type gasOptimizationInput struct {
	WalletAddress string `json:"wallet_address"`
	FromToken     string `json:"from_token,omitempty"`
	ToToken       string `json:"to_token,omitempty"`
	Amount        string `json:"amount,omitempty"`
}

func (r *Registry) gasOptimization(ctx context.Context, input json.RawMessage) (string, error) {
	var params gasOptimizationInput
	if err := json.Unmarshal(input, &params); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if err := validateAddress(params.WalletAddress); err != nil {
		return "", err
	}

	txs, err := r.fetchTransactions(ctx, params.WalletAddress)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return fmt.Sprintf("No transactions found for wallet %s.", params.WalletAddress), nil
	}

	// The swap enrichment is optional: when the caller names a swap and the
	// quote cannot be fetched, degrade to the history-only analysis with a
	// warning note instead of failing the whole call.
	var quote *oneinch.QuoteResponse
	var warning string
	if params.FromToken != "" && params.ToToken != "" && params.Amount != "" {
		from, to, rawAmount, err := r.resolveSwap(params.FromToken, params.ToToken, params.Amount)
		if err != nil {
			warning = fmt.Sprintf("swap enrichment unavailable: %v", err)
		} else {
			q, err := r.deps.Swap.Quote(ctx, oneinch.QuoteRequest{Src: from.Address, Dst: to.Address, Amount: rawAmount})
			if err != nil {
				warning = fmt.Sprintf("swap enrichment unavailable: %v", err)
			} else {
				quote = q
			}
		}
	}

	advice, err := r.deps.Advisor.Optimize(txs, quote)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Gas optimization for %s\n", params.WalletAddress)
	fmt.Fprintf(&b, "Historical gas price: %.1f Gwei average, %.1f Gwei median\n", advice.AvgGasGwei, advice.MedianGasGwei)
	fmt.Fprintf(&b, "Reference cost: %.6f ETH at your average (%d gas units)\n", advice.CostAtAvgEth, advice.GasUnits)
	fmt.Fprintf(&b, "\nScenarios\n")
	for _, s := range advice.Scenarios {
		fmt.Fprintf(&b, "- at %.0f Gwei: %.6f ETH (potential savings %.6f ETH)\n", s.PriceGwei, s.CostEth, s.SavingsEth)
	}
	if len(advice.Findings) > 0 {
		fmt.Fprintf(&b, "\n")
		for _, finding := range advice.Findings {
			fmt.Fprintf(&b, "- %s\n", finding)
		}
	}
	if warning != "" {
		fmt.Fprintf(&b, "\nNote: %s\n", warning)
	}

	r.publish(ctx, ToolGasOptimization, params.WalletAddress, len(txs))
	return b.String(), nil
}

// resolveSwap resolves both tokens and scales the human amount into the
// source token's smallest unit.
func (r *Registry) resolveSwap(fromToken, toToken, amount string) (tokens.Token, tokens.Token, string, error) {
	from, err := r.deps.Resolver.Resolve(fromToken)
	if err != nil {
		return tokens.Token{}, tokens.Token{}, "", err
	}
	to, err := r.deps.Resolver.Resolve(toToken)
	if err != nil {
		return tokens.Token{}, tokens.Token{}, "", err
	}
	rawAmount, err := tokens.ToSmallestUnit(amount, from.Decimals)
	if err != nil {
		return tokens.Token{}, tokens.Token{}, "", err
	}
	return from, to, rawAmount, nil
}
