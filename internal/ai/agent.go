package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Reporter produces a full wallet report; the tool registry satisfies it.
type Reporter interface {
	Report(ctx context.Context, wallet string) (*models.WalletReport, error)
}

// AgentConfig holds configuration for the wallet AI agent.
type AgentConfig struct {
	// OpenRouter / LLM settings.
	OpenRouterAPIKey string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model string

	Logger *logrus.Logger
}

// Agent answers free-form questions about a wallet by running the full
// analysis and handing the computed report to an LLM. The model only ever
// sees derived statistics, never raw provider credentials.
type Agent struct {
	llm      llms.Model
	reporter Reporter
	logger   *logrus.Logger
}

// NewAgent creates an agent backed by OpenRouter's OpenAI-compatible API.
func NewAgent(reporter Reporter, cfg AgentConfig) (*Agent, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4.1-mini"
	}

	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL("https://openrouter.ai/api/v1"),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
	}

	cfg.Logger.WithField("model", cfg.Model).Info("initialized wallet AI agent")

	return &Agent{
		llm:      llm,
		reporter: reporter,
		logger:   cfg.Logger,
	}, nil
}

// AskResult is the structured result of an Ask call.
type AskResult struct {
	Report *models.WalletReport
	Answer string
}

// Ask analyzes the wallet and asks the LLM to answer the question from the
// computed report.
func (a *Agent) Ask(ctx context.Context, wallet, question string) (*AskResult, error) {
	rep, err := a.reporter.Report(ctx, wallet)
	if err != nil {
		return nil, err
	}

	answer, err := a.summarize(ctx, question, rep)
	if err != nil {
		return nil, err
	}

	return &AskResult{Report: rep, Answer: answer}, nil
}

func (a *Agent) summarize(ctx context.Context, question string, rep *models.WalletReport) (string, error) {
	data, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	prompt := fmt.Sprintf(`
You are a helpful assistant analysing Ethereum wallet activity.

User question:
%s

Computed wallet report in JSON (volumes, gas statistics, success rate, temporal patterns):
%s

Instructions:
- Answer the question concisely using bullet points and short sentences.
- Include key numbers (ETH amounts, gas prices, rates) rounded reasonably.
- If the report does not contain what the question asks for, say so.
- Do not restate the raw JSON.
`, question, string(data))

	resp, err := llms.GenerateFromSinglePrompt(
		ctx,
		a.llm,
		prompt,
		llms.WithMaxTokens(512),
	)
	if err != nil {
		return "", fmt.Errorf("LLM summarisation failed: %w", err)
	}

	a.logger.WithField("wallet", rep.Wallet).Debug("answered wallet question")
	return strings.TrimSpace(resp), nil
}
