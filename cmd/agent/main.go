package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/advisor"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/ai"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/config"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/dune"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/oneinch"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/queryclient"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/tokens"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/tools"

	"github.com/sirupsen/logrus"
)

func main() {
	// Flags
	walletFlag := flag.String("w", "", "Wallet address to analyze (0x...)")
	queryFlag := flag.String("q", "", "Run a single natural language question and exit")
	modelFlag := flag.String("model", "openai/gpt-4.1-mini", "OpenRouter model name")
	flag.Parse()

	// Logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// Config
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.OpenRouterAPIKey == "" {
		logger.Fatal("OPENROUTER_API_KEY is required for the AI agent. Please set it in your environment or config.")
	}
	if *walletFlag == "" {
		logger.Fatal("a wallet address is required, pass it with -w 0x...")
	}

	// Context + signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down AI agent...")
		cancel()
	}()

	// The agent reports through the same tool registry as the API server,
	// minus the optional cache and audit collaborators.
	provider := dune.NewClient(dune.ClientConfig{
		BaseURL: cfg.DuneBaseURL,
		APIKey:  cfg.DuneAPIKey,
		QueryID: cfg.DuneQueryID,
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
	})
	registry := tools.NewRegistry(tools.Deps{
		Query: queryclient.NewClient(provider, queryclient.Config{
			PollInterval: cfg.QueryPollInterval,
			MaxAttempts:  cfg.QueryMaxAttempts,
			Logger:       logger,
		}),
		Resolver: tokens.NewResolver(tokens.DefaultRegistry()),
		Swap:     oneinch.NewClient(cfg.OneInchBaseURL, cfg.OneInchAPIKey),
		Advisor:  advisor.New(advisor.DefaultThresholds(), logger),
		Logger:   logger,
	})

	// Agent
	agent, err := ai.NewAgent(registry, ai.AgentConfig{
		OpenRouterAPIKey: cfg.OpenRouterAPIKey,
		Model:            *modelFlag,
		Logger:           logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create AI agent")
	}

	// Single-shot mode
	if *queryFlag != "" {
		if err := runSingle(ctx, agent, *walletFlag, *queryFlag); err != nil {
			logger.WithError(err).Fatal("query failed")
		}
		return
	}

	// REPL mode
	runREPL(ctx, agent, *walletFlag)
}

func runSingle(ctx context.Context, agent *ai.Agent, wallet, q string) error {
	res, err := agent.Ask(ctx, wallet, q)
	if err != nil {
		return err
	}

	fmt.Printf("Answer:\n%s\n", res.Answer)
	return nil
}

func runREPL(ctx context.Context, agent *ai.Agent, wallet string) {
	fmt.Printf("Wallet AI Agent for %s\n", wallet)
	fmt.Println("Type your question and press Enter. Empty line to exit.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		q, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("error reading input:", err)
			return
		}
		q = strings.TrimSpace(q)
		if q == "" {
			fmt.Println("bye")
			return
		}

		// Short cooldown to avoid hammering the LLM if user spams enter.
		time.Sleep(200 * time.Millisecond)

		res, err := agent.Ask(ctx, wallet, q)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}

		fmt.Printf("\nAnswer:\n%s\n\n", res.Answer)
	}
}
