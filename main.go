package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"aml-monitor/internal/agent"
	"aml-monitor/internal/cli"
	"aml-monitor/internal/config"
	"aml-monitor/internal/datastore"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		printUsage()
		return 1
	}

	command := os.Args[1]
	args := os.Args[2:]

	// Handle help command without a data store connection
	if command == "help" {
		printUsage()
		return 0
	}

	cfg := config.Load()
	ctx := context.Background()

	// Commands that work purely on files skip the data store.
	switch command {
	case "evaluate":
		return exitCode(cli.RunEvaluate(ctx, args))
	case "assign":
		return exitCode(cli.RunAssign(ctx, cfg, args))
	case "merge-rules":
		cmd := cli.MergeRulesCommand()
		cmd.SetArgs(args)
		return exitCode(cmd.ExecuteContext(ctx))
	case "combine-rules":
		aiAgent, agentErr := agent.NewAgent(ctx, cfg.APIKey)
		if agentErr != nil {
			log.Printf("Failed to initialize AI agent: %v", agentErr)
			return 1
		}
		defer aiAgent.Close()
		cmd := cli.CombineRulesCommand(aiAgent)
		cmd.SetArgs(args)
		return exitCode(cmd.ExecuteContext(ctx))
	}

	dataStore, err := datastore.NewDataStore(cfg.Store)
	if err != nil {
		log.Printf("Failed to initialize data store: %v", err)
		return 1
	}
	defer dataStore.Close()

	if cfg.IsMockMode() {
		fmt.Printf("Running in MOCK mode (data from: %s)\n", cfg.Store.MockDataPath)
	} else {
		fmt.Println("Running in DATABASE mode")
	}

	switch command {
	case "init-db":
		err = dataStore.InitDB(ctx)
		if err != nil {
			log.Printf("Failed to initialize database: %v", err)
			return 1
		}
		fmt.Println("Database initialized successfully.")

	case "score":
		err = cli.RunScore(ctx, dataStore, cfg, args)

	case "pipeline":
		err = cli.RunPipeline(ctx, dataStore, cfg, args)

	case "list":
		err = cli.RunList(ctx, dataStore, args)

	case "extract":
		aiAgent, agentErr := newRequiredAgent(ctx, cfg)
		if agentErr != nil {
			return 1
		}
		defer aiAgent.Close()
		err = cli.RunExtract(ctx, dataStore, aiAgent, args)

	case "gen-rules":
		aiAgent, agentErr := newRequiredAgent(ctx, cfg)
		if agentErr != nil {
			return 1
		}
		defer aiAgent.Close()
		err = cli.RunGenRules(ctx, dataStore, aiAgent, args)

	case "assess":
		aiAgent, agentErr := newRequiredAgent(ctx, cfg)
		if agentErr != nil {
			return 1
		}
		defer aiAgent.Close()
		err = cli.RunAssess(ctx, dataStore, aiAgent, args)

	default:
		log.Printf("Unknown command: %s", command)
		printUsage()
		return 1
	}

	return exitCode(err)
}

// newRequiredAgent builds the Gemini agent for commands that cannot run
// without it.
func newRequiredAgent(ctx context.Context, cfg config.Config) (*agent.Agent, error) {
	aiAgent, err := agent.NewAgent(ctx, cfg.APIKey)
	if err != nil {
		log.Printf("Failed to initialize AI agent: %v", err)
		return nil, err
	}
	if aiAgent == nil {
		log.Println("Error: Neither GEMINI_API_KEY nor GOOGLE_API_KEY environment variable is set.")
		return nil, fmt.Errorf("missing API key")
	}
	return aiAgent, nil
}

func exitCode(err error) int {
	if err != nil {
		log.Printf("Error: %v", err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Println("AML Monitoring Toolkit")
	fmt.Println("\nUsage: aml-monitor <command> [flags]")
	fmt.Println("\nSetup Commands:")
	fmt.Println("  init-db                      (One-time) Initialize database schema and tables")
	fmt.Println("\nScoring Commands:")
	fmt.Println("  score --input=<csv> --criteria=<json> [--output=<csv>] [--fields=<cols>] [--save]")
	fmt.Println("                               Apply keyword criteria to a transactions CSV")
	fmt.Println("  evaluate --input=<csv> --rules=<json> [--output=<csv>]")
	fmt.Println("                               Apply condition rules and derive risk levels")
	fmt.Println("  assign --input=<csv> [--flag-column=<col>] [--threshold=<f>] [--output=<csv>]")
	fmt.Println("                               Flag suspicious rows and route to review teams")
	fmt.Println("  pipeline --input=<csv> --criteria=<json> [--output=<csv>] [--save]")
	fmt.Println("                               Score, flag and route in one pass")
	fmt.Println("\nAgent Commands (require GEMINI_API_KEY or GOOGLE_API_KEY):")
	fmt.Println("  extract --clause=<text>|--file=<path> [--source=<label>] [--save] [--name=<name>]")
	fmt.Println("                               Extract monitoring criteria from regulatory text")
	fmt.Println("  gen-rules --file=<path> --regulator=<label> [--save]")
	fmt.Println("                               Generate an actionable rule set from regulator text")
	fmt.Println("  assess --input=<csv> [--rules=REG=path ...] [--default-regulator=<label>] [--output=<csv>]")
	fmt.Println("                               Model-assess each transaction against regulator rules")
	fmt.Println("\nRule Set Maintenance:")
	fmt.Println("  merge-rules --dir=<path> --pattern=<glob> --prefix=<label> --output=<file>")
	fmt.Println("                               Merge per-chunk rule files, deduplicating by content")
	fmt.Println("  combine-rules --input=<file> [--input=<file> ...] --output=<file> [--summarize]")
	fmt.Println("                               Fuzzily combine rule sets across files")
	fmt.Println("\nUtility Commands:")
	fmt.Println("  list [--kind=criteria|rules|runs|all]")
	fmt.Println("                               List stored criteria sets, rule sets and scoring runs")
	fmt.Println("  help                         Show this message")
	fmt.Println("\nEnvironment:")
	fmt.Println("  AML_STORE_TYPE               postgresql (default) or mock")
	fmt.Println("  DB_CONN_STRING               PostgreSQL connection string")
	fmt.Println("  AML_MOCK_DATA_PATH           Mock store directory (default: data/mocks)")
	fmt.Println("  AML_SCORE_FIELDS             Comma-separated columns searched by the scorer")
	fmt.Println("  AML_FLAG_COLUMN              Confidence column for flagging (default: suspicion_confidence)")
	fmt.Println("  AML_FLAG_THRESHOLD           Flag threshold (default: 0.7)")
}
