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

	"resilience-ai/internal/gateway"
	"resilience-ai/internal/infra/config"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	cmd := "repl"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "resilience.yaml", "path to the configuration file")
	fs.Parse(args)

	var err error
	switch cmd {
	case "repl":
		err = runREPL(*configPath)
	case "serve":
		err = runServe(*configPath)
	case "load-data":
		err = runLoadData(*configPath)
	case "agents":
		err = runAgents(*configPath)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'resilience --help' for usage information.\n", cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Print(`ResilienceAI - supply chain risk intelligence agents

Usage:
  resilience [command] [flags]

Commands:
  repl       interactive question prompt (default)
  serve      run the HTTP gateway
  load-data  import agent_*.csv datasets into the indicator store
  agents     print the configured agent roster

Flags:
  -config string   path to the configuration file (default "resilience.yaml")
`)
}

func runREPL(configPath string) error {
	app, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("  ResilienceAI -- Supply Chain Risk Intelligence")
	fmt.Println("  Agents:", strings.Join(app.Registry.IDs(), " | "))
	fmt.Println("  Type 'quit' to exit")
	fmt.Println(strings.Repeat("=", 60))

	scanner := bufio.NewScanner(os.Stdin)
	sessionID := ""
	for {
		fmt.Print("[?] Ask: ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if q := strings.ToLower(question); q == "quit" || q == "exit" || q == "q" {
			fmt.Println("Goodbye!")
			break
		}

		fmt.Println("\n[...] Analyzing...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		res, err := app.Supervisor.Ask(ctx, question, sessionID)
		cancel()
		if err != nil {
			fmt.Printf("[!] %v\n\n", err)
			continue
		}
		sessionID = res.SessionID
		fmt.Printf("\n[=] Response:\n%s\n\n", res.Text)
		fmt.Println(strings.Repeat("-", 60))
	}
	return scanner.Err()
}

func runServe(configPath string) error {
	app, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := gateway.New(app.Config.Gateway, app.Supervisor, app.Registry, app.Logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		app.Logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func runLoadData(configPath string) error {
	app, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := app.Datasets.LoadCSVDir(ctx, app.Config.Datasets.Dir); err != nil {
		return err
	}
	fmt.Println("datasets loaded into", app.Config.Datasets.DBPath)
	return nil
}

func runAgents(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	for _, a := range cfg.Agents {
		dataset := a.Dataset
		if dataset == "" {
			dataset = "-"
		}
		fmt.Printf("%-22s dataset=%-10s %s\n", a.ID, dataset, a.Description)
	}
	return nil
}
