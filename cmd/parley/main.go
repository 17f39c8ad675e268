// ABOUTME: Entry point for the parley chat CLI
// ABOUTME: Wires the store, completion client, and identity into the conversation service

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/parley/internal/auth"
	"github.com/2389/parley/internal/config"
	"github.com/2389/parley/internal/conversation"
	"github.com/2389/parley/internal/gemini"
	"github.com/2389/parley/internal/store"
	"github.com/2389/parley/internal/transcript"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                   _
 _ __   __ _ _ __| | ___ _   _
| '_ \ / _' | '__| |/ _ \ | | |
| |_) | (_| | |  | |  __/ |_| |
| .__/ \__,_|_|  |_|\___|\__, |
|_|                      |___/
`

// getConfigPath returns the path to the parley config file.
// Priority: PARLEY_CONFIG env var > XDG_CONFIG_HOME/parley/config.yaml > ~/.config/parley/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PARLEY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "parley", "config.yaml")
}

// getDataPath returns the path to the parley data directory.
// Priority: XDG_DATA_HOME/parley > ~/.local/share/parley
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "parley")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: parley <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  chat             Interactive conversation")
		fmt.Println("  send <text>      Send one message and print the reply")
		fmt.Println("  history          Print the conversation grouped by day")
		fmt.Println("  clear            Delete the whole conversation")
		fmt.Println("  export <file>    Write an HTML transcript")
		fmt.Println("  init             Create a new config file interactively")
		fmt.Println("  whoami           Print the signed-in identity")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "chat":
		err = runChat(ctx)
	case "send":
		err = runSend(ctx, strings.Join(os.Args[2:], " "))
	case "history":
		err = runHistory(ctx)
	case "clear":
		err = runClear(ctx)
	case "export":
		if len(os.Args) < 3 {
			err = fmt.Errorf("export requires a file argument")
		} else {
			err = runExport(ctx, os.Args[2])
		}
	case "init":
		err = runInit()
	case "whoami":
		err = runWhoami(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired-up collaborators. Everything is constructed
// once here and injected; nothing below main reaches for globals.
type app struct {
	cfg      *config.Config
	service  *conversation.Service
	identity auth.Provider
	store    store.Store
	logger   *slog.Logger
}

func (a *app) Close() {
	a.service.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}

// buildApp loads the config and constructs the service with all its
// collaborators.
func buildApp(ctx context.Context) (*app, error) {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	completer := gemini.New(gemini.Config{
		APIKey:      cfg.Completion.APIKey,
		Model:       cfg.Completion.Model,
		BaseURL:     cfg.Completion.BaseURL,
		Timeout:     cfg.Completion.Timeout,
		MaxAttempts: cfg.Completion.MaxAttempts,
	}, logger)

	identity := identityProvider(cfg.Identity, logger)

	svc := conversation.New(st, completer, identity, logger)

	return &app{
		cfg:      cfg,
		service:  svc,
		identity: identity,
		store:    st,
		logger:   logger,
	}, nil
}

// identityProvider picks the provider from config. A static identity
// wins over a token file; with neither set, every operation no-ops.
func identityProvider(cfg config.IdentityConfig, logger *slog.Logger) auth.Provider {
	if cfg.StaticID != "" {
		return auth.Static(cfg.StaticID)
	}
	if cfg.TokenPath != "" {
		return auth.NewTokenProvider(cfg.TokenPath, logger)
	}
	return auth.Static("")
}

func runChat(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	cyan.Print(banner)
	gray.Printf("    version: %s\n\n", version)

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if identity, ok := a.identity.Current(ctx); ok {
		fmt.Printf("Signed in as %s\n", identity)
	} else {
		color.Yellow("Not signed in: messages will be ignored. Run 'parley init' or set identity in the config.")
	}
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	a.service.Load(ctx)
	printNewMessages(a.service, len(a.service.Messages()))

	if err := chatLoop(ctx, a); err != nil {
		return err
	}

	fmt.Println("\nGoodbye!")
	return nil
}

func chatLoop(ctx context.Context, a *app) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		// Read input with context awareness
		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if input == "/help" {
			printHelp()
			fmt.Println()
			continue
		}

		if input == "/history" {
			printGrouped(a.service.GroupedByDay())
			fmt.Println()
			continue
		}

		if strings.HasPrefix(input, "/edit") {
			args := strings.Fields(strings.TrimPrefix(input, "/edit"))
			if len(args) < 2 {
				fmt.Println("Usage: /edit <id> <new text>")
			} else {
				before := len(a.service.Messages())
				a.service.UpdateByID(ctx, args[0], strings.Join(args[1:], " "))
				printNewMessages(a.service, before)
			}
			fmt.Println()
			continue
		}

		if strings.HasPrefix(input, "/delete") {
			args := strings.Fields(strings.TrimPrefix(input, "/delete"))
			if len(args) != 1 {
				fmt.Println("Usage: /delete <id>")
			} else {
				before := len(a.service.Messages())
				a.service.DeleteByID(ctx, args[0])
				printNewMessages(a.service, before-1)
			}
			fmt.Println()
			continue
		}

		if input == "/clear" {
			a.service.DeleteAll(ctx)
			fmt.Println("Conversation cleared.")
			fmt.Println()
			continue
		}

		if strings.HasPrefix(input, "/export") {
			args := strings.Fields(strings.TrimPrefix(input, "/export"))
			if len(args) != 1 {
				fmt.Println("Usage: /export <file>")
			} else if err := exportTranscript(a.service, args[0]); err != nil {
				fmt.Printf("[error] %v\n", err)
			} else {
				fmt.Printf("Transcript written to %s\n", args[0])
			}
			fmt.Println()
			continue
		}

		if strings.HasPrefix(input, "/") {
			fmt.Printf("Unknown command: %s (/help for commands)\n\n", input)
			continue
		}

		// Plain text: send it and print whatever the exchange appended.
		before := len(a.service.Messages())
		a.service.Send(ctx, input)
		printNewMessages(a.service, before+1) // skip echoing the user's own line
		fmt.Println()
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /history            Show the conversation grouped by day")
	fmt.Println("  /edit <id> <text>   Edit a message by ID")
	fmt.Println("  /delete <id>        Delete a message by ID")
	fmt.Println("  /clear              Delete the whole conversation")
	fmt.Println("  /export <file>      Write an HTML transcript")
	fmt.Println("  /help               Show this help")
	fmt.Println("  /quit               Exit")
}

// printNewMessages prints every message past index from, so the REPL
// shows replies and notices without echoing older history.
func printNewMessages(svc *conversation.Service, from int) {
	messages := svc.Messages()
	if from < 0 {
		from = 0
	}
	for _, m := range messages[min(from, len(messages)):] {
		printMessage(m)
	}
}

func printMessage(m conversation.Message) {
	gray := color.New(color.FgHiBlack)

	if m.IsUser {
		color.New(color.FgBlue, color.Bold).Print("you ")
	} else {
		color.New(color.FgMagenta, color.Bold).Print("ai  ")
	}
	gray.Printf("%s ", m.Timestamp.Format("15:04"))
	fmt.Println(m.Text)
	if m.ID != "" {
		gray.Printf("    id: %s\n", m.ID)
	} else if m.Sync == conversation.SyncFailed {
		color.Yellow("    (not saved)")
	}
}

func printGrouped(groups []conversation.DayGroup) {
	if len(groups) == 0 {
		fmt.Println("No messages.")
		return
	}
	cyan := color.New(color.FgCyan, color.Bold)
	for _, g := range groups {
		cyan.Printf("-- %s --\n", g.Day)
		for _, m := range g.Messages {
			printMessage(m)
		}
	}
}

func runSend(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("send requires message text")
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.identity.Current(ctx); !ok {
		return fmt.Errorf("not signed in")
	}

	a.service.Send(ctx, text)
	printNewMessages(a.service, 0)
	return nil
}

func runHistory(ctx context.Context) error {
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.service.Load(ctx)
	printGrouped(a.service.GroupedByDay())
	return nil
}

func runClear(ctx context.Context) error {
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.identity.Current(ctx); !ok {
		return fmt.Errorf("not signed in")
	}

	a.service.DeleteAll(ctx)
	fmt.Println("Conversation cleared.")
	return nil
}

func runExport(ctx context.Context, path string) error {
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.service.Load(ctx)
	if err := exportTranscript(a.service, path); err != nil {
		return err
	}

	fmt.Printf("Transcript written to %s\n", path)
	return nil
}

func exportTranscript(svc *conversation.Service, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating transcript file: %w", err)
	}

	if err := transcript.WriteHTML(f, svc.GroupedByDay()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runWhoami(ctx context.Context) error {
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	identity, ok := a.identity.Current(ctx)
	if !ok {
		fmt.Println("Not signed in.")
		return nil
	}

	fmt.Println(identity)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("parley configuration setup")
	fmt.Println("==========================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "parley.db")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Store Configuration ---")
	backend := prompt(reader, "Store backend (firestore/sqlite/memory)", config.BackendSQLite)

	var projectID, collection, credentialsFile, dbPath string
	switch backend {
	case config.BackendFirestore:
		projectID = prompt(reader, "Firestore project ID", "")
		collection = prompt(reader, "Collection name", store.DefaultCollection)
		credentialsFile = prompt(reader, "Credentials file (empty for ADC)", "")
	case config.BackendSQLite:
		dbPath = prompt(reader, "SQLite database path", defaultDbPath)
	}

	fmt.Println("\n--- Completion Configuration ---")
	apiKey := prompt(reader, "Gemini API key (empty to disable replies)", "")
	model := prompt(reader, "Model", gemini.DefaultModel)

	fmt.Println("\n--- Identity Configuration ---")
	staticID := prompt(reader, "Static identity (empty to use a token file)", "")
	var tokenPath string
	if staticID == "" {
		defaultTokenPath := filepath.Join(filepath.Dir(outputFile), "token")
		tokenPath = prompt(reader, "ID token file path", defaultTokenPath)
	}

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "warn")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# parley configuration\n")
	cfg.WriteString("# Generated by parley init\n\n")

	cfg.WriteString("store:\n")
	cfg.WriteString(fmt.Sprintf("  backend: \"%s\"\n", backend))
	switch backend {
	case config.BackendFirestore:
		cfg.WriteString(fmt.Sprintf("  project_id: \"%s\"\n", projectID))
		cfg.WriteString(fmt.Sprintf("  collection: \"%s\"\n", collection))
		if credentialsFile != "" {
			cfg.WriteString(fmt.Sprintf("  credentials_file: \"%s\"\n", credentialsFile))
		}
	case config.BackendSQLite:
		cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	}
	cfg.WriteString("\n")

	cfg.WriteString("completion:\n")
	cfg.WriteString(fmt.Sprintf("  api_key: \"%s\"\n", apiKey))
	cfg.WriteString(fmt.Sprintf("  model: \"%s\"\n", model))
	cfg.WriteString("  timeout: \"30s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("identity:\n")
	if staticID != "" {
		cfg.WriteString(fmt.Sprintf("  static_id: \"%s\"\n", staticID))
	} else {
		cfg.WriteString(fmt.Sprintf("  token_path: \"%s\"\n", tokenPath))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if backend == config.BackendSQLite {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start chatting:")
	fmt.Printf("  parley chat\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
