// Command camd is the watcher daemon entrypoint: it loads configuration,
// wires every collaborator package into a Watcher Loop, and exposes the
// minimal CLI surface spec.md §6 calls for ("commands to start, stop,
// check status, inspect logs, and force a single-agent wait check. Exit
// code 0 on success, non-zero on any startup failure").
//
// Grounded on the teacher's cmd/tarsy/main.go: flag-based config-dir
// resolution with an environment-variable default, godotenv.Load for an
// optional .env file, gin.SetMode configured once at the entrypoint, and
// fatal-on-startup-error semantics. The teacher's Postgres/service
// bootstrap is replaced with this domain's own collaborators (registry,
// hook tracker, deduplicator, tmux manager, LLM client, delivery
// pipeline, watcher loop, status server).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"

	"github.com/cam-watcher/cam/internal/agents"
	"github.com/cam-watcher/cam/internal/config"
	"github.com/cam-watcher/cam/internal/coordination"
	"github.com/cam-watcher/cam/internal/dedup"
	"github.com/cam-watcher/cam/internal/delivery"
	"github.com/cam-watcher/cam/internal/extractor"
	"github.com/cam-watcher/cam/internal/jsonllog"
	"github.com/cam-watcher/cam/internal/llmclient"
	"github.com/cam-watcher/cam/internal/model"
	"github.com/cam-watcher/cam/internal/statusserver"
	"github.com/cam-watcher/cam/internal/store"
	"github.com/cam-watcher/cam/internal/tmux"
	"github.com/cam-watcher/cam/internal/version"
	"github.com/cam-watcher/cam/internal/watcherloop"
	"github.com/cam-watcher/cam/internal/webhook"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./cam.yaml"
	}
	return filepath.Join(home, ".config", "cam", "cam.yaml")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		runStart(os.Args[2:])
	case "stop":
		runStop(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "logs":
		runLogs(os.Args[2:])
	case "check":
		runCheck(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Println(version.Full())
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "camd: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `camd: supervises terminal-attached coding agents

Usage:
  camd start [-config path]     start the watcher daemon in the foreground
  camd stop [-config path]      signal a running daemon to shut down
  camd status [-config path]    report currently tracked agents
  camd logs [-config path] [-follow]   print (and optionally tail) notifications.log
  camd check <agent-id> [-config path] force a one-shot wait-state check`)
}

// runStart loads configuration, wires every collaborator, and blocks
// until SIGTERM/SIGINT, matching the teacher's long-lived router.Run
// lifecycle with a watcher loop in place of the HTTP router.
func runStart(args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", getEnv("CAM_CONFIG", defaultConfigPath()), "path to cam.yaml")
	fs.Parse(args)

	if err := godotenv.Load(filepath.Join(filepath.Dir(*configPath), ".env")); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	gin.SetMode(getEnv("GIN_MODE", gin.ReleaseMode))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		slog.Error("failed to create state directory", "dir", cfg.StateDir, "error", err)
		os.Exit(1)
	}
	paths := store.NewPaths(cfg.StateDir)

	lock := coordination.New(paths.WatcherPID())
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, coordination.ErrLocked) {
			slog.Error("another watcher instance already holds the lock", "pid_file", paths.WatcherPID())
		} else {
			slog.Error("failed to acquire watcher lock", "error", err)
		}
		os.Exit(1)
	}
	defer lock.Release()

	llmClient, err := llmclient.New(llmclient.Config{
		BaseURL:           cfg.LLM.URL,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		MaxTokens:         cfg.LLM.MaxTokens,
		ClassifierTimeout: cfg.ClassifierTimeoutDuration(),
		ExtractorTimeout:  cfg.ExtractorTimeoutDuration(),
	})
	if err != nil {
		slog.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}

	registry := store.NewRegistryStore(paths)
	hookTracker := store.NewHookTrackerStore(paths)
	notifyLog := store.NewNotificationLog(paths)
	dd, err := dedup.New(store.NewDedupStateStore(paths))
	if err != nil {
		slog.Error("failed to load dedup state", "error", err)
		os.Exit(1)
	}

	transport := buildTransport(*cfg)
	agentAdapters := agents.NewRegistry()
	pipeline := &delivery.Pipeline{
		Deduplicator:  dd,
		NotifyLog:     notifyLog,
		Transport:     transport,
		Classifier:    llmClient,
		Extractor:     llmClient,
		AgentAdapters: agentAdapters,
	}

	loop := watcherloop.New(registry, hookTracker, dd, tmux.New(), agentAdapters, llmClient, pipeline, cfg.TickInterval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop.Start(ctx)

	var httpServer *http.Server
	if cfg.StatusServer.Enabled {
		srv := statusserver.New(loop)
		httpServer = &http.Server{Addr: cfg.StatusServer.Addr, Handler: srv.Handler()}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("status server stopped", "error", err)
			}
		}()
		slog.Info("status server listening", "addr", cfg.StatusServer.Addr)
	}

	slog.Info("watcher daemon started", "state_dir", cfg.StateDir, "pid", os.Getpid())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	slog.Info("shutdown signal received, draining")
	cancel()
	loop.Stop()
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}
}

// buildTransport prefers a native Slack transport when fully configured,
// falling back to the generic bearer-token HTTP transport spec.md §6 names
// as the default.
func buildTransport(cfg config.Config) webhook.Transport {
	if slackTransport := webhook.NewSlackTransport(webhook.SlackConfig{
		Token:   cfg.Webhook.SlackToken,
		Channel: cfg.Webhook.SlackChannel,
	}); slackTransport != nil {
		return slackTransport
	}
	return webhook.NewHTTPTransport(webhook.HTTPConfig{
		URL:         cfg.Webhook.URL,
		BearerToken: cfg.Webhook.BearerToken,
	})
}

func runStop(args []string) {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	configPath := fs.String("config", getEnv("CAM_CONFIG", defaultConfigPath()), "path to cam.yaml")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "camd: loading configuration: %v\n", err)
		os.Exit(1)
	}
	paths := store.NewPaths(cfg.StateDir)

	data, err := os.ReadFile(paths.WatcherPID())
	if err != nil {
		fmt.Fprintf(os.Stderr, "camd: no running daemon found (%v)\n", err)
		os.Exit(1)
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "camd: malformed pid file %s\n", paths.WatcherPID())
		os.Exit(1)
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		fmt.Fprintf(os.Stderr, "camd: signaling pid %d: %v\n", pid, err)
		os.Exit(1)
	}
	fmt.Printf("sent SIGTERM to watcher daemon (pid %d)\n", pid)
}

// runStatus reports the agents the daemon currently tracks. It prefers the
// live status server (so a restart-in-progress registry write race cannot
// be observed) and falls back to reading the registry file directly when
// the daemon is unreachable.
func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", getEnv("CAM_CONFIG", defaultConfigPath()), "path to cam.yaml")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "camd: loading configuration: %v\n", err)
		os.Exit(1)
	}

	if cfg.StatusServer.Enabled {
		client := &http.Client{Timeout: 2 * time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/agents", cfg.StatusServer.Addr))
		if err == nil {
			defer resp.Body.Close()
			var body struct {
				Agents []map[string]any `json:"agents"`
			}
			if json.NewDecoder(resp.Body).Decode(&body) == nil {
				printAgentTable(body.Agents)
				return
			}
		}
	}

	paths := store.NewPaths(cfg.StateDir)
	records, err := store.NewRegistryStore(paths).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "camd: daemon unreachable and registry unreadable: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "(daemon unreachable, reporting from registry file)")
	rows := make([]map[string]any, len(records))
	for i, r := range records {
		rows[i] = map[string]any{"agent_id": r.AgentID, "agent_type": r.AgentType, "project_dir": r.ProjectDir, "status": string(r.Status)}
	}
	printAgentTable(rows)
}

func printAgentTable(rows []map[string]any) {
	if len(rows) == 0 {
		fmt.Println("no agents currently tracked")
		return
	}
	for _, row := range rows {
		fmt.Printf("%-20v %-14v %-10v %v\n", row["agent_id"], row["agent_type"], row["status"], row["project_dir"])
	}
}

// runLogs prints notifications.log, optionally tailing it with the same
// fsnotify-debounced Follow mechanism the `logs --follow` CLI surface
// (spec.md §6) needs.
func runLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	configPath := fs.String("config", getEnv("CAM_CONFIG", defaultConfigPath()), "path to cam.yaml")
	follow := fs.Bool("follow", false, "tail the log as new notifications are appended")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "camd: loading configuration: %v\n", err)
		os.Exit(1)
	}
	path := store.NewPaths(cfg.StateDir).NotificationsLog()

	offset := printLog(path, 0)
	if !*follow {
		return
	}

	watcher, err := jsonllog.NewWatcher(path, 200*time.Millisecond)
	if err != nil {
		fmt.Fprintf(os.Stderr, "camd: watching %s: %v\n", path, err)
		os.Exit(1)
	}
	defer watcher.Close()

	changed := make(chan struct{}, 1)
	go watcher.Follow(changed)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-changed:
			offset = printLog(path, offset)
		case <-sigCh:
			return
		}
	}
}

// printLog prints every complete line appended to path since offset and
// returns the new offset.
func printLog(path string, offset int64) int64 {
	f, err := os.Open(path)
	if err != nil {
		return offset
	}
	defer f.Close()
	if _, err := f.Seek(offset, 0); err != nil {
		return offset
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var read int64
	for scanner.Scan() {
		fmt.Println(scanner.Text())
		read += int64(len(scanner.Bytes())) + 1
	}
	return offset + read
}

// runCheck forces a single-agent wait check (spec.md §6): it captures the
// agent's current pane and runs it through the Extractor directly, outside
// the dedup/delivery stages, grounded on original_source's
// `cam summary` one-shot state inspection.
func runCheck(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "camd: check requires an agent id")
		os.Exit(1)
	}
	agentID := args[0]
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", getEnv("CAM_CONFIG", defaultConfigPath()), "path to cam.yaml")
	fs.Parse(args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "camd: loading configuration: %v\n", err)
		os.Exit(1)
	}
	paths := store.NewPaths(cfg.StateDir)
	records, err := store.NewRegistryStore(paths).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "camd: reading registry: %v\n", err)
		os.Exit(1)
	}
	var rec model.AgentRecord
	found := false
	for _, r := range records {
		if r.AgentID == agentID {
			rec = r
			found = true
			break
		}
	}
	if !found {
		fmt.Fprintf(os.Stderr, "camd: agent %s not found\n", agentID)
		os.Exit(1)
	}

	mux := tmux.New()
	ctx := context.Background()
	snapshot, err := mux.CapturePane(ctx, rec.TmuxSession, watcherloop.CaptureLines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "camd: capturing pane: %v\n", err)
		os.Exit(1)
	}

	llmClient, err := llmclient.New(llmclient.Config{
		BaseURL:           cfg.LLM.URL,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		MaxTokens:         cfg.LLM.MaxTokens,
		ClassifierTimeout: cfg.ClassifierTimeoutDuration(),
		ExtractorTimeout:  cfg.ExtractorTimeoutDuration(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "camd: building LLM client: %v\n", err)
		os.Exit(1)
	}

	adapter := agents.NewRegistry().Get(rec.AgentType)
	result := extractor.Extract(ctx, llmClient, llmClient, snapshot, adapter.PromptGlyph)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
