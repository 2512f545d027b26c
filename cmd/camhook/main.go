// Command camhook is the short-lived CLI process an agent's own lifecycle
// hooks invoke (spec.md §6's "hook callback path"): it decodes a JSON
// payload from its argument or stdin, resolves the agent, and calls the
// same Delivery Pipeline the watcher daemon's polling loop uses. Claude
// Code and Codex each register this binary under their own hook
// configuration, passing --agent-type so camhook knows which payload
// shape to expect (spec.md's supplemented "codex_notify hook shape"
// feature).
//
// Because many of these processes can be in flight concurrently (hooks
// fire from every agent's own CLI independently of the watcher daemon),
// this binary never holds the coordination.FileLock the daemon does —
// the JSON state files it touches go through internal/store's
// atomic-replace primitives instead, and the notification log is appended.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cam-watcher/cam/internal/agents"
	"github.com/cam-watcher/cam/internal/config"
	"github.com/cam-watcher/cam/internal/dedup"
	"github.com/cam-watcher/cam/internal/delivery"
	"github.com/cam-watcher/cam/internal/hookhandler"
	"github.com/cam-watcher/cam/internal/llmclient"
	"github.com/cam-watcher/cam/internal/store"
	"github.com/cam-watcher/cam/internal/tmux"
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
	agentType := flag.String("agent-type", "claude-code", "agent CLI that invoked this hook (claude-code, codex, opencode, generic)")
	hookEventName := flag.String("event", "", "hook event name; Claude Code payloads also carry this in hook_event_name")
	payloadArg := flag.String("payload", "", "JSON payload; if empty, read from stdin")
	configPath := flag.String("config", getEnv("CAM_CONFIG", defaultConfigPath()), "path to cam.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "camhook: loading configuration: %v\n", err)
		os.Exit(1)
	}
	paths := store.NewPaths(cfg.StateDir)

	var body io.Reader
	if *payloadArg != "" {
		body = strings.NewReader(*payloadArg)
	} else {
		body = os.Stdin
	}

	registry := store.NewRegistryStore(paths)
	hookTracker := store.NewHookTrackerStore(paths)
	dd, err := dedup.New(store.NewDedupStateStore(paths))
	if err != nil {
		fmt.Fprintf(os.Stderr, "camhook: loading dedup state: %v\n", err)
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
		fmt.Fprintf(os.Stderr, "camhook: building LLM client: %v\n", err)
		os.Exit(1)
	}

	pipeline := &delivery.Pipeline{
		Deduplicator:  dd,
		NotifyLog:     store.NewNotificationLog(paths),
		Transport:     buildTransport(*cfg),
		Classifier:    llmClient,
		Extractor:     llmClient,
		AgentAdapters: agents.NewRegistry(),
		Now:           time.Now,
	}

	handler := hookhandler.New(registry, hookTracker, pipeline, tmux.New())

	result, err := handler.Handle(context.Background(), *agentType, *hookEventName, body)
	if err != nil {
		slog.Error("hook handling failed", "error", err)
		os.Exit(1)
	}
	if result.Outcome == delivery.Skipped {
		slog.Debug("hook event did not result in a delivery", "reason", result.Reason)
	}
}

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
