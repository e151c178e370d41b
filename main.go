// Solace TUI - a terminal client for the Solace conversation service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/solacechat/solace-tui/internal/backend"
	"github.com/solacechat/solace-tui/internal/config"
	"github.com/solacechat/solace-tui/internal/store"
	"github.com/solacechat/solace-tui/internal/tasks"
	"github.com/solacechat/solace-tui/internal/ui/chat"
	"github.com/solacechat/solace-tui/internal/upload"
	"github.com/solacechat/solace-tui/internal/voice"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath = flag.String("config", config.DefaultPath(), "config file path")
		serverURL  = flag.String("server", "", "override server URL")
		debug      = flag.Bool("debug", false, "verbose logging")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("solace-tui %s (%s)\n", Version, GitCommit)
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "solace-tui requires an interactive terminal")
		os.Exit(1)
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}

	logger, closeLog := newLogger(*configPath, *debug)
	defer closeLog()

	// Credential hot reload
	watcher, err := config.NewWatcher(*configPath, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := watcher.Start(); err != nil {
		logger.Warn("config watch unavailable", "error", err)
	}
	defer watcher.Close()

	// Engine wiring
	st := store.New(logger)
	defer st.Close()

	runner := tasks.NewRunner(logger)
	defer runner.Shutdown()

	client := backend.NewClient(cfg.Server.URL, logger).
		WithTokenProvider(watcher.Token)
	reconciler := backend.NewReconciler(client, st, runner, logger)
	sess := backend.NewSession(client, st, reconciler, logger)
	sess.OnConversationSwitch(func(oldID, newID string) {
		logger.Debug("active conversation switched", "old_id", oldID, "new_id", newID)
	})
	uploader := upload.NewUploader(client, logger)

	var vc *voice.Channel
	if cfg.Voice.Enabled {
		vc = voice.NewChannel(client, voice.NopPlayer{}, logger)
		defer vc.Deactivate()
	}

	m := chat.New(st, sess, uploader, vc, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	chat.SetProgram(p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes structured logs next to the config file so they never
// fight the TUI for the terminal.
func newLogger(configPath string, debug bool) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logPath := filepath.Join(filepath.Dir(configPath), "solace.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return logger, func() {}
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, func() { f.Close() }
}
