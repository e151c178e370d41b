// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea front end over the conversation engine.
//
// The model never mutates conversations directly; it submits work to the
// engine (session, uploader, voice channel) and repaints on store events.
package chat

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/solacechat/solace-tui/internal/backend"
	"github.com/solacechat/solace-tui/internal/config"
	"github.com/solacechat/solace-tui/internal/model"
	"github.com/solacechat/solace-tui/internal/store"
	"github.com/solacechat/solace-tui/internal/ui/styles"
	"github.com/solacechat/solace-tui/internal/upload"
	"github.com/solacechat/solace-tui/internal/voice"
)

func hasDarkBackground() bool {
	return styles.HasDarkBackground()
}

// program is the running Bubble Tea program, used by engine callbacks to
// inject messages from their own goroutines.
var (
	program   *tea.Program
	programMu sync.RWMutex
)

// SetProgram registers the running program for callback delivery.
func SetProgram(p *tea.Program) {
	programMu.Lock()
	defer programMu.Unlock()
	program = p
}

func send(msg tea.Msg) {
	programMu.RLock()
	p := program
	programMu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the top-level Bubble Tea model.
type Model struct {
	store    *store.Store
	session  *backend.Session
	uploader *upload.Uploader
	voice    *voice.Channel
	cfg      *config.Config

	events       <-chan store.Event
	eventsCancel context.CancelFunc

	input    textarea.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer

	activeID     string
	attachment   *model.FileAttachment
	uploading    bool
	uploadPct    int
	voiceActive  bool
	status       string
	streamCancel context.CancelFunc

	width  int
	height int
	ready  bool
}

// New creates the chat model and its starting conversation.
func New(st *store.Store, sess *backend.Session, up *upload.Uploader, vc *voice.Channel, cfg *config.Config) Model {
	input := textarea.New()
	input.Placeholder = "Message Solace..."
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.Focus()

	eventsCtx, eventsCancel := context.WithCancel(context.Background())
	events, _ := st.Subscribe(eventsCtx)

	conv := st.Create()

	m := Model{
		store:        st,
		session:      sess,
		uploader:     up,
		voice:        vc,
		cfg:          cfg,
		events:       events,
		eventsCancel: eventsCancel,
		input:        input,
		activeID:     conv.ID,
		status:       "ready",
	}

	if cfg.UI.RenderMarkdown {
		style := "light"
		if hasDarkBackground() {
			style = "dark"
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			m.renderer = renderer
		}
	}

	if vc != nil {
		vc.OnTranscript(func(text string) {
			send(TranscriptMsg{Text: text})
		})
	}

	return m
}

// Init starts the store event pump and cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenStore(), textarea.Blink)
}

// =============================================================================
// COMMANDS
// =============================================================================

// listenStore blocks on the next store event.
func (m Model) listenStore() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return StoreEventMsg(ev)
	}
}

// startStream runs one streaming exchange to completion.
func (m *Model) startStream(ctx context.Context, conversationID, message, docID string) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		err := sess.Initiate(ctx, conversationID, message, docID)
		return StreamDoneMsg{ConversationID: conversationID, Err: err}
	}
}

// startUpload transfers the selected file in the background.
func (m *Model) startUpload(path string) tea.Cmd {
	up := m.uploader
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return UploadDoneMsg{Filename: path, Err: err}
		}
		defer f.Close()

		name := filepath.Base(path)
		var size int64
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}

		result, err := up.Upload(context.Background(), upload.File{
			Name:   name,
			Reader: f,
			Size:   size,
		}, func(percent int) {
			send(UploadProgressMsg{Filename: name, Percent: percent})
		})
		return UploadDoneMsg{Filename: name, Result: result, Err: err}
	}
}

// startRecord streams a raw capture file out over the voice channel.
func (m *Model) startRecord(path string) tea.Cmd {
	vc := m.voice
	return func() tea.Msg {
		err := vc.Record(context.Background(), voice.FileRecorder{Path: path})
		return RecordDoneMsg{Err: err}
	}
}

// toggleVoice flips the voice channel state.
func (m *Model) toggleVoice() tea.Cmd {
	vc := m.voice
	active := m.voiceActive
	return func() tea.Msg {
		if active {
			vc.Deactivate()
			return VoiceStateMsg{Active: false}
		}
		if err := vc.Activate(context.Background()); err != nil {
			return VoiceStateMsg{Active: false, Err: err}
		}
		return VoiceStateMsg{Active: true}
	}
}

// activeConversation resolves a read-safe copy of the current
// conversation, or nil. The view must never touch live message pointers;
// the session goroutine mutates those under the store lock.
func (m *Model) activeConversation() *model.ConversationSnapshot {
	return m.store.Snapshot(m.activeID)
}
