// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/solacechat/solace-tui/internal/model"
	"github.com/solacechat/solace-tui/internal/store"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update is the Bubble Tea message handler.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inputHeight := m.input.Height() + 2
		chromeHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight-chromeHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight - chromeHeight
		}
		m.input.SetWidth(msg.Width - 4)
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.shutdown()
			return m, tea.Quit
		case "esc":
			if m.streamCancel != nil {
				m.streamCancel()
				m.streamCancel = nil
				m.status = "response canceled"
			}
		case "enter":
			if cmd := m.submit(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case StoreEventMsg:
		m.handleStoreEvent(store.Event(msg))
		cmds = append(cmds, m.listenStore())

	case StreamDoneMsg:
		m.streamCancel = nil
		if msg.Err != nil {
			m.status = "response failed: " + msg.Err.Error()
		} else {
			m.status = "ready"
		}
		m.refreshViewport()

	case UploadProgressMsg:
		m.uploadPct = msg.Percent
		if m.attachment != nil {
			m.attachment.Status = model.UploadProcessing
		}

	case UploadDoneMsg:
		m.uploading = false
		if msg.Err != nil || msg.Result == nil || msg.Result.Status != model.UploadReady {
			// Failed upload: dismissible notice, attachment cleared, no retry
			m.attachment = nil
			m.status = fmt.Sprintf("upload of %s failed", msg.Filename)
		} else if m.attachment != nil && m.attachment.Filename == msg.Filename {
			m.attachment.Status = model.UploadReady
			m.attachment.DocID = msg.Result.DocID
			m.status = fmt.Sprintf("%s ready", msg.Filename)
		}

	case TranscriptMsg:
		m.status = "voice: " + strings.TrimSpace(m.voice.Transcript())
		m.refreshViewport()

	case RecordDoneMsg:
		if msg.Err != nil {
			m.status = "recording failed: " + msg.Err.Error()
		} else {
			m.status = "audio sent"
		}

	case VoiceStateMsg:
		if msg.Err != nil {
			m.status = "voice failed: " + msg.Err.Error()
			m.voiceActive = false
		} else {
			m.voiceActive = msg.Active
			if msg.Active {
				m.status = "voice active"
			} else {
				m.status = "voice off"
			}
		}

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

// handleStoreEvent follows renames and repaints on any change to the
// active conversation.
func (m *Model) handleStoreEvent(ev store.Event) {
	if ev.Type == store.EventConversationRenamed && ev.OldConversationID == m.activeID {
		m.activeID = ev.ConversationID
	}
	if ev.ConversationID == m.activeID {
		m.refreshViewport()
	}
}

// =============================================================================
// SUBMIT
// =============================================================================

// slash commands understood by the input line.
const (
	cmdAttach = "/attach "
	cmdRecord = "/record "
	cmdVoice  = "/voice"
	cmdNew    = "/new"
)

// submit handles the enter key: slash commands or a chat send.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}

	switch {
	case strings.HasPrefix(text, cmdAttach), text == strings.TrimSpace(cmdAttach):
		path := strings.TrimSpace(strings.TrimPrefix(text, strings.TrimSpace(cmdAttach)))
		m.input.Reset()
		return m.attach(path)
	case strings.HasPrefix(text, cmdRecord), text == strings.TrimSpace(cmdRecord):
		path := strings.TrimSpace(strings.TrimPrefix(text, strings.TrimSpace(cmdRecord)))
		m.input.Reset()
		return m.record(path)
	case text == cmdVoice:
		m.input.Reset()
		if m.voice == nil {
			m.status = "voice not available"
			return nil
		}
		return m.toggleVoice()
	case text == cmdNew:
		m.input.Reset()
		conv := m.store.Create()
		m.activeID = conv.ID
		m.attachment = nil
		m.refreshViewport()
		return nil
	}

	// Sends are gated while a response is in flight
	if m.store.ContainsStreaming(m.activeID) {
		m.status = "wait for the current response to finish"
		return nil
	}

	var docID string
	var attachment *model.FileAttachment
	if m.attachment != nil {
		if !m.attachment.IsReady() {
			m.status = "attachment still uploading"
			return nil
		}
		docID = m.attachment.DocID
		attachment = m.attachment
		m.attachment = nil
	}

	userMsg := model.NewUserMessageWithAttachment(text, attachment)
	if err := m.store.Append(m.activeID, userMsg); err != nil {
		m.status = "send failed: " + err.Error()
		return nil
	}
	m.input.Reset()
	m.status = "thinking..."

	ctx, cancel := context.WithCancel(context.Background())
	m.streamCancel = cancel
	return m.startStream(ctx, m.activeID, text, docID)
}

// attach begins a background upload for the selected file.
func (m *Model) attach(path string) tea.Cmd {
	if m.uploader == nil {
		m.status = "uploads not available"
		return nil
	}
	if path == "" {
		m.status = "usage: /attach <path>"
		return nil
	}

	name := filepath.Base(path)
	m.attachment = &model.FileAttachment{
		Filename: name,
		Status:   model.UploadPending,
	}
	m.uploading = true
	m.uploadPct = 0
	m.status = "uploading " + name
	return m.startUpload(path)
}

// record ships a raw capture file out over the active voice channel.
func (m *Model) record(path string) tea.Cmd {
	if m.voice == nil || !m.voiceActive {
		m.status = "voice not active"
		return nil
	}
	if path == "" {
		m.status = "usage: /record <path>"
		return nil
	}

	m.status = "sending audio from " + filepath.Base(path)
	return m.startRecord(path)
}

// shutdown releases engine resources on quit.
func (m *Model) shutdown() {
	if m.streamCancel != nil {
		m.streamCancel()
	}
	if m.voice != nil && m.voiceActive {
		m.voice.Deactivate()
	}
	m.eventsCancel()
}
