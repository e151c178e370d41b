// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/solacechat/solace-tui/internal/model"
	"github.com/solacechat/solace-tui/internal/ui/styles"
	"github.com/solacechat/solace-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full screen.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(m.titleBar())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(styles.InputBox.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}

// titleBar renders the conversation title line.
func (m Model) titleBar() string {
	title := "New Conversation"
	if conv := m.activeConversation(); conv != nil {
		title = conv.Title
	}
	title = util.TruncateWidth(title, m.width-12)
	if m.voiceActive {
		return styles.Title.Render(title) + " " + styles.VoiceActive.Render("● voice")
	}
	return styles.Title.Render(title)
}

// statusBar renders the bottom status line with upload progress.
func (m Model) statusBar() string {
	status := m.status
	if m.uploading && m.attachment != nil {
		status = fmt.Sprintf("uploading %s %d%%", m.attachment.Filename, m.uploadPct)
	} else if m.attachment != nil {
		chip := styles.AttachmentChip.Render("📎 " + m.attachment.Filename)
		return styles.StatusBar.Width(m.width).Render(status) + " " + chip
	}
	return styles.StatusBar.Width(m.width).Render(status)
}

// refreshViewport re-renders the active conversation into the viewport and
// pins the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	conv := m.activeConversation()
	if conv == nil {
		m.viewport.SetContent("")
		return
	}

	var b strings.Builder
	for _, msg := range conv.Messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// renderMessage renders one message snapshot with its role label.
func (m *Model) renderMessage(msg model.MessageSnapshot) string {
	var label string
	switch msg.Role {
	case model.RoleUser:
		label = styles.UserLabel.Render(msg.Role.DisplayName())
	default:
		label = styles.AssistantLabel.Render(msg.Role.DisplayName())
	}

	content := msg.Content
	switch {
	case msg.IsStreaming && content == "":
		content = styles.StreamingIndicator.Render("...")
	case msg.IsStreaming:
		content += styles.StreamingIndicator.Render(" ▌")
	case strings.HasPrefix(content, "Error: "):
		content = styles.ErrorText.Render(content)
	case msg.Role == model.RoleAssistant && m.renderer != nil:
		if rendered, err := m.renderer.Render(content); err == nil {
			content = strings.TrimRight(rendered, "\n")
		}
	}

	if msg.Attachment != nil {
		chip := styles.AttachmentChip.Render("📎 " + msg.Attachment.Filename)
		content = chip + "\n" + content
	}

	body := styles.MessageBody.Width(m.width - 4).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, label, body, "")
}
