// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles centralizes the lipgloss styling for the chat UI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette colors. Adaptive pairs keep the UI readable on light and dark
// terminals.
var (
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	ColorUser    = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6E7781", Dark: "#8B949E"}
	ColorSurface = lipgloss.AdaptiveColor{Light: "#F6F8FA", Dark: "#21262D"}
)

// Message rendering styles.
var (
	UserLabel = lipgloss.NewStyle().
			Foreground(ColorUser).
			Bold(true)

	AssistantLabel = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	MessageBody = lipgloss.NewStyle().
			PaddingLeft(2)

	StreamingIndicator = lipgloss.NewStyle().
				Foreground(ColorMuted).
				Italic(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(ColorError)

	Timestamp = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Chrome styles.
var (
	Title = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Padding(0, 1)

	StatusBar = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Background(ColorSurface).
			Padding(0, 1)

	InputBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)

	AttachmentChip = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Background(ColorSurface).
			Padding(0, 1)

	VoiceActive = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)
)

// HasDarkBackground reports the terminal background, used to pick the
// glamour style.
func HasDarkBackground() bool {
	return termenv.HasDarkBackground()
}
