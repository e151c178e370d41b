// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "testing"

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"ab", 1, "a"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestTruncateRunesNoEllipsis(t *testing.T) {
	if got := TruncateRunesNoEllipsis("héllo", 3); got != "hél" {
		t.Errorf("got %q", got)
	}
	if got := TruncateRunesNoEllipsis("hi", 5); got != "hi" {
		t.Errorf("got %q", got)
	}
}

func TestTruncateWidthCJK(t *testing.T) {
	// Each ideograph is 2 columns wide
	s := "日本語のテキスト"
	got := TruncateWidth(s, 9)
	if StringWidth(got) > 9 {
		t.Errorf("truncated width = %d, want <= 9 (%q)", StringWidth(got), got)
	}
	if TruncateWidth("short", 20) != "short" {
		t.Error("strings within the width must pass through")
	}
}

func TestSafeSubstring(t *testing.T) {
	s := "héllo"
	if got := SafeSubstring(s, 1, 3); got != "él" {
		t.Errorf("got %q", got)
	}
	if got := SafeSubstring(s, -1, 99); got != s {
		t.Errorf("got %q", got)
	}
	if got := SafeSubstring(s, 4, 2); got != "" {
		t.Errorf("got %q", got)
	}
}
