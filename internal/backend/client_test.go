// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfiguration(t *testing.T) {
	c := NewClient("https://solace.example.com/", nil)
	assert.False(t, c.IsConfigured(), "client without token is not configured")
	assert.Equal(t, "https://solace.example.com", c.BaseURL(), "trailing slash trimmed")

	c.WithToken("tok-1")
	assert.True(t, c.IsConfigured())
}

func TestClientTokenProvider(t *testing.T) {
	current := "tok-old"
	c := NewClient("https://solace.example.com", nil).
		WithTokenProvider(func() string { return current })

	req, err := http.NewRequest(http.MethodGet, c.BaseURL(), nil)
	require.NoError(t, err)

	c.Authorize(req)
	assert.Equal(t, "Bearer tok-old", req.Header.Get("Authorization"))

	// Rotated credentials reach requests built afterwards
	current = "tok-new"
	req2, err := http.NewRequest(http.MethodGet, c.BaseURL(), nil)
	require.NoError(t, err)
	c.Authorize(req2)
	assert.Equal(t, "Bearer tok-new", req2.Header.Get("Authorization"))
}

func TestAuthHeader(t *testing.T) {
	c := NewClient("https://solace.example.com", nil).WithToken("tok")
	h := c.AuthHeader()
	assert.Equal(t, "Bearer tok", h.Get("Authorization"))
	assert.NotEmpty(t, h.Get("User-Agent"))
}

func TestHandleErrorResponse(t *testing.T) {
	c := NewClient("https://solace.example.com", nil)

	err := c.handleErrorResponse(http.StatusBadGateway, strings.NewReader("upstream sad"))
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusBadGateway, serverErr.Status)
	assert.Equal(t, "upstream sad", serverErr.Message)

	// Empty body falls back to the status text
	err = c.handleErrorResponse(http.StatusNotFound, strings.NewReader(""))
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusText(http.StatusNotFound), serverErr.Message)
}

func TestErrorUnwrapping(t *testing.T) {
	inner := errors.New("connection refused")
	te := &TransportError{Op: "chat", Err: inner}
	assert.ErrorIs(t, te, inner)
	assert.Contains(t, te.Error(), "chat")

	pe := &ProtocolError{Line: "data: ???", Err: inner}
	assert.ErrorIs(t, pe, inner)
}
