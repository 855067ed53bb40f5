package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_LoginNotification(t *testing.T) {
	at := time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC)
	data := ToMap(NewEmailData("WaveAI", "Ana", "ana@x.com", "volunteer",
		WithIP("10.0.0.1"), WithUserAgent("curl"), WithProvider("google"), WithTime(at)))

	subject, text, html, err := Render(LoginNotification, data)
	require.NoError(t, err)
	assert.Equal(t, "New login to your WaveAI account", subject)
	assert.Contains(t, text, "ana@x.com")
	assert.Contains(t, text, "google")
	assert.Contains(t, text, "02 January 2026, 15:04 UTC")
	assert.Contains(t, html, "10.0.0.1")
}

func TestRender_WelcomeDefaults(t *testing.T) {
	subject, text, _, err := Render(Welcome, map[string]any{"Email": "b@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to WaveAI", subject)
	assert.Contains(t, text, "Hi there")
	assert.Contains(t, text, "volunteer")
}

func TestRender_UnknownTemplate(t *testing.T) {
	assert.False(t, Known("verify_email"))
	_, _, _, err := Render("verify_email", nil)
	assert.Error(t, err)
}
