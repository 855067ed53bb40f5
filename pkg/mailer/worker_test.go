package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/waveai-auth/pkg/mailer/templates"
)

type captureSender struct {
	to, subject, text, html string
	err                     error
}

func (s *captureSender) Send(_ context.Context, to, subject, text, html string) error {
	s.to, s.subject, s.text, s.html = to, subject, text, html
	return s.err
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestWorker_RendersTemplate(t *testing.T) {
	s := &captureSender{}
	w := &Worker{Sender: s}

	data := templates.ToMap(templates.NewEmailData("WaveAI", "Ana", "", "organizer"))
	err := w.Handle(context.Background(), mustJSON(t, EmailJob{To: "ana@x.com", Template: templates.Welcome, Data: data}))
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", s.to)
	assert.Equal(t, "Welcome to WaveAI", s.subject)
	assert.Contains(t, s.text, "ana@x.com")
	assert.Contains(t, s.text, "organizer")
	assert.Contains(t, s.html, "<h2>")
}

func TestWorker_RawMessage(t *testing.T) {
	s := &captureSender{}
	w := &Worker{Sender: s}

	err := w.Handle(context.Background(), mustJSON(t, EmailJob{To: "a@x.com", Subject: "Hi", Text: "plain"}))
	require.NoError(t, err)
	assert.Equal(t, "Hi", s.subject)
	assert.Equal(t, "plain", s.text)
}

func TestWorker_BadJobsAreNotRetried(t *testing.T) {
	w := &Worker{Sender: &captureSender{}}
	ctx := context.Background()

	for name, body := range map[string][]byte{
		"not json":         []byte("{"),
		"no recipient":     mustJSON(t, EmailJob{Template: templates.Welcome}),
		"unknown template": mustJSON(t, EmailJob{To: "a@x.com", Template: "universal"}),
		"empty message":    mustJSON(t, EmailJob{To: "a@x.com"}),
	} {
		err := w.Handle(ctx, body)
		assert.ErrorIs(t, err, ErrBadJob, name)
	}
}

func TestWorker_SendFailureIsRetryable(t *testing.T) {
	w := &Worker{Sender: &captureSender{err: errors.New("mailgun 503")}}
	err := w.Handle(context.Background(), mustJSON(t, EmailJob{To: "a@x.com", Subject: "s", Text: "t"}))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBadJob))
}
