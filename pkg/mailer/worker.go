package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/waveai-auth/pkg/mailer/templates"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// ErrBadJob marks a message that can never be delivered and must not be requeued.
var ErrBadJob = errors.New("bad email job")

// Worker turns queued EmailJobs into sent mail.
type Worker struct {
	Sender      Sender
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

// Prepare fills the recipient and renders the job's template if it names one.
func Prepare(job *EmailJob) (subject, text, html string, err error) {
	if job.To == "" {
		return "", "", "", fmt.Errorf("%w: missing recipient", ErrBadJob)
	}
	job.EnsureRecipient()
	if job.Template == "" {
		if job.Subject == "" || (job.Text == "" && job.HTML == "") {
			return "", "", "", fmt.Errorf("%w: empty message", ErrBadJob)
		}
		return job.Subject, job.Text, job.HTML, nil
	}
	if !templates.Known(job.Template) {
		return "", "", "", fmt.Errorf("%w: unknown template %q", ErrBadJob, job.Template)
	}
	subject, text, html, err = templates.Render(job.Template, job.Data)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %w", ErrBadJob, err)
	}
	if job.Subject != "" {
		subject = job.Subject
	}
	return subject, text, html, nil
}

// Handle processes one queue message body. A returned error wrapping ErrBadJob
// means the message should be dropped; any other error is worth a retry.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %w", ErrBadJob, err)
	}
	subject, text, html, err := Prepare(&job)
	if err != nil {
		return err
	}

	timeout := w.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if w.Logger != nil {
		w.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
	}
	return nil
}
