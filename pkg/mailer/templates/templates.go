package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"reflect"
	"strings"
	texttpl "text/template"
	"sync"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

const (
	Welcome           = "welcome"
	LoginNotification = "login_notification"
)

var names = []string{Welcome, LoginNotification}

// EmailData is the payload every auth email template reads.
type EmailData struct {
	Name     string `json:"Name"`
	Email    string `json:"Email"`
	Role     string `json:"Role"`
	Provider string `json:"Provider"`
	AppName  string `json:"AppName"`

	IP        string    `json:"IP"`
	UserAgent string    `json:"UserAgent"`
	Time      string    `json:"Time"`
	TimeAt    time.Time `json:"TimeAt"`
}

// ToMap flattens d into the map form carried by EmailJob.Data.
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// orDefault backs {{ .Value | default "Fallback" }}.
func orDefault(fallback, value any) any {
	if s, ok := value.(string); ok {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	}
	if rv := reflect.ValueOf(value); !rv.IsValid() || rv.IsZero() {
		return fallback
	}
	return value
}

var funcs = map[string]any{
	"upper":   strings.ToUpper,
	"default": orDefault,
}

// set is the parsed subject, text and html variants of one template.
type set struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmpl.Template
}

var loadAll = sync.OnceValues(func() (map[string]set, error) {
	out := make(map[string]set, len(names))
	for _, name := range names {
		subject, err := texttpl.New(name + ".subject.tmpl").Funcs(funcs).ParseFS(FS, name+".subject.tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", name, err)
		}
		text, err := texttpl.New(name + ".text.tmpl").Funcs(funcs).ParseFS(FS, name+".text.tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s text: %w", name, err)
		}
		html, err := htmpl.New(name + ".html.tmpl").Funcs(funcs).ParseFS(FS, name+".html.tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s html: %w", name, err)
		}
		out[name] = set{subject: subject, text: text, html: html}
	}
	return out, nil
})

// Known reports whether name has a template set.
func Known(name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Render produces the subject, plain text and html bodies of template name.
func Render(name string, data any) (subject, text, html string, err error) {
	all, err := loadAll()
	if err != nil {
		return "", "", "", err
	}
	s, ok := all[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := s.subject.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s subject: %w", name, err)
	}
	subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := s.text.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s text: %w", name, err)
	}
	text = buf.String()

	buf.Reset()
	if err := s.html.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s html: %w", name, err)
	}
	return subject, text, buf.String(), nil
}
