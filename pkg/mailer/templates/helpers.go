package templates

import (
	"time"
)

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithProvider(p string) Option   { return func(d *EmailData) { d.Provider = p } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04 MST")
	}
}

// NewEmailData fills the common fields and applies opts.
func NewEmailData(appName, name, email, role string, opts ...Option) EmailData {
	d := EmailData{
		Name:    name,
		Email:   email,
		Role:    role,
		AppName: appName,
	}
	for _, o := range opts {
		o(&d)
	}
	return d
}
