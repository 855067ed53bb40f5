package helpers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESOptions configures the search client. Username and Password enable basic auth.
type ESOptions struct {
	Addrs      []string
	Username   string
	Password   string
	Timeout    time.Duration
	MaxRetries int
}

// NewESClient builds a client that retries on gateway errors and pings the
// cluster once so misconfiguration shows up at startup.
func NewESClient(ctx context.Context, o ESOptions) (*elasticsearch.Client, error) {
	if len(o.Addrs) == 0 {
		return nil, fmt.Errorf("elasticsearch: no addresses")
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     o.Addrs,
		Username:      o.Username,
		Password:      o.Password,
		MaxRetries:    o.MaxRetries,
		RetryOnStatus: []int{502, 503, 504},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: timeout,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		},
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := es.Ping(es.Ping.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return es, nil
}
