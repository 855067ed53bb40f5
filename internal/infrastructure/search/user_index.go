package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// UserIndex mirrors public user profiles into Elasticsearch for lookup by name or email.
type UserIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewUserIndex(es *elasticsearch.Client, index string) *UserIndex {
	return &UserIndex{es: es, index: index}
}

func userDoc(u *entity.User) map[string]any {
	return map[string]any{
		"id":                u.ID,
		"email":             u.Email,
		"name":              u.Name,
		"avatar":            u.Avatar,
		"role":              string(u.Role),
		"organization_name": u.OrganizationName,
		"level":             u.Level,
		"auth_provider":     string(u.AuthProvider),
		"is_active":         u.IsActive,
		"created_at":        u.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (x *UserIndex) Index(ctx context.Context, u *entity.User) error {
	if x.es == nil || x.index == "" {
		return errors.New("search index not configured")
	}
	b, err := json.Marshal(userDoc(u))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: u.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index response: %s", res.Status())
	}
	return nil
}

// Search runs a multi_match over email and name, email weighted higher.
func (x *UserIndex) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if x.es == nil || x.index == "" {
		return []map[string]any{}, nil
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name", "organization_name"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search response: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
