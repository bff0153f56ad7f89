package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog"
)

// Client wraps Elasticsearch access for one term index. It is the only
// component allowed to write index documents.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   zerolog.Logger
}

func NewClient(host, index string, log zerolog.Logger) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{host},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Client{es: es, index: index, log: log}, nil
}

// EnsureIndex creates the index with its mapping if it does not exist.
// A creation race with another process is treated as success.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", c.index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	createRes, err := c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", c.index, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		body, _ := io.ReadAll(createRes.Body)
		if bytes.Contains(body, []byte("resource_already_exists_exception")) {
			c.log.Warn().Str("index", c.index).Msg("index already exists, continuing")
			return nil
		}
		return fmt.Errorf("create index %s: %s", c.index, string(body))
	}

	c.log.Info().Str("index", c.index).Msg("created index")
	return nil
}

// BulkUpsert indexes documents keyed by code. Per-document failures are
// collected into the report in submission order; only a failure of the
// bulk request itself is returned as an error.
func (c *Client) BulkUpsert(ctx context.Context, docs []Document) (*BulkReport, error) {
	if len(docs) == 0 {
		return &BulkReport{}, nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		meta, err := json.Marshal(map[string]map[string]string{
			"index": {"_index": c.index, "_id": doc.Code},
		})
		if err != nil {
			return nil, fmt.Errorf("marshal bulk action: %w", err)
		}
		src, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal document %s: %w", doc.Code, err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(src)
		buf.WriteByte('\n')
	}

	res, err := c.es.Bulk(bytes.NewReader(buf.Bytes()), c.es.Bulk.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("bulk index: %s", string(body))
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}

	report := &BulkReport{Items: make([]ItemResult, 0, len(parsed.Items))}
	for i, item := range parsed.Items {
		r := ItemResult{Status: item.Index.Status}
		if i < len(docs) {
			r.Code = docs[i].Code
		}
		if item.Index.Error.Reason != "" {
			r.Error = item.Index.Error.Reason
			report.Failed++
			c.log.Warn().Str("code", r.Code).Str("reason", r.Error).Msg("bulk item failed")
		} else {
			report.Succeeded++
		}
		report.Items = append(report.Items, r)
	}
	return report, nil
}

// Search runs a weighted multi-field fuzzy match and returns scored
// hits in the order Elasticsearch ranked them.
func (c *Client) Search(ctx context.Context, q Query) ([]Hit, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q.Text,
				"fields":    q.Fields,
				"fuzziness": "AUTO",
			},
		},
		"size": q.Size,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search %s: %s", c.index, string(raw))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return parsed.Hits.Hits, nil
}

// Refresh makes recent writes visible to search. Used after ingestion
// so a following query sees the new documents.
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithIndex(c.index),
		c.es.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", c.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("refresh %s: status %d", c.index, res.StatusCode)
	}
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

type searchResponse struct {
	Hits struct {
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}
