package esindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog/log"
)

// DefaultIndexName is the product index used when none is configured
const DefaultIndexName = "catalog_products"

// Document is the product shape mirrored into Elasticsearch
type Document struct {
	ID           int64    `json:"id"`
	MerchantID   int64    `json:"shop_id"`
	MerchantName string   `json:"shop"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	EAN          string   `json:"ean,omitempty"`
	MPN          string   `json:"mpn,omitempty"`
	Brand        string   `json:"brand,omitempty"`
	Category     string   `json:"category,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Availability bool     `json:"availability"`
	ImageURL     string   `json:"image_url,omitempty"`
	SearchText   string   `json:"search_text,omitempty"`
}

// Indexer mirrors the product catalog into an external Elasticsearch
// index. Strictly best-effort: search never depends on it and callers
// are expected to log and move on when indexing fails.
type Indexer struct {
	client    *elasticsearch.Client
	indexName string
}

const indexMapping = `{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0,
		"analysis": {
			"analyzer": {
				"folded": {
					"type": "custom",
					"tokenizer": "standard",
					"filter": ["lowercase", "asciifolding"]
				}
			}
		}
	},
	"mappings": {
		"properties": {
			"id": {"type": "long"},
			"shop_id": {"type": "long"},
			"shop": {"type": "keyword"},
			"title": {"type": "text", "analyzer": "folded", "fields": {"keyword": {"type": "keyword"}}},
			"description": {"type": "text", "analyzer": "folded"},
			"ean": {"type": "keyword"},
			"mpn": {"type": "keyword"},
			"brand": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
			"category": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
			"price": {"type": "float"},
			"availability": {"type": "boolean"},
			"image_url": {"type": "keyword", "index": false},
			"search_text": {"type": "text", "analyzer": "folded"}
		}
	}
}`

// New connects to Elasticsearch and ensures the product index exists
func New(addresses []string, username, password, indexName string) (*Indexer, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	idx := &Indexer{client: client, indexName: indexName}
	if err := idx.ensureIndex(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (x *Indexer) ensureIndex() error {
	res, err := x.client.Indices.Exists([]string{x.indexName})
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = x.client.Indices.Create(
		x.indexName,
		x.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index: unexpected status %s", res.Status())
	}
	log.Info().
		Str("component", "esindex").
		Str("index", x.indexName).
		Msg("Created product index")
	return nil
}

// BulkIndex writes docs in one bulk request. Partial failures are
// logged and counted, not returned per-document.
func (x *Indexer) BulkIndex(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`,
			x.indexName, strconv.FormatInt(doc.ID, 10))
		buf.WriteString(meta)
		buf.WriteByte('\n')
		line, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal document %d: %w", doc.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	res, err := x.client.Bulk(bytes.NewReader(buf.Bytes()),
		x.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk index: unexpected status %s", res.Status())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				Status int `json:"status"`
				Error  struct {
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"index"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		failed := 0
		for _, item := range bulkResp.Items {
			if item.Index.Status >= 300 {
				failed++
			}
		}
		log.Warn().
			Str("component", "esindex").
			Int("failed", failed).
			Int("total", len(docs)).
			Msg("Bulk index finished with failures")
	}
	return nil
}
