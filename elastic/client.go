// Package elastic stores detected token launches in elasticsearch.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/launchfeed/launch-publisher/domain"
)

type Client struct {
	esClient  *elasticsearch.Client
	indexName string
}

func NewClient(esClient *elasticsearch.Client, indexName string) *Client {
	return &Client{
		esClient:  esClient,
		indexName: indexName,
	}
}

// IndexLaunch indexes one token launch under the given document id. Indexing
// the same id twice overwrites the document, so retries are safe.
func (c *Client) IndexLaunch(ctx context.Context, documentID string, launch *domain.TokenLaunch) error {
	payload, err := json.Marshal(launch)
	if err != nil {
		return fmt.Errorf("serializing token launch: %w", err)
	}

	res, err := c.esClient.Index(
		c.indexName,
		bytes.NewReader(payload),
		c.esClient.Index.WithDocumentID(documentID),
		c.esClient.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index request error: %s", res.String())
	}
	return nil
}
