package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"warehouse-assistant/internal/common/logger"
)

// ErrSearchQueryFailed marks Elasticsearch failures.
var ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")

const defaultCatalogSize = 1000

// SearchCatalog serves catalog snapshots from an Elasticsearch index and
// adds fuzzy product search in front of an inner collaborator. Stock
// figures always come from the inner collaborator.
type SearchCatalog struct {
	inner  Collaborator
	client *elasticsearch.Client
	index  string
	size   int
	log    logger.Logger
}

func NewSearchCatalog(inner Collaborator, client *elasticsearch.Client, index string, log logger.Logger) *SearchCatalog {
	return &SearchCatalog{
		inner:  inner,
		client: client,
		index:  index,
		size:   defaultCatalogSize,
		log:    log.WithFields(map[string]interface{}{"index": index}),
	}
}

type searchHit struct {
	Score  float64      `json:"_score"`
	Source CatalogEntry `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// CatalogSnapshot lists the indexed catalog. When the index cannot be read
// the inner collaborator answers instead.
func (s *SearchCatalog) CatalogSnapshot(ctx context.Context) ([]CatalogEntry, error) {
	hits, err := s.search(ctx, buildCatalogQuery(), s.size)
	if err != nil {
		s.log.Warn("catalog search failed, using inner catalog", map[string]interface{}{"error": err.Error()})
		return s.inner.CatalogSnapshot(ctx)
	}

	out := make([]CatalogEntry, 0, len(hits))
	for _, h := range hits {
		if h.Source.SKU == "" {
			continue
		}
		out = append(out, h.Source)
	}
	return out, nil
}

// LookupProduct asks the inner collaborator first. When it does not know
// the key, the best fuzzy search hit is looked up by SKU instead.
func (s *SearchCatalog) LookupProduct(ctx context.Context, nameOrSKU string) (*ProductRecord, error) {
	rec, err := s.inner.LookupProduct(ctx, nameOrSKU)
	if err != nil || rec != nil {
		return rec, err
	}

	hits, err := s.search(ctx, buildProductSearchQuery(nameOrSKU), 1)
	if err != nil {
		s.log.Warn("product search failed", map[string]interface{}{"key": nameOrSKU, "error": err.Error()})
		return nil, nil
	}
	if len(hits) == 0 || hits[0].Source.SKU == "" {
		return nil, nil
	}
	return s.inner.LookupProduct(ctx, hits[0].Source.SKU)
}

func (s *SearchCatalog) LowStockItems(ctx context.Context) ([]ProductRecord, error) {
	return s.inner.LowStockItems(ctx)
}

func (s *SearchCatalog) SummaryMetrics(ctx context.Context) (*SummaryMetrics, error) {
	return s.inner.SummaryMetrics(ctx)
}

func (s *SearchCatalog) ApplyStockUpdate(ctx context.Context, sku string, newQuantity int) error {
	return s.inner.ApplyStockUpdate(ctx, sku, newQuantity)
}

// Reindex copies the inner catalog into the index and returns how many
// entries were written.
func (s *SearchCatalog) Reindex(ctx context.Context) (int, error) {
	entries, err := s.inner.CatalogSnapshot(ctx)
	if err != nil {
		return 0, err
	}

	for i, e := range entries {
		body, err := json.Marshal(e)
		if err != nil {
			return i, fmt.Errorf("%w: encode %s: %v", ErrSearchQueryFailed, e.SKU, err)
		}
		req := esapi.IndexRequest{
			Index:      s.index,
			DocumentID: e.SKU,
			Body:       bytes.NewReader(body),
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return i, fmt.Errorf("%w: index %s: %v", ErrSearchQueryFailed, e.SKU, err)
		}
		res.Body.Close()
		if res.IsError() {
			return i, fmt.Errorf("%w: index %s: %s", ErrSearchQueryFailed, e.SKU, res.Status())
		}
	}

	s.log.Info("catalog reindexed", map[string]interface{}{"entries": len(entries)})
	return len(entries), nil
}

func (s *SearchCatalog) search(ctx context.Context, query map[string]interface{}, size int) ([]searchHit, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrSearchQueryFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchQueryFailed, err)
	}
	return parsed.Hits.Hits, nil
}

func buildCatalogQuery() map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":  []interface{}{map[string]interface{}{"sku": "asc"}},
	}
}

func buildProductSearchQuery(text string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    []string{"name^3", "sku"},
				"fuzziness": "AUTO",
				"type":      "best_fields",
			},
		},
	}
}
