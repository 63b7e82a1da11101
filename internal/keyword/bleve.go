package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/prtrack/internal/models"
)

// BleveIndex implements ItemIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func itemMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer lowercases and tokenizes without stemming so part numbers like
	// "M6" and "DN50" match exactly.
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	docMapping.AddFieldMappingsAt("pr_name", textFieldMapping)
	idFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("pr_id", idFieldMapping)
	im.AddDocumentMapping("item", docMapping)
	im.DefaultType = "item"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates an
// in-memory index. If you change the mapping, remove the index directory and run reindex.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(itemMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, itemMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexRequisition indexes every item of pr in one batch.
func (b *BleveIndex) IndexRequisition(ctx context.Context, pr *models.PurchaseRequisition) error {
	batch := b.index.NewBatch()
	for _, it := range pr.Items {
		doc := itemDocument{Description: it.Description, PRName: pr.Name, PRID: pr.ID}
		if err := batch.Index(it.ID, doc); err != nil {
			return fmt.Errorf("failed to index item %s: %w", it.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// DeleteRequisition removes all items whose pr_id is prID.
func (b *BleveIndex) DeleteRequisition(ctx context.Context, prID string) error {
	count, err := b.index.DocCount()
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	q := bleve.NewTermQuery(prID)
	q.SetField("pr_id")
	req := bleve.NewSearchRequest(q)
	req.Size = int(count)
	results, err := b.index.Search(req)
	if err != nil {
		return fmt.Errorf("Bleve search failed: %w", err)
	}
	batch := b.index.NewBatch()
	for _, hit := range results.Hits {
		batch.Delete(hit.ID)
	}
	return b.index.Batch(batch)
}

// Search runs a match query over item descriptions, plus requisition names when
// opts.NameBoost > 0, and returns up to limit results ordered by score.
// When opts.FuzzyEnabled is true, fuzzy matching is used for typo tolerance.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	nameBoost := 0.0
	fuzzyEnabled := false
	fuzziness := 1
	if opts != nil {
		nameBoost = opts.NameBoost
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	fieldQuery := func(field string, boost float64) blevequery.Query {
		if fuzzyEnabled {
			return buildFuzzyQuery(query, fuzziness, field, boost)
		}
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}

	var q blevequery.Query = fieldQuery("description", 1.0)
	if nameBoost > 0 {
		q = bleve.NewDisjunctionQuery(q, fieldQuery("pr_name", nameBoost))
	}

	search := bleve.NewSearchRequest(q)
	search.Size = limit
	search.Fields = []string{"pr_id"}
	results, err := b.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		prID, _ := hit.Fields["pr_id"].(string)
		out[i] = &KeywordResult{ID: hit.ID, PRID: prID, Score: hit.Score}
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query,
// restricted to field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string, boost float64) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		fq.SetBoost(boost)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DocCount returns the total number of items in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
