package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/prtrack/internal/keyword"
	"github.com/hyperjump/prtrack/internal/models"
	"github.com/hyperjump/prtrack/internal/storage"
)

// DefaultNameBoost weights requisition-name matches in ranked searches.
const DefaultNameBoost = 0.5

// Engine runs item searches.
type Engine struct {
	storage      storage.Storage
	keywordIndex keyword.ItemIndex
	nameBoost    float64
	defaultLimit int
	maxLimit     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithNameBoost sets the weight of requisition-name matches in ranked searches.
func WithNameBoost(boost float64) Option {
	return func(e *Engine) { e.nameBoost = boost }
}

// WithLimits sets the result limit used when a query has none and the largest limit
// a query may ask for.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(e *Engine) {
		if defaultLimit > 0 {
			e.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			e.maxLimit = maxLimit
		}
	}
}

// NewEngine creates a search engine. keywordIndex may be nil, in which case every search
// is a substring search.
func NewEngine(store storage.Storage, keywordIndex keyword.ItemIndex, opts ...Option) *Engine {
	e := &Engine{storage: store, keywordIndex: keywordIndex, nameBoost: DefaultNameBoost}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search validates query and returns matching items. A plain search is a case-insensitive
// substring match over descriptions. A ranked search also queries the keyword index and
// lists its hits first.
func (e *Engine) Search(ctx context.Context, query *models.ItemSearchQuery) (*models.ItemSearchResponse, error) {
	startTime := time.Now()
	if query.Limit <= 0 && e.defaultLimit > 0 {
		query.Limit = e.defaultLimit
	}
	if e.maxLimit > 0 && query.Limit > e.maxLimit {
		query.Limit = e.maxLimit
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	ranked := query.RankedSearch && e.keywordIndex != nil

	var (
		keywordResults []*keyword.KeywordResult
		substringHits  []*models.ItemHit
		errChan        = make(chan error, 2)
		wg             sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		hits, err := e.storage.SearchItems(ctx, query.Query, query.Limit)
		if err != nil {
			errChan <- fmt.Errorf("substring search failed: %w", err)
			return
		}
		substringHits = hits
	}()

	if ranked {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := e.keywordIndex.Search(ctx, query.Query, query.Limit, &keyword.SearchOptions{
				NameBoost:    e.nameBoost,
				FuzzyEnabled: query.FuzzyEnabled,
			})
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	hits := substringHits
	if ranked {
		ids := make([]string, len(keywordResults))
		for i, r := range keywordResults {
			ids[i] = r.ID
		}
		rankedHits, err := e.storage.GetItemHits(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load ranked items: %w", err)
		}
		hits = Merge(rankedHits, NormalizeKeywordScores(keywordResults), substringHits, query.Limit)
	}
	if hits == nil {
		hits = []*models.ItemHit{}
	}
	return &models.ItemSearchResponse{
		Query:     query.Query,
		Hits:      hits,
		Total:     len(hits),
		Ranked:    ranked,
		QueryTime: time.Since(startTime).Milliseconds(),
	}, nil
}
