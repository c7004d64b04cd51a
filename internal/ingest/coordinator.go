package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/agorino/catalog-service/internal/database"
	"github.com/agorino/catalog-service/internal/esindex"
	"github.com/agorino/catalog-service/internal/feed"
	"github.com/agorino/catalog-service/internal/fetch"
	"github.com/agorino/catalog-service/internal/metrics"
)

// SyncResult summarizes one merchant feed sync
type SyncResult struct {
	MerchantID   int64   `json:"shop_id"`
	MerchantName string  `json:"shop"`
	RunID        string  `json:"run_id"`
	Status       string  `json:"status"`
	Source       string  `json:"source,omitempty"` // network or cache
	Fetched      int     `json:"fetched"`
	Parsed       int     `json:"parsed"`
	Inserted     int     `json:"inserted"`
	Updated      int     `json:"updated"`
	Skipped      int     `json:"skipped"`
	DurationMs   int64   `json:"duration_ms"`
	Error        *string `json:"error,omitempty"`
}

// Coordinator runs merchant feed syncs: fetch, normalize, persist.
// Overlapping syncs for the same merchant are rejected, and a semaphore
// caps cross-merchant concurrency.
type Coordinator struct {
	fetcher   *fetch.Fetcher
	indexer   *esindex.Indexer // nil disables mirroring
	sem       *semaphore.Weighted
	batchSize int

	mu       sync.Mutex
	inFlight map[int64]bool
}

// NewCoordinator creates a Coordinator. indexer may be nil.
func NewCoordinator(fetcher *fetch.Fetcher, indexer *esindex.Indexer, maxConcurrent int64, batchSize int) *Coordinator {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Coordinator{
		fetcher:   fetcher,
		indexer:   indexer,
		sem:       semaphore.NewWeighted(maxConcurrent),
		batchSize: batchSize,
		inFlight:  map[int64]bool{},
	}
}

// tryLock reserves the merchant for this run; false means a sync is
// already running.
func (c *Coordinator) tryLock(merchantID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[merchantID] {
		return false
	}
	c.inFlight[merchantID] = true
	return true
}

func (c *Coordinator) unlock(merchantID int64) {
	c.mu.Lock()
	delete(c.inFlight, merchantID)
	c.mu.Unlock()
}

// SyncMerchant runs one full sync for the given merchant
func (c *Coordinator) SyncMerchant(ctx context.Context, merchantID int64) SyncResult {
	start := time.Now()
	result := SyncResult{
		MerchantID: merchantID,
		RunID:      uuid.New().String(),
		Status:     "skipped",
	}

	merchant, err := database.GetMerchant(ctx, merchantID)
	if err != nil {
		return c.failResult(ctx, result, start, fmt.Errorf("load merchant: %w", err), false)
	}
	result.MerchantName = merchant.Name

	if !c.tryLock(merchantID) {
		msg := "sync already running"
		result.Error = &msg
		metrics.ObserveSync(time.Since(start), "skipped", 0)
		return result
	}
	defer c.unlock(merchantID)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return c.failResult(ctx, result, start, fmt.Errorf("acquire sync slot: %w", err), false)
	}
	defer c.sem.Release(1)

	log.Info().
		Str("component", "ingest").
		Str("run_id", result.RunID).
		Int64("shop_id", merchantID).
		Str("shop", merchant.Name).
		Msg("Starting feed sync")

	if err := database.MarkSyncRunning(ctx, merchantID); err != nil {
		return c.failResult(ctx, result, start, fmt.Errorf("mark running: %w", err), false)
	}

	body, source, err := c.fetcher.Get(ctx, merchant.FeedURL)
	if err != nil {
		return c.failResult(ctx, result, start, fmt.Errorf("fetch feed: %w", err), true)
	}
	result.Source = string(source)
	result.Fetched = len(body)
	metrics.IncFetch(string(source))

	parsed := feed.Parse(body)
	result.Parsed = len(parsed.Records)
	result.Skipped = parsed.Dropped
	for _, warning := range parsed.Warnings {
		log.Warn().
			Str("component", "ingest").
			Str("run_id", result.RunID).
			Str("shop", merchant.Name).
			Msg(warning)
	}
	if len(parsed.Records) == 0 {
		// An empty parse never replaces an existing catalog
		return c.failResult(ctx, result, start, fmt.Errorf("feed produced no valid records"), true)
	}

	inserted, updated, err := c.persist(ctx, merchantID, parsed.Records)
	result.Inserted = inserted
	result.Updated = updated
	if err != nil {
		return c.failResult(ctx, result, start, fmt.Errorf("persist: %w", err), true)
	}

	if err := database.RecordSyncResult(ctx, merchantID, database.SyncStatusOK, nil, time.Now()); err != nil {
		log.Error().Err(err).Msg("Failed to record sync result")
	}
	result.Status = database.SyncStatusOK
	result.DurationMs = time.Since(start).Milliseconds()
	metrics.ObserveSync(time.Since(start), "ok", inserted+updated)

	c.mirror(ctx, merchant)

	log.Info().
		Str("component", "ingest").
		Str("run_id", result.RunID).
		Str("shop", merchant.Name).
		Str("source", result.Source).
		Int("parsed", result.Parsed).
		Int("inserted", inserted).
		Int("updated", updated).
		Int("skipped", result.Skipped).
		Int64("duration_ms", result.DurationMs).
		Msg("Feed sync finished")
	return result
}

// persist writes records in bounded batches, resolving brand and
// category ids through per-run caches.
func (c *Coordinator) persist(ctx context.Context, merchantID int64, records []feed.Record) (int, int, error) {
	brandCache := map[string]*int64{}
	categoryCache := map[string]*int64{}

	totalInserted, totalUpdated := 0, 0
	for batchStart := 0; batchStart < len(records); batchStart += c.batchSize {
		end := batchStart + c.batchSize
		if end > len(records) {
			end = len(records)
		}

		batch := make([]database.ProductUpsert, 0, end-batchStart)
		for _, rec := range records[batchStart:end] {
			brandID, err := c.resolveBrand(ctx, brandCache, rec.Brand)
			if err != nil {
				return totalInserted, totalUpdated, err
			}
			categoryID, err := c.resolveCategory(ctx, categoryCache, rec.Category, rec.CategoryPath)
			if err != nil {
				return totalInserted, totalUpdated, err
			}
			batch = append(batch, toUpsert(rec, brandID, categoryID))
		}

		inserted, updated, err := database.UpsertProductBatch(ctx, merchantID, batch)
		if err != nil {
			return totalInserted, totalUpdated, err
		}
		totalInserted += inserted
		totalUpdated += updated
	}
	return totalInserted, totalUpdated, nil
}

func (c *Coordinator) resolveBrand(ctx context.Context, cache map[string]*int64, name string) (*int64, error) {
	key := normalizeKey(name)
	if key == "" {
		return nil, nil
	}
	if id, ok := cache[key]; ok {
		return id, nil
	}
	id, err := database.FindOrCreateBrand(ctx, name)
	if err != nil {
		return nil, err
	}
	cache[key] = id
	return id, nil
}

func (c *Coordinator) resolveCategory(ctx context.Context, cache map[string]*int64, leaf string, path []string) (*int64, error) {
	key := normalizeKey(leaf) + "|" + normalizeKey(joinPath(path))
	if normalizeKey(leaf) == "" {
		return nil, nil
	}
	if id, ok := cache[key]; ok {
		return id, nil
	}
	id, err := database.FindOrCreateCategory(ctx, leaf, path)
	if err != nil {
		return nil, err
	}
	cache[key] = id
	return id, nil
}

// mirror pushes the synced products into the external index.
// Best-effort: failures are logged and never affect the sync status.
func (c *Coordinator) mirror(ctx context.Context, merchant *database.Merchant) {
	if c.indexer == nil {
		return
	}

	listings, err := database.SearchStore{}.Candidates(ctx, mirrorFilters(merchant.Name))
	if err != nil {
		log.Warn().Err(err).Str("shop", merchant.Name).Msg("Mirror read failed")
		return
	}

	docs := make([]esindex.Document, 0, len(listings))
	for i := range listings {
		docs = append(docs, toDocument(&listings[i]))
	}
	if err := c.indexer.BulkIndex(ctx, docs); err != nil {
		log.Warn().Err(err).Str("shop", merchant.Name).Msg("Mirror index failed")
	}
}

func (c *Coordinator) failResult(ctx context.Context, result SyncResult, start time.Time, err error, recordOnRow bool) SyncResult {
	msg := err.Error()
	result.Status = database.SyncStatusError
	result.Error = &msg
	result.DurationMs = time.Since(start).Milliseconds()

	log.Error().
		Str("component", "ingest").
		Str("run_id", result.RunID).
		Int64("shop_id", result.MerchantID).
		Err(err).
		Msg("Feed sync failed")

	if recordOnRow {
		if dbErr := database.RecordSyncResult(ctx, result.MerchantID, database.SyncStatusError, &msg, time.Now()); dbErr != nil {
			log.Error().Err(dbErr).Msg("Failed to record sync error")
		}
	}
	metrics.ObserveSync(time.Since(start), "error", 0)
	return result
}

// SyncAll syncs every enabled merchant, respecting the concurrency
// cap, and returns per-merchant results.
func (c *Coordinator) SyncAll(ctx context.Context) []SyncResult {
	merchants, err := database.ListEnabledMerchants(ctx)
	if err != nil {
		log.Error().
			Str("component", "ingest").
			Err(err).
			Msg("Failed to list merchants for sync")
		return nil
	}

	results := make([]SyncResult, len(merchants))
	var wg sync.WaitGroup
	for i, m := range merchants {
		wg.Add(1)
		go func(idx int, merchantID int64) {
			defer wg.Done()
			results[idx] = c.SyncMerchant(ctx, merchantID)
		}(i, m.ID)
	}
	wg.Wait()
	return results
}
