package catalog

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cbg-gallery/portal/internal/domain"
	"github.com/cbg-gallery/portal/internal/square"
)

const meterName = "github.com/cbg-gallery/portal/internal/catalog"

// WriterDeps bundles the collaborators required to construct a Writer.
type WriterDeps struct {
	Store      ArtifactStore
	SKU        SKUGenerator
	Currency   string
	LocationID string
	// ResolveReportingOnUpdate re-resolves the artist reporting category on updates as well as creates.
	ResolveReportingOnUpdate bool
	Clock                    func() time.Time
	IDGenerator              func() string
	Logger                   func(ctx context.Context, event string, fields map[string]any)
}

// Writer creates and updates catalog items one record at a time.
type Writer struct {
	store           ArtifactStore
	resolver        *Resolver
	sku             SKUGenerator
	currency        string
	locationID      string
	reportingUpdate bool
	clock           func() time.Time
	newID           func() string
	logger          func(context.Context, string, map[string]any)
	outcomes        metric.Int64Counter
}

// NewWriter validates deps and returns a Writer.
func NewWriter(deps WriterDeps) (*Writer, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("%w: artifact store is required", ErrConfiguration)
	}
	if strings.TrimSpace(deps.LocationID) == "" {
		return nil, fmt.Errorf("%w: location id is required", ErrConfiguration)
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrConfiguration)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	skuGen := deps.SKU
	if skuGen.Clock == nil {
		skuGen.Clock = clock
	}

	outcomes, err := otel.Meter(meterName).Int64Counter(
		"portal.sync.records",
		metric.WithDescription("Catalog records written, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog writer: create counter: %w", err)
	}

	return &Writer{
		store:           deps.Store,
		resolver:        NewResolver(deps.Store, logger),
		sku:             skuGen,
		currency:        currency,
		locationID:      strings.TrimSpace(deps.LocationID),
		reportingUpdate: deps.ResolveReportingOnUpdate,
		clock:           clock,
		newID:           idGen,
		logger:          logger,
		outcomes:        outcomes,
	}, nil
}

// Authorizer rejects records the caller may not write. A nil Authorizer allows everything.
type Authorizer func(domain.ArtworkRecord) error

// WriteBatch processes records sequentially against one SyncSession and returns one result per
// record in input order. A failing record never stops its siblings; once ctx is done the
// remaining records are reported as failed and the completed results are kept.
func (w *Writer) WriteBatch(ctx context.Context, records []domain.ArtworkRecord, opts BatchOptions, authorize Authorizer) []domain.BatchResult {
	session := NewSyncSession(opts.Attempt)
	results := make([]domain.BatchResult, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			results = append(results, failedResult(rec, err))
			w.record(ctx, "cancelled")
			continue
		}
		if authorize != nil {
			if err := authorize(rec); err != nil {
				results = append(results, failedResult(rec, err))
				w.record(ctx, "rejected")
				continue
			}
		}
		res, err := w.Write(ctx, session, rec)
		if err != nil {
			w.logger(ctx, "catalog.write.failed", map[string]any{
				"localId":        res.LocalID,
				"providerItemId": rec.ProviderItemID,
				"operation":      res.Operation,
				"error":          err.Error(),
			})
		}
		results = append(results, res)
	}
	return results
}

// Write runs the pipeline for one record: validate, resolve categories, build the object graph,
// upsert it, and on creates set the initial stock count. The returned result is always populated;
// err carries the typed failure behind an unsuccessful result.
func (w *Writer) Write(ctx context.Context, session *SyncSession, rec domain.ArtworkRecord) (domain.BatchResult, error) {
	op := domain.OperationUpdate
	if rec.IsCreate() {
		op = domain.OperationCreate
	}

	rec, err := w.validate(rec)
	if err != nil {
		res := failedResult(rec, err)
		res.Operation = op
		w.record(ctx, "invalid")
		return res, err
	}

	if op == domain.OperationCreate && strings.TrimSpace(rec.SKU) == "" {
		rec.SKU = w.sku.Generate(rec.ArtistName, "")
	}

	cats := w.resolveCategories(ctx, session, rec, op)
	in := graphInput{
		Record:      rec,
		Categories:  cats,
		Description: EncodeDescription(rec),
		Currency:    w.currency,
	}

	var (
		graph square.CatalogObject
		key   string
	)
	if op == domain.OperationCreate {
		graph = buildCreateGraph(in)
		key = createItemKey(rec.ID, session.Attempt)
	} else {
		graph = buildUpdateGraph(in)
		key = updateItemKey(rec.ProviderItemID, rec.ProviderItemVersion, session.Attempt)
	}

	res := domain.BatchResult{
		LocalID:             rec.ID,
		ProviderItemID:      rec.ProviderItemID,
		ProviderVariationID: rec.ProviderVariationID,
		SKU:                 rec.SKU,
		Category:            cats.DisplayName,
		Operation:           op,
	}

	upserted, err := w.store.UpsertObject(ctx, key, graph)
	if err != nil {
		res.Error = resultMessage(err)
		w.record(ctx, "failed")
		return res, mapProviderError(err)
	}

	res.Success = true
	res.ProviderItemID = upserted.Object.ID
	res.ProviderVariationID = variationIDFrom(upserted, rec)

	if op == domain.OperationCreate && rec.Quantity > 0 {
		res.InventoryWarning = w.adjustInventory(ctx, session, res.ProviderVariationID, rec.Quantity)
	}
	w.record(ctx, op)
	return res, nil
}

// validate normalises rec and rejects what the provider would refuse. Creates without a local id
// get a generated one so their idempotency key is stable for this call.
func (w *Writer) validate(rec domain.ArtworkRecord) (domain.ArtworkRecord, error) {
	rec.ID = strings.TrimSpace(rec.ID)
	rec.ProviderItemID = strings.TrimSpace(rec.ProviderItemID)
	rec.ProviderVariationID = strings.TrimSpace(rec.ProviderVariationID)
	rec.Title = strings.TrimSpace(rec.Title)
	rec.ArtistName = strings.TrimSpace(rec.ArtistName)
	rec.Type = strings.TrimSpace(rec.Type)
	rec.SKU = strings.TrimSpace(rec.SKU)

	if rec.Title == "" {
		return rec, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if rec.Price != nil {
		switch p := *rec.Price; {
		case math.IsNaN(p) || math.IsInf(p, 0):
			return rec, fmt.Errorf("%w: price must be a finite number", ErrValidation)
		case p < 0:
			return rec, fmt.Errorf("%w: price must not be negative", ErrValidation)
		case p > MaxPrice:
			return rec, fmt.Errorf("%w: price must not exceed %.0f", ErrValidation, float64(MaxPrice))
		}
	}
	if rec.Quantity < 0 {
		return rec, fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}

	if rec.IsCreate() {
		if rec.ArtistName == "" {
			return rec, fmt.Errorf("%w: artist name is required", ErrValidation)
		}
		if rec.ID == "" {
			rec.ID = w.newID()
		}
		return rec, nil
	}

	if rec.ID == "" {
		rec.ID = rec.ProviderItemID
	}
	if rec.ProviderItemVersion <= 0 {
		return rec, fmt.Errorf("%w: item %s", ErrMissingVersion, rec.ProviderItemID)
	}
	if rec.ProviderVariationID != "" && rec.Price != nil {
		if rec.ProviderVariationVersion <= 0 {
			return rec, fmt.Errorf("%w: variation %s", ErrMissingVersion, rec.ProviderVariationID)
		}
		// an upsert replaces the whole variation, sku included
		if rec.SKU == "" {
			return rec, fmt.Errorf("%w: sku is required when changing the price of %s", ErrValidation, rec.ProviderItemID)
		}
	}
	return rec, nil
}

// resolveCategories links the display category always and the reporting category on creates, or
// on updates when configured to. Either may come back empty.
func (w *Writer) resolveCategories(ctx context.Context, session *SyncSession, rec domain.ArtworkRecord, op string) categoryIDs {
	cats := categoryIDs{DisplayName: DisplayCategoryName(rec.ArtistName, rec.Type)}
	cats.Display = w.resolver.ResolveOrCreate(ctx, session.Display(), cats.DisplayName, session.Attempt)
	if op == domain.OperationCreate || w.reportingUpdate {
		cats.Reporting = w.resolver.ResolveOrCreate(ctx, session.Reporting(), rec.ArtistName, session.Attempt)
	}
	return cats
}

// adjustInventory sets the absolute stock count of a new variation. Failures become a warning on
// the result and never fail the create.
func (w *Writer) adjustInventory(ctx context.Context, session *SyncSession, variationID string, quantity int) string {
	if variationID == "" {
		w.logger(ctx, "catalog.inventory.skipped", map[string]any{"reason": "variation id missing"})
		return "inventory not set: provider returned no variation id"
	}
	err := w.store.SetPhysicalCount(ctx, countKey(variationID, quantity, session.Attempt), square.PhysicalCount{
		VariationID: variationID,
		LocationID:  w.locationID,
		Quantity:    quantity,
		OccurredAt:  w.clock().UTC(),
	})
	if err != nil {
		w.logger(ctx, "catalog.inventory.failed", map[string]any{
			"variationId": variationID,
			"quantity":    quantity,
			"error":       err.Error(),
		})
		return "inventory not set: " + resultMessage(err)
	}
	return ""
}

func (w *Writer) record(ctx context.Context, outcome string) {
	w.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// variationIDFrom finds the provider id of the record's variation in an upsert response.
func variationIDFrom(res square.UpsertResult, rec domain.ArtworkRecord) string {
	if id := res.IDMappings[variationTempID(rec.ID)]; id != "" {
		return id
	}
	if res.Object.ItemData != nil && len(res.Object.ItemData.Variations) > 0 {
		return res.Object.ItemData.Variations[0].ID
	}
	return rec.ProviderVariationID
}

func failedResult(rec domain.ArtworkRecord, err error) domain.BatchResult {
	op := domain.OperationUpdate
	if rec.IsCreate() {
		op = domain.OperationCreate
	}
	return domain.BatchResult{
		LocalID:             rec.ID,
		ProviderItemID:      rec.ProviderItemID,
		ProviderVariationID: rec.ProviderVariationID,
		SKU:                 rec.SKU,
		Operation:           op,
		Error:               resultMessage(err),
	}
}

// BatchSummary counts the outcomes of a batch.
type BatchSummary struct {
	Succeeded int
	Failed    int
}

// Summarize tallies results.
func Summarize(results []domain.BatchResult) BatchSummary {
	var s BatchSummary
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// Err returns ErrPartialFailure when the batch mixed successes and failures.
func (s BatchSummary) Err() error {
	if s.Failed > 0 && s.Succeeded > 0 {
		return fmt.Errorf("%w: %d of %d records failed", ErrPartialFailure, s.Failed, s.Failed+s.Succeeded)
	}
	return nil
}
