package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/domain"
	"example.com/backstage/services/procurement/internal/messaging"
	"example.com/backstage/services/procurement/internal/models"
	"example.com/backstage/services/procurement/internal/tracing"
)

// DeliveryNoteIndexer pushes delivery notes into the search index
type DeliveryNoteIndexer interface {
	IndexDeliveryNote(ctx context.Context, note *domain.DeliveryNote) error
}

// VendorCatalog exposes the vendor rows deliveries are checked against
type VendorCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	ListActive(ctx context.Context) ([]models.Vendor, error)
}

// PurchaseOrderCatalog exposes the purchase orders deliveries are recorded against
type PurchaseOrderCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.PurchaseOrder, error)
}

// DeliveryNoteItemInput describes one line of an incoming delivery note
type DeliveryNoteItemInput struct {
	PurchaseOrderItemID uuid.UUID
	ItemID              uuid.UUID
	QuantityOrdered     int
	QuantityDelivered   int
	Condition           string
	Notes               string
}

// CreateDeliveryNoteCommand carries everything needed to record a delivery
type CreateDeliveryNoteCommand struct {
	Number          string
	PurchaseOrderID uuid.UUID
	VendorID        uuid.UUID
	ReceivedBy      string
	DeliveryDate    time.Time
	Notes           string
	Items           []DeliveryNoteItemInput
}

// UpdateDeliveryNoteItemCommand replaces one item's recorded state
type UpdateDeliveryNoteItemCommand struct {
	QuantityOrdered   int
	QuantityDelivered int
	Condition         string
	Notes             string
}

// DeliveryStats summarizes the delivery note population
type DeliveryStats struct {
	DraftCount     int64 `json:"draft_count"`
	ConfirmedCount int64 `json:"confirmed_count"`
}

// DeliveryService handles delivery note business logic
type DeliveryService struct {
	noteRepo  domain.DeliveryNoteRepository
	vendors   VendorCatalog
	orders    PurchaseOrderCatalog
	publisher messaging.ServiceBusClient
	indexer   DeliveryNoteIndexer
	cache     *cache.RedisCache
	tracer    tracing.Tracer
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(
	noteRepo domain.DeliveryNoteRepository,
	vendors VendorCatalog,
	orders PurchaseOrderCatalog,
	publisher messaging.ServiceBusClient,
	indexer DeliveryNoteIndexer,
	cache *cache.RedisCache,
	tracer tracing.Tracer,
) *DeliveryService {
	return &DeliveryService{
		noteRepo:  noteRepo,
		vendors:   vendors,
		orders:    orders,
		publisher: publisher,
		indexer:   indexer,
		cache:     cache,
		tracer:    tracer,
	}
}

// CreateDeliveryNote records a new delivery in DRAFT status
func (s *DeliveryService) CreateDeliveryNote(ctx context.Context, cmd CreateDeliveryNoteCommand) (*domain.DeliveryNote, error) {
	txn := s.tracer.StartTransaction("create-delivery-note")
	defer s.tracer.EndTransaction(txn)

	exists, err := s.noteRepo.ExistsByNumber(ctx, cmd.Number)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to check delivery note number")
	}
	if exists {
		return nil, domain.ErrAlreadyExists
	}

	order, err := s.lookupOrder(ctx, cmd)
	if err != nil {
		return nil, err
	}

	orderLines := make(map[uuid.UUID]struct{}, len(order.Items))
	for _, line := range order.Items {
		orderLines[line.ID] = struct{}{}
	}

	noteID := uuid.New()
	items := make([]domain.DeliveryNoteItem, 0, len(cmd.Items))
	for _, input := range cmd.Items {
		if _, ok := orderLines[input.PurchaseOrderItemID]; !ok {
			return nil, domain.NewBusinessRuleViolationError("delivery_against_order",
				"delivery note item does not match a purchase order line")
		}
		item, err := buildItem(noteID, uuid.New(), input.PurchaseOrderItemID, input.ItemID,
			input.QuantityOrdered, input.QuantityDelivered, input.Condition, input.Notes)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	note, err := domain.CreateDeliveryNote(noteID, cmd.Number, cmd.PurchaseOrderID,
		cmd.VendorID, cmd.ReceivedBy, cmd.DeliveryDate, cmd.Notes, items)
	if err != nil {
		return nil, err
	}

	span := s.tracer.StartSpan("save-delivery-note", txn)
	err = s.noteRepo.Save(ctx, note)
	span.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	log.Info().
		Str("delivery_note_id", note.ID().String()).
		Str("delivery_note_number", note.Number()).
		Int("item_count", len(items)).
		Msg("Delivery note created")

	s.publishEvent(ctx, domain.NewEvent(note.ID(), "DeliveryNote", domain.DeliveryNoteCreated,
		domain.DeliveryNoteCreatedEvent{
			ID:              note.ID().String(),
			Number:          note.Number(),
			PurchaseOrderID: note.PurchaseOrderID().String(),
			VendorID:        note.VendorID().String(),
			ReceivedBy:      note.ReceivedBy(),
			DeliveryDate:    note.DeliveryDate(),
			ItemCount:       len(items),
			TotalDelivered:  note.TotalQuantityDelivered(),
		}))
	s.indexNote(ctx, note)

	return note, nil
}

// UpdateItem replaces one item on a draft delivery note
func (s *DeliveryService) UpdateItem(ctx context.Context, noteID, itemID uuid.UUID, cmd UpdateDeliveryNoteItemCommand) (*domain.DeliveryNote, error) {
	txn := s.tracer.StartTransaction("update-delivery-note-item")
	defer s.tracer.EndTransaction(txn)

	note, err := s.noteRepo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}

	existing, found := note.FindItemByID(itemID)
	if !found {
		return nil, domain.ErrNotFound
	}

	replacement, err := buildItem(noteID, itemID, existing.PurchaseOrderItemID(), existing.ItemID(),
		cmd.QuantityOrdered, cmd.QuantityDelivered, cmd.Condition, cmd.Notes)
	if err != nil {
		return nil, err
	}

	if err := note.UpdateItem(replacement); err != nil {
		return nil, err
	}

	if err := s.noteRepo.Update(ctx, note); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	log.Info().
		Str("delivery_note_id", noteID.String()).
		Str("item_id", itemID.String()).
		Msg("Delivery note item updated")

	s.invalidate(ctx, note)
	s.indexNote(ctx, note)

	return note, nil
}

// ConfirmDeliveryNote performs the one-way DRAFT to CONFIRMED transition
func (s *DeliveryService) ConfirmDeliveryNote(ctx context.Context, id uuid.UUID) (*domain.DeliveryNote, error) {
	txn := s.tracer.StartTransaction("confirm-delivery-note")
	defer s.tracer.EndTransaction(txn)

	note, err := s.noteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := note.Confirm(); err != nil {
		return nil, err
	}

	if err := s.noteRepo.Update(ctx, note); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	log.Info().
		Str("delivery_note_id", note.ID().String()).
		Str("delivery_note_number", note.Number()).
		Bool("has_issues", note.HasAnyIssues()).
		Msg("Delivery note confirmed")

	s.publishEvent(ctx, domain.NewEvent(note.ID(), "DeliveryNote", domain.DeliveryNoteConfirmed,
		domain.DeliveryNoteConfirmedEvent{
			ID:                note.ID().String(),
			Number:            note.Number(),
			VendorID:          note.VendorID().String(),
			TotalDelivered:    note.TotalQuantityDelivered(),
			EffectiveQuantity: note.TotalEffectiveQuantity(),
			HasIssues:         note.HasAnyIssues(),
		}))
	s.invalidate(ctx, note)
	s.indexNote(ctx, note)

	return note, nil
}

// GetDeliveryNote gets a delivery note by id
func (s *DeliveryService) GetDeliveryNote(ctx context.Context, id uuid.UUID) (*domain.DeliveryNote, error) {
	return s.noteRepo.FindByID(ctx, id)
}

// GetDeliveryNoteByNumber gets a delivery note by its number. The
// number to id mapping is cached; note state always comes from the
// database.
func (s *DeliveryService) GetDeliveryNoteByNumber(ctx context.Context, number string) (*domain.DeliveryNote, error) {
	var cachedID string
	cacheKey := cache.GetDeliveryNoteNumberCacheKey(number)
	if err := s.cache.Get(ctx, cacheKey, &cachedID); err == nil {
		if id, err := uuid.Parse(cachedID); err == nil {
			return s.noteRepo.FindByID(ctx, id)
		}
	}

	note, err := s.noteRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, note.ID().String(), 10*time.Minute); err != nil {
		log.Debug().Err(err).Str("delivery_note_number", number).Msg("failed to cache number mapping")
	}
	return note, nil
}

// ListByStatus lists delivery notes in the given status
func (s *DeliveryService) ListByStatus(ctx context.Context, status domain.DeliveryNoteStatus) ([]*domain.DeliveryNote, error) {
	return s.noteRepo.FindByStatus(ctx, status)
}

// ListByVendor lists a vendor's delivery notes
func (s *DeliveryService) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]*domain.DeliveryNote, error) {
	return s.noteRepo.FindByVendorID(ctx, vendorID)
}

// ListByDateRange lists delivery notes delivered within [from, to]
func (s *DeliveryService) ListByDateRange(ctx context.Context, from, to time.Time) ([]*domain.DeliveryNote, error) {
	return s.noteRepo.FindByDeliveryDateRange(ctx, from, to)
}

// ListWithIssues lists delivery notes flagged with condition issues
func (s *DeliveryService) ListWithIssues(ctx context.Context) ([]*domain.DeliveryNote, error) {
	return s.noteRepo.FindWithIssues(ctx)
}

// GetStats reports counts per lifecycle status
func (s *DeliveryService) GetStats(ctx context.Context) (*DeliveryStats, error) {
	drafts, err := s.noteRepo.CountByStatus(ctx, domain.StatusDraft())
	if err != nil {
		return nil, err
	}
	confirmed, err := s.noteRepo.CountByStatus(ctx, domain.StatusConfirmed())
	if err != nil {
		return nil, err
	}
	return &DeliveryStats{DraftCount: drafts, ConfirmedCount: confirmed}, nil
}

// VendorDeliveredTotal sums the delivered quantity across a vendor's notes
func (s *DeliveryService) VendorDeliveredTotal(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	return s.noteRepo.SumDeliveredByVendor(ctx, vendorID)
}

// DeleteDeliveryNote removes a delivery note
func (s *DeliveryService) DeleteDeliveryNote(ctx context.Context, id uuid.UUID) error {
	if err := s.noteRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cache.GetDeliveryNoteCacheKey(id)); err != nil {
		log.Debug().Err(err).Str("delivery_note_id", id.String()).Msg("failed to invalidate cache")
	}
	return nil
}

// ListVendors lists the active vendors deliveries can be recorded for
func (s *DeliveryService) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	return s.vendors.ListActive(ctx)
}

// ListVendorPurchaseOrders lists the purchase orders placed with a vendor
func (s *DeliveryService) ListVendorPurchaseOrders(ctx context.Context, vendorID uuid.UUID) ([]models.PurchaseOrder, error) {
	return s.orders.ListByVendor(ctx, vendorID)
}

// lookupOrder checks that the delivery references an active vendor and
// one of that vendor's purchase orders.
func (s *DeliveryService) lookupOrder(ctx context.Context, cmd CreateDeliveryNoteCommand) (*models.PurchaseOrder, error) {
	var vendor models.Vendor
	vendorKey := cache.GetVendorCacheKey(cmd.VendorID)
	if err := s.cache.Get(ctx, vendorKey, &vendor); err != nil {
		fetched, err := s.vendors.GetByID(ctx, cmd.VendorID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewBusinessRuleViolationError("delivery_vendor_exists",
					"delivery references an unknown vendor")
			}
			return nil, errors.Wrap(err, "failed to look up vendor")
		}
		vendor = *fetched
		if err := s.cache.Set(ctx, vendorKey, vendor, 5*time.Minute); err != nil {
			log.Debug().Err(err).Str("vendor_id", cmd.VendorID.String()).Msg("failed to cache vendor")
		}
	}
	if !vendor.IsActive {
		return nil, domain.NewBusinessRuleViolationError("delivery_vendor_active",
			"delivery references an inactive vendor")
	}

	order, err := s.orders.GetByID(ctx, cmd.PurchaseOrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewBusinessRuleViolationError("delivery_against_order",
				"delivery references an unknown purchase order")
		}
		return nil, errors.Wrap(err, "failed to look up purchase order")
	}
	if order.VendorID != cmd.VendorID {
		return nil, domain.NewBusinessRuleViolationError("delivery_against_order",
			"purchase order was not placed with the delivery vendor")
	}

	return order, nil
}

func buildItem(noteID, itemID, purchaseOrderItemID, catalogItemID uuid.UUID,
	ordered, delivered int, condition, notes string) (domain.DeliveryNoteItem, error) {
	cond := domain.ConditionGood()
	if condition != "" {
		parsed, err := domain.NewItemCondition(condition)
		if err != nil {
			return domain.DeliveryNoteItem{}, err
		}
		cond = parsed
	}
	return domain.NewDeliveryNoteItem(itemID, noteID, purchaseOrderItemID, catalogItemID,
		ordered, delivered, cond, notes)
}

func (s *DeliveryService) publishEvent(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.SendMessage(ctx, event); err != nil {
		// Events are best effort; the system of record already committed
		log.Error().Err(err).
			Str("event_type", event.Type).
			Str("aggregate_id", event.AggregateID).
			Msg("Failed to publish event")
	}
}

func (s *DeliveryService) indexNote(ctx context.Context, note *domain.DeliveryNote) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexDeliveryNote(ctx, note); err != nil {
		log.Error().Err(err).
			Str("delivery_note_id", note.ID().String()).
			Msg("Failed to index delivery note")
	}
}

func (s *DeliveryService) invalidate(ctx context.Context, note *domain.DeliveryNote) {
	if err := s.cache.Delete(ctx, cache.GetDeliveryNoteNumberCacheKey(note.Number())); err != nil {
		log.Debug().Err(err).Msg("failed to invalidate cache")
	}
}
