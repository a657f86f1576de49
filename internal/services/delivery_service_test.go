package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/domain"
	"example.com/backstage/services/procurement/internal/models"
	"example.com/backstage/services/procurement/internal/tracing"
)

// Mock repositories for testing
type MockDeliveryNoteRepository struct {
	mock.Mock
}

func (m *MockDeliveryNoteRepository) Save(ctx context.Context, note *domain.DeliveryNote) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockDeliveryNoteRepository) Update(ctx context.Context, note *domain.DeliveryNote) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockDeliveryNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryNote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeliveryNote), args.Error(1)
}

func (m *MockDeliveryNoteRepository) FindByNumber(ctx context.Context, number string) (*domain.DeliveryNote, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeliveryNote), args.Error(1)
}

func (m *MockDeliveryNoteRepository) FindByStatus(ctx context.Context, status domain.DeliveryNoteStatus) ([]*domain.DeliveryNote, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]*domain.DeliveryNote), args.Error(1)
}

func (m *MockDeliveryNoteRepository) FindByVendorID(ctx context.Context, vendorID uuid.UUID) ([]*domain.DeliveryNote, error) {
	args := m.Called(ctx, vendorID)
	return args.Get(0).([]*domain.DeliveryNote), args.Error(1)
}

func (m *MockDeliveryNoteRepository) FindByDeliveryDateRange(ctx context.Context, from, to time.Time) ([]*domain.DeliveryNote, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]*domain.DeliveryNote), args.Error(1)
}

func (m *MockDeliveryNoteRepository) FindWithIssues(ctx context.Context) ([]*domain.DeliveryNote, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*domain.DeliveryNote), args.Error(1)
}

func (m *MockDeliveryNoteRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeliveryNoteRepository) CountByStatus(ctx context.Context, status domain.DeliveryNoteStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDeliveryNoteRepository) SumDeliveredByVendor(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	args := m.Called(ctx, vendorID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDeliveryNoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock Service Bus client for testing
type MockServiceBusClient struct {
	mock.Mock
}

func (m *MockServiceBusClient) SendMessage(ctx context.Context, body interface{}) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

func (m *MockServiceBusClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Mock indexer for testing
type MockDeliveryNoteIndexer struct {
	mock.Mock
}

func (m *MockDeliveryNoteIndexer) IndexDeliveryNote(ctx context.Context, note *domain.DeliveryNote) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

// Mock catalogs for testing
type MockVendorCatalog struct {
	mock.Mock
}

func (m *MockVendorCatalog) GetByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vendor), args.Error(1)
}

func (m *MockVendorCatalog) ListActive(ctx context.Context) ([]models.Vendor, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Vendor), args.Error(1)
}

type MockPurchaseOrderCatalog struct {
	mock.Mock
}

func (m *MockPurchaseOrderCatalog) GetByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderCatalog) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.PurchaseOrder, error) {
	args := m.Called(ctx, vendorID)
	return args.Get(0).([]models.PurchaseOrder), args.Error(1)
}

func disabledTracer(t *testing.T) tracing.Tracer {
	t.Helper()
	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)
	return tracer
}

func newDeliveryService(t *testing.T, repo *MockDeliveryNoteRepository, vendors *MockVendorCatalog, orders *MockPurchaseOrderCatalog, publisher *MockServiceBusClient, indexer *MockDeliveryNoteIndexer) *DeliveryService {
	t.Helper()
	return &DeliveryService{
		noteRepo:  repo,
		vendors:   vendors,
		orders:    orders,
		publisher: publisher,
		indexer:   indexer,
		cache:     &cache.RedisCache{},
		tracer:    disabledTracer(t),
	}
}

func validCreateCommand() CreateDeliveryNoteCommand {
	return CreateDeliveryNoteCommand{
		Number:          "DN-2026-0001",
		PurchaseOrderID: uuid.New(),
		VendorID:        uuid.New(),
		ReceivedBy:      "warehouse@example.com",
		DeliveryDate:    time.Now(),
		Items: []DeliveryNoteItemInput{
			{
				PurchaseOrderItemID: uuid.New(),
				ItemID:              uuid.New(),
				QuantityOrdered:     10,
				QuantityDelivered:   10,
			},
		},
	}
}

// catalogsFor stubs the vendor and purchase order lookups to match the
// command.
func catalogsFor(cmd CreateDeliveryNoteCommand) (*MockVendorCatalog, *MockPurchaseOrderCatalog) {
	vendors := new(MockVendorCatalog)
	vendors.On("GetByID", mock.Anything, cmd.VendorID).
		Return(&models.Vendor{ID: cmd.VendorID, Name: "Acme Supplies", IsActive: true}, nil)

	lines := make([]models.PurchaseOrderItem, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		lines = append(lines, models.PurchaseOrderItem{
			ID:              item.PurchaseOrderItemID,
			PurchaseOrderID: cmd.PurchaseOrderID,
			ItemID:          item.ItemID,
			Quantity:        item.QuantityOrdered,
		})
	}
	orders := new(MockPurchaseOrderCatalog)
	orders.On("GetByID", mock.Anything, cmd.PurchaseOrderID).
		Return(&models.PurchaseOrder{ID: cmd.PurchaseOrderID, VendorID: cmd.VendorID, Items: lines}, nil)

	return vendors, orders
}

func TestCreateDeliveryNote(t *testing.T) {
	mockRepo := new(MockDeliveryNoteRepository)
	mockBus := new(MockServiceBusClient)
	mockIndexer := new(MockDeliveryNoteIndexer)

	mockRepo.On("ExistsByNumber", mock.Anything, "DN-2026-0001").Return(false, nil)
	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.DeliveryNote")).Return(nil)
	mockBus.On("SendMessage", mock.Anything, mock.AnythingOfType("domain.Event")).Return(nil)
	mockIndexer.On("IndexDeliveryNote", mock.Anything, mock.AnythingOfType("*domain.DeliveryNote")).Return(nil)

	cmd := validCreateCommand()
	vendors, orders := catalogsFor(cmd)
	service := newDeliveryService(t, mockRepo, vendors, orders, mockBus, mockIndexer)

	note, err := service.CreateDeliveryNote(context.Background(), cmd)

	require.NoError(t, err)
	require.NotNil(t, note)
	require.Equal(t, "DN-2026-0001", note.Number())
	require.True(t, note.Status().IsDraft())
	require.Len(t, note.Items(), 1)

	mockRepo.AssertExpectations(t)
	mockBus.AssertExpectations(t)
	mockIndexer.AssertExpectations(t)
}

func TestCreateDeliveryNoteRejectsDuplicateNumber(t *testing.T) {
	mockRepo := new(MockDeliveryNoteRepository)
	mockRepo.On("ExistsByNumber", mock.Anything, "DN-2026-0001").Return(true, nil)

	service := newDeliveryService(t, mockRepo, new(MockVendorCatalog), new(MockPurchaseOrderCatalog),
		new(MockServiceBusClient), new(MockDeliveryNoteIndexer))

	_, err := service.CreateDeliveryNote(context.Background(), validCreateCommand())

	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	mockRepo.AssertExpectations(t)
}

func TestCreateDeliveryNoteRequiresItems(t *testing.T) {
	mockRepo := new(MockDeliveryNoteRepository)
	mockRepo.On("ExistsByNumber", mock.Anything, mock.Anything).Return(false, nil)

	cmd := validCreateCommand()
	cmd.Items = nil
	vendors, orders := catalogsFor(cmd)
	service := newDeliveryService(t, mockRepo, vendors, orders,
		new(MockServiceBusClient), new(MockDeliveryNoteIndexer))

	_, err := service.CreateDeliveryNote(context.Background(), cmd)

	require.Error(t, err)
	require.True(t, domain.IsBusinessRuleViolationError(err))
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateDeliveryNoteRejectsForeignPurchaseOrder(t *testing.T) {
	mockRepo := new(MockDeliveryNoteRepository)
	mockRepo.On("ExistsByNumber", mock.Anything, mock.Anything).Return(false, nil)

	cmd := validCreateCommand()
	vendors := new(MockVendorCatalog)
	vendors.On("GetByID", mock.Anything, cmd.VendorID).
		Return(&models.Vendor{ID: cmd.VendorID, Name: "Acme Supplies", IsActive: true}, nil)
	orders := new(MockPurchaseOrderCatalog)
	orders.On("GetByID", mock.Anything, cmd.PurchaseOrderID).
		Return(&models.PurchaseOrder{ID: cmd.PurchaseOrderID, VendorID: uuid.New()}, nil)

	service := newDeliveryService(t, mockRepo, vendors, orders,
		new(MockServiceBusClient), new(MockDeliveryNoteIndexer))

	_, err := service.CreateDeliveryNote(context.Background(), cmd)

	require.Error(t, err)
	require.True(t, domain.IsBusinessRuleViolationError(err))
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateDeliveryNoteRejectsInactiveVendor(t *testing.T) {
	mockRepo := new(MockDeliveryNoteRepository)
	mockRepo.On("ExistsByNumber", mock.Anything, mock.Anything).Return(false, nil)

	cmd := validCreateCommand()
	vendors := new(MockVendorCatalog)
	vendors.On("GetByID", mock.Anything, cmd.VendorID).
		Return(&models.Vendor{ID: cmd.VendorID, Name: "Acme Supplies", IsActive: false}, nil)

	service := newDeliveryService(t, mockRepo, vendors, new(MockPurchaseOrderCatalog),
		new(MockServiceBusClient), new(MockDeliveryNoteIndexer))

	_, err := service.CreateDeliveryNote(context.Background(), cmd)

	require.Error(t, err)
	require.True(t, domain.IsBusinessRuleViolationError(err))
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func storedNote(t *testing.T) *domain.DeliveryNote {
	t.Helper()
	noteID := uuid.New()
	item, err := domain.NewDeliveryNoteItem(uuid.New(), noteID, uuid.New(), uuid.New(),
		10, 8, domain.ConditionGood(), "")
	require.NoError(t, err)
	note, err := domain.ReconstituteDeliveryNote(noteID, "DN-2026-0002", uuid.New(), uuid.New(),
		"warehouse@example.com", time.Now().Add(-time.Hour), domain.StatusDraft(), "",
		time.Now().Add(-time.Hour), time.Now().Add(-time.Hour), []domain.DeliveryNoteItem{item})
	require.NoError(t, err)
	return note
}

func TestConfirmDeliveryNote(t *testing.T) {
	note := storedNote(t)

	mockRepo := new(MockDeliveryNoteRepository)
	mockBus := new(MockServiceBusClient)
	mockIndexer := new(MockDeliveryNoteIndexer)

	mockRepo.On("FindByID", mock.Anything, note.ID()).Return(note, nil)
	mockRepo.On("Update", mock.Anything, note).Return(nil)
	mockBus.On("SendMessage", mock.Anything, mock.AnythingOfType("domain.Event")).Return(nil)
	mockIndexer.On("IndexDeliveryNote", mock.Anything, note).Return(nil)

	service := newDeliveryService(t, mockRepo, new(MockVendorCatalog), new(MockPurchaseOrderCatalog), mockBus, mockIndexer)

	confirmed, err := service.ConfirmDeliveryNote(context.Background(), note.ID())

	require.NoError(t, err)
	require.True(t, confirmed.Status().IsConfirmed())
	mockRepo.AssertExpectations(t)
	mockBus.AssertExpectations(t)
}

func TestConfirmDeliveryNoteTwiceFails(t *testing.T) {
	note := storedNote(t)
	require.NoError(t, note.Confirm())

	mockRepo := new(MockDeliveryNoteRepository)
	mockRepo.On("FindByID", mock.Anything, note.ID()).Return(note, nil)

	service := newDeliveryService(t, mockRepo, new(MockVendorCatalog), new(MockPurchaseOrderCatalog),
		new(MockServiceBusClient), new(MockDeliveryNoteIndexer))

	_, err := service.ConfirmDeliveryNote(context.Background(), note.ID())

	require.Error(t, err)
	require.True(t, domain.IsImmutableEntityError(err))
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateItemOnDraftNote(t *testing.T) {
	note := storedNote(t)
	itemID := note.Items()[0].ID()

	mockRepo := new(MockDeliveryNoteRepository)
	mockIndexer := new(MockDeliveryNoteIndexer)
	mockRepo.On("FindByID", mock.Anything, note.ID()).Return(note, nil)
	mockRepo.On("Update", mock.Anything, note).Return(nil)
	mockIndexer.On("IndexDeliveryNote", mock.Anything, note).Return(nil)

	service := newDeliveryService(t, mockRepo, new(MockVendorCatalog), new(MockPurchaseOrderCatalog), new(MockServiceBusClient), mockIndexer)

	updated, err := service.UpdateItem(context.Background(), note.ID(), itemID, UpdateDeliveryNoteItemCommand{
		QuantityOrdered:   10,
		QuantityDelivered: 7,
		Condition:         "DAMAGED",
		Notes:             "crate dropped in transit",
	})

	require.NoError(t, err)
	item, found := updated.FindItemByID(itemID)
	require.True(t, found)
	require.Equal(t, 7, item.QuantityDelivered())
	require.True(t, item.HasIssues())
	require.True(t, updated.HasAnyIssues())
	mockRepo.AssertExpectations(t)
}

func TestUpdateItemOnConfirmedNoteFails(t *testing.T) {
	note := storedNote(t)
	itemID := note.Items()[0].ID()
	require.NoError(t, note.Confirm())

	mockRepo := new(MockDeliveryNoteRepository)
	mockRepo.On("FindByID", mock.Anything, note.ID()).Return(note, nil)

	service := newDeliveryService(t, mockRepo, new(MockVendorCatalog), new(MockPurchaseOrderCatalog),
		new(MockServiceBusClient), new(MockDeliveryNoteIndexer))

	_, err := service.UpdateItem(context.Background(), note.ID(), itemID, UpdateDeliveryNoteItemCommand{
		QuantityOrdered:   10,
		QuantityDelivered: 9,
	})

	require.Error(t, err)
	require.True(t, domain.IsImmutableEntityError(err))
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// The commands fall back to a disabled cache when Redis is unreachable
// at boot; lookups must still work against the repository.
func TestGetDeliveryNoteByNumberWithUnavailableCache(t *testing.T) {
	degraded, err := cache.NewRedisCache(config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	require.NotNil(t, degraded)

	note := storedNote(t)
	mockRepo := new(MockDeliveryNoteRepository)
	mockRepo.On("FindByNumber", mock.Anything, note.Number()).Return(note, nil)

	service := newDeliveryService(t, mockRepo, new(MockVendorCatalog), new(MockPurchaseOrderCatalog),
		new(MockServiceBusClient), new(MockDeliveryNoteIndexer))
	service.cache = degraded

	got, err := service.GetDeliveryNoteByNumber(context.Background(), note.Number())

	require.NoError(t, err)
	require.Equal(t, note.ID(), got.ID())
	mockRepo.AssertExpectations(t)
}

// Without Elasticsearch the commands leave the indexer interface nil;
// creation must succeed and simply skip indexing.
func TestCreateDeliveryNoteWithoutIndexer(t *testing.T) {
	mockRepo := new(MockDeliveryNoteRepository)
	mockBus := new(MockServiceBusClient)

	mockRepo.On("ExistsByNumber", mock.Anything, "DN-2026-0001").Return(false, nil)
	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.DeliveryNote")).Return(nil)
	mockBus.On("SendMessage", mock.Anything, mock.AnythingOfType("domain.Event")).Return(nil)

	cmd := validCreateCommand()
	vendors, orders := catalogsFor(cmd)
	service := &DeliveryService{
		noteRepo:  mockRepo,
		vendors:   vendors,
		orders:    orders,
		publisher: mockBus,
		cache:     &cache.RedisCache{},
		tracer:    disabledTracer(t),
	}

	note, err := service.CreateDeliveryNote(context.Background(), cmd)

	require.NoError(t, err)
	require.NotNil(t, note)
	mockRepo.AssertExpectations(t)
}

func TestGetStats(t *testing.T) {
	mockRepo := new(MockDeliveryNoteRepository)
	mockRepo.On("CountByStatus", mock.Anything, domain.StatusDraft()).Return(int64(3), nil)
	mockRepo.On("CountByStatus", mock.Anything, domain.StatusConfirmed()).Return(int64(12), nil)

	service := newDeliveryService(t, mockRepo, new(MockVendorCatalog), new(MockPurchaseOrderCatalog),
		new(MockServiceBusClient), new(MockDeliveryNoteIndexer))

	stats, err := service.GetStats(context.Background())

	require.NoError(t, err)
	require.Equal(t, int64(3), stats.DraftCount)
	require.Equal(t, int64(12), stats.ConfirmedCount)
}
