package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/procurement/internal/domain"
	"example.com/backstage/services/procurement/internal/models"
)

// DeliveryNoteRepository persists delivery note aggregates
type DeliveryNoteRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewDeliveryNoteRepository creates a new delivery note repository
func NewDeliveryNoteRepository(db *gorm.DB, readOnlyDB *gorm.DB) *DeliveryNoteRepository {
	return &DeliveryNoteRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Save inserts a new delivery note together with its items
func (r *DeliveryNoteRepository) Save(ctx context.Context, note *domain.DeliveryNote) error {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryNote{}).
		Where("id = ?", note.ID()).
		Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "failed to check delivery note existence")
	}
	if count > 0 {
		return domain.ErrAlreadyExists
	}

	row := deliveryNoteToRow(note)
	// Use write DB for writes
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.Wrap(err, "failed to save delivery note")
	}
	return nil
}

// Update rewrites an existing delivery note and its item collection
func (r *DeliveryNoteRepository) Update(ctx context.Context, note *domain.DeliveryNote) error {
	row := deliveryNoteToRow(note)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.DeliveryNote{}).
			Where("id = ?", note.ID()).
			Updates(map[string]interface{}{
				"delivery_note_number": row.DeliveryNoteNumber,
				"purchase_order_id":    row.PurchaseOrderID,
				"vendor_id":            row.VendorID,
				"received_by":          row.ReceivedBy,
				"delivery_date":        row.DeliveryDate,
				"status":               row.Status,
				"notes":                row.Notes,
				"has_issues":           row.HasIssues,
				"updated_at":           row.UpdatedAt,
			})
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to update delivery note")
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		// The aggregate owns its items; replace the whole collection
		err := tx.Unscoped().
			Where("delivery_note_id = ?", note.ID()).
			Delete(&models.DeliveryNoteItem{}).Error
		if err != nil {
			return errors.Wrap(err, "failed to clear delivery note items")
		}
		if err := tx.Create(&row.Items).Error; err != nil {
			return errors.Wrap(err, "failed to save delivery note items")
		}
		return nil
	})
}

// FindByID gets a delivery note by its id
func (r *DeliveryNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryNote, error) {
	var row models.DeliveryNote
	// Use read-only DB for reads
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Items").
		First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get delivery note by id")
	}
	return deliveryNoteFromRow(&row)
}

// FindByNumber gets a delivery note by its human-assigned number
func (r *DeliveryNoteRepository) FindByNumber(ctx context.Context, number string) (*domain.DeliveryNote, error) {
	var row models.DeliveryNote
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Items").
		Where("delivery_note_number = ?", number).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get delivery note by number")
	}
	return deliveryNoteFromRow(&row)
}

// FindByStatus lists delivery notes in the given status
func (r *DeliveryNoteRepository) FindByStatus(ctx context.Context, status domain.DeliveryNoteStatus) ([]*domain.DeliveryNote, error) {
	return r.findAll(ctx, r.readOnlyDB.WithContext(ctx).Where("status = ?", status.String()))
}

// FindByVendorID lists delivery notes for a vendor
func (r *DeliveryNoteRepository) FindByVendorID(ctx context.Context, vendorID uuid.UUID) ([]*domain.DeliveryNote, error) {
	return r.findAll(ctx, r.readOnlyDB.WithContext(ctx).Where("vendor_id = ?", vendorID))
}

// FindByDeliveryDateRange lists delivery notes delivered within [from, to]
func (r *DeliveryNoteRepository) FindByDeliveryDateRange(ctx context.Context, from, to time.Time) ([]*domain.DeliveryNote, error) {
	return r.findAll(ctx, r.readOnlyDB.WithContext(ctx).
		Where("delivery_date >= ? AND delivery_date <= ?", from, to))
}

// FindWithIssues lists delivery notes containing at least one item
// with a condition issue.
func (r *DeliveryNoteRepository) FindWithIssues(ctx context.Context) ([]*domain.DeliveryNote, error) {
	return r.findAll(ctx, r.readOnlyDB.WithContext(ctx).Where("has_issues = ?", true))
}

func (r *DeliveryNoteRepository) findAll(ctx context.Context, query *gorm.DB) ([]*domain.DeliveryNote, error) {
	var rows []models.DeliveryNote
	err := query.
		Preload("Items").
		Order("delivery_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list delivery notes")
	}

	notes := make([]*domain.DeliveryNote, 0, len(rows))
	for i := range rows {
		note, err := deliveryNoteFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// ExistsByNumber reports whether a delivery note with the number exists
func (r *DeliveryNoteRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.DeliveryNote{}).
		Where("delivery_note_number = ?", number).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check delivery note number")
	}
	return count > 0, nil
}

// CountByStatus counts delivery notes in the given status
func (r *DeliveryNoteRepository) CountByStatus(ctx context.Context, status domain.DeliveryNoteStatus) (int64, error) {
	var count int64
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.DeliveryNote{}).
		Where("status = ?", status.String()).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count delivery notes by status")
	}
	return count, nil
}

// SumDeliveredByVendor sums the delivered quantity across all of a
// vendor's delivery notes.
func (r *DeliveryNoteRepository) SumDeliveredByVendor(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	var total int64
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.DeliveryNoteItem{}).
		Select("COALESCE(SUM(delivery_note_items.quantity_delivered), 0)").
		Joins("JOIN delivery_notes ON delivery_notes.id = delivery_note_items.delivery_note_id").
		Where("delivery_notes.vendor_id = ? AND delivery_notes.deleted_at IS NULL", vendorID).
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum delivered quantity by vendor")
	}
	return total, nil
}

// Delete soft-deletes a delivery note and its items
func (r *DeliveryNoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.DeliveryNote{}, id)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to delete delivery note")
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		err := tx.Where("delivery_note_id = ?", id).Delete(&models.DeliveryNoteItem{}).Error
		if err != nil {
			return errors.Wrap(err, "failed to delete delivery note items")
		}
		return nil
	})
}

func deliveryNoteToRow(note *domain.DeliveryNote) *models.DeliveryNote {
	items := note.Items()
	rows := make([]models.DeliveryNoteItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.DeliveryNoteItem{
			ID:                  item.ID(),
			DeliveryNoteID:      item.DeliveryNoteID(),
			PurchaseOrderItemID: item.PurchaseOrderItemID(),
			ItemID:              item.ItemID(),
			QuantityOrdered:     item.QuantityOrdered(),
			QuantityDelivered:   item.QuantityDelivered(),
			Condition:           item.Condition().String(),
			Notes:               item.Notes(),
		})
	}

	return &models.DeliveryNote{
		ID:                 note.ID(),
		CreatedAt:          note.CreatedAt(),
		UpdatedAt:          note.UpdatedAt(),
		DeliveryNoteNumber: note.Number(),
		PurchaseOrderID:    note.PurchaseOrderID(),
		VendorID:           note.VendorID(),
		ReceivedBy:         note.ReceivedBy(),
		DeliveryDate:       note.DeliveryDate(),
		Status:             note.Status().String(),
		Notes:              note.Notes(),
		HasIssues:          note.HasAnyIssues(),
		Items:              rows,
	}
}

func deliveryNoteFromRow(row *models.DeliveryNote) (*domain.DeliveryNote, error) {
	status, err := domain.NewDeliveryNoteStatus(row.Status)
	if err != nil {
		return nil, errors.Wrap(err, "stored delivery note has invalid status")
	}

	items := make([]domain.DeliveryNoteItem, 0, len(row.Items))
	for _, itemRow := range row.Items {
		condition, err := domain.NewItemCondition(itemRow.Condition)
		if err != nil {
			return nil, errors.Wrap(err, "stored delivery note item has invalid condition")
		}
		item, err := domain.NewDeliveryNoteItem(
			itemRow.ID,
			itemRow.DeliveryNoteID,
			itemRow.PurchaseOrderItemID,
			itemRow.ItemID,
			itemRow.QuantityOrdered,
			itemRow.QuantityDelivered,
			condition,
			itemRow.Notes,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to rebuild delivery note item")
		}
		items = append(items, item)
	}

	note, err := domain.ReconstituteDeliveryNote(
		row.ID,
		row.DeliveryNoteNumber,
		row.PurchaseOrderID,
		row.VendorID,
		row.ReceivedBy,
		row.DeliveryDate,
		status,
		row.Notes,
		row.CreatedAt,
		row.UpdatedAt,
		items,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to rebuild delivery note")
	}
	return note, nil
}
