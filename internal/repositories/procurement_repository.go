package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/procurement/internal/domain"
	"example.com/backstage/services/procurement/internal/models"
)

// VendorRepository provides access to vendor data
type VendorRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewVendorRepository creates a new vendor repository
func NewVendorRepository(db *gorm.DB, readOnlyDB *gorm.DB) *VendorRepository {
	return &VendorRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetByID gets a vendor by id
func (r *VendorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	// Use read-only DB for reads
	err := r.readOnlyDB.WithContext(ctx).First(&vendor, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get vendor by id")
	}
	return &vendor, nil
}

// ListActive lists active vendors
func (r *VendorRepository) ListActive(ctx context.Context) ([]models.Vendor, error) {
	var vendors []models.Vendor
	err := r.readOnlyDB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&vendors).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active vendors")
	}
	return vendors, nil
}

// PurchaseOrderRepository provides access to purchase order data
type PurchaseOrderRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewPurchaseOrderRepository creates a new purchase order repository
func NewPurchaseOrderRepository(db *gorm.DB, readOnlyDB *gorm.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetByID gets a purchase order with its items
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Items").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get purchase order by id")
	}
	return &order, nil
}

// ListByVendor lists purchase orders placed with a vendor
func (r *PurchaseOrderRepository) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := r.readOnlyDB.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("order_date DESC").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list purchase orders by vendor")
	}
	return orders, nil
}

// InvoiceRepository provides access to invoice data
type InvoiceRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB, readOnlyDB *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetByID gets an invoice by id
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.readOnlyDB.WithContext(ctx).First(&invoice, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get invoice by id")
	}
	return &invoice, nil
}

// AttachFile links a scanned clean file to an invoice
func (r *InvoiceRepository) AttachFile(ctx context.Context, invoiceID, attachmentID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("attachment_id", attachmentID)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to attach file to invoice")
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
