package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Vendor represents a supplier
type Vendor struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
	Name           string          `gorm:"not null" json:"name"`
	ContactEmail   string          `json:"contact_email"`
	ContactPhone   string          `json:"contact_phone"`
	Address        string          `json:"address"`
	TaxNumber      string          `json:"tax_number"`
	IsActive       bool            `gorm:"not null;default:true" json:"is_active"`
	PurchaseOrders []PurchaseOrder `gorm:"foreignKey:VendorID" json:"-"`
}

// Item represents a catalog item that can be ordered
type Item struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	SKU         string         `gorm:"not null;uniqueIndex" json:"sku"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Unit        string         `json:"unit"`
	UnitPrice   int64          `gorm:"not null;default:0" json:"unit_price"`
}

// PurchaseOrder represents an order placed with a vendor
type PurchaseOrder struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt      `gorm:"index" json:"-"`
	OrderNumber string              `gorm:"not null;uniqueIndex" json:"order_number"`
	VendorID    uuid.UUID           `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Status      string              `gorm:"not null" json:"status"`
	OrderDate   time.Time           `json:"order_date"`
	TotalAmount int64               `gorm:"not null;default:0" json:"total_amount"`
	Vendor      Vendor              `gorm:"foreignKey:VendorID" json:"-"`
	Items       []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"-"`
}

// PurchaseOrderItem represents one line of a purchase order
type PurchaseOrderItem struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	PurchaseOrderID uuid.UUID      `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	ItemID          uuid.UUID      `gorm:"type:uuid;not null" json:"item_id"`
	Quantity        int            `gorm:"not null" json:"quantity"`
	UnitPrice       int64          `gorm:"not null;default:0" json:"unit_price"`
	Item            Item           `gorm:"foreignKey:ItemID" json:"-"`
}

// Invoice represents a vendor invoice against a purchase order
type Invoice struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	InvoiceNumber   string         `gorm:"not null;uniqueIndex" json:"invoice_number"`
	PurchaseOrderID uuid.UUID      `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	VendorID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Amount          int64          `gorm:"not null" json:"amount"`
	IssueDate       time.Time      `json:"issue_date"`
	DueDate         time.Time      `json:"due_date"`
	Status          string         `gorm:"not null" json:"status"`
	AttachmentID    *uuid.UUID     `gorm:"type:uuid" json:"attachment_id"`
}

// DeliveryNote represents a delivery note in the database. The
// delivery note number is its own unique column; it is never aliased
// to the primary id.
type DeliveryNote struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	DeletedAt          gorm.DeletedAt     `gorm:"index" json:"-"`
	DeliveryNoteNumber string             `gorm:"not null;uniqueIndex" json:"delivery_note_number"`
	PurchaseOrderID    uuid.UUID          `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	VendorID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"vendor_id"`
	ReceivedBy         string             `gorm:"not null" json:"received_by"`
	DeliveryDate       time.Time          `gorm:"not null;index" json:"delivery_date"`
	Status             string             `gorm:"not null;index" json:"status"`
	Notes              string             `json:"notes"`
	HasIssues          bool               `gorm:"not null;default:false;index" json:"has_issues"`
	Items              []DeliveryNoteItem `gorm:"foreignKey:DeliveryNoteID" json:"items"`
}

// DeliveryNoteItem represents a delivery note line in the database
type DeliveryNoteItem struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
	DeliveryNoteID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"delivery_note_id"`
	PurchaseOrderItemID uuid.UUID      `gorm:"type:uuid;not null" json:"purchase_order_item_id"`
	ItemID              uuid.UUID      `gorm:"type:uuid;not null" json:"item_id"`
	QuantityOrdered     int            `gorm:"not null" json:"quantity_ordered"`
	QuantityDelivered   int            `gorm:"not null" json:"quantity_delivered"`
	Condition           string         `gorm:"not null" json:"condition"`
	Notes               string         `json:"notes"`
}

// FileAttachment represents an uploaded file in the database.
// LockVersion is bumped on every update and guards concurrent
// modification, in particular double scan completion.
type FileAttachment struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	S3Key           string         `gorm:"not null;uniqueIndex" json:"s3_key"`
	Filename        string         `gorm:"not null" json:"filename"`
	MimeType        string         `gorm:"not null" json:"mime_type"`
	SizeBytes       int64          `gorm:"not null" json:"size_bytes"`
	Checksum        string         `gorm:"not null" json:"checksum"`
	VirusScanStatus string         `gorm:"not null;index" json:"virus_scan_status"`
	UploadedBy      string         `gorm:"not null;index" json:"uploaded_by"`
	UploadedAt      time.Time      `gorm:"not null;index" json:"uploaded_at"`
	Version         int            `gorm:"not null;default:1" json:"version"`
	LockVersion     int            `gorm:"not null;default:0" json:"-"`
	Versions        []FileVersion  `gorm:"foreignKey:FileID" json:"-"`
}

// FileVersion represents a frozen prior file state in the database
type FileVersion struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	FileID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"file_id"`
	VersionNumber int            `gorm:"not null" json:"version_number"`
	S3Key         string         `gorm:"not null" json:"s3_key"`
	Checksum      string         `gorm:"not null" json:"checksum"`
	SizeBytes     int64          `gorm:"not null" json:"size_bytes"`
	ReplacedBy    string         `gorm:"not null" json:"replaced_by"`
	ReplacedAt    time.Time      `gorm:"not null" json:"replaced_at"`
	Reason        string         `json:"reason"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Vendor{},
		&Item{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&Invoice{},
		&DeliveryNote{},
		&DeliveryNoteItem{},
		&FileAttachment{},
		&FileVersion{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
