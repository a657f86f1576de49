package domain

import (
	"strings"

	"github.com/google/uuid"
)

// DeliveryNoteItem is one line of a delivery note. It is immutable
// after construction; corrections replace the whole item through the
// owning note's UpdateItem.
type DeliveryNoteItem struct {
	id                  uuid.UUID
	deliveryNoteID      uuid.UUID
	purchaseOrderItemID uuid.UUID
	itemID              uuid.UUID
	quantityOrdered     int
	quantityDelivered   int
	condition           ItemCondition
	notes               string
	discrepancy         QuantityDiscrepancy
}

// NewDeliveryNoteItem validates and creates a line item. The quantity
// discrepancy is derived here and never set separately. A zero-value
// condition defaults to GOOD.
func NewDeliveryNoteItem(
	id uuid.UUID,
	deliveryNoteID uuid.UUID,
	purchaseOrderItemID uuid.UUID,
	itemID uuid.UUID,
	quantityOrdered int,
	quantityDelivered int,
	condition ItemCondition,
	notes string,
) (DeliveryNoteItem, error) {
	if id == uuid.Nil {
		return DeliveryNoteItem{}, NewValidationError("id", "item id is required")
	}
	if deliveryNoteID == uuid.Nil {
		return DeliveryNoteItem{}, NewValidationError("delivery_note_id", "delivery note id is required")
	}
	if purchaseOrderItemID == uuid.Nil {
		return DeliveryNoteItem{}, NewValidationError("purchase_order_item_id", "purchase order item id is required")
	}
	if itemID == uuid.Nil {
		return DeliveryNoteItem{}, NewValidationError("item_id", "item id is required")
	}
	discrepancy, err := NewQuantityDiscrepancy(quantityOrdered, quantityDelivered)
	if err != nil {
		return DeliveryNoteItem{}, err
	}
	if condition == (ItemCondition{}) {
		condition = ConditionGood()
	}
	trimmedNotes, err := normalizeNotes(notes)
	if err != nil {
		return DeliveryNoteItem{}, err
	}
	return DeliveryNoteItem{
		id:                  id,
		deliveryNoteID:      deliveryNoteID,
		purchaseOrderItemID: purchaseOrderItemID,
		itemID:              itemID,
		quantityOrdered:     quantityOrdered,
		quantityDelivered:   quantityDelivered,
		condition:           condition,
		notes:               trimmedNotes,
		discrepancy:         discrepancy,
	}, nil
}

// normalizeNotes trims optional free text. Empty input means absent;
// whitespace-only input is rejected.
func normalizeNotes(notes string) (string, error) {
	if notes == "" {
		return "", nil
	}
	trimmed := strings.TrimSpace(notes)
	if trimmed == "" {
		return "", NewValidationError("notes", "notes cannot be blank when provided")
	}
	return trimmed, nil
}

// ID returns the item id
func (i DeliveryNoteItem) ID() uuid.UUID { return i.id }

// DeliveryNoteID returns the id of the owning delivery note
func (i DeliveryNoteItem) DeliveryNoteID() uuid.UUID { return i.deliveryNoteID }

// PurchaseOrderItemID returns the source purchase order line id
func (i DeliveryNoteItem) PurchaseOrderItemID() uuid.UUID { return i.purchaseOrderItemID }

// ItemID returns the catalog item id
func (i DeliveryNoteItem) ItemID() uuid.UUID { return i.itemID }

// QuantityOrdered returns the quantity ordered
func (i DeliveryNoteItem) QuantityOrdered() int { return i.quantityOrdered }

// QuantityDelivered returns the quantity delivered
func (i DeliveryNoteItem) QuantityDelivered() int { return i.quantityDelivered }

// Condition returns the item condition
func (i DeliveryNoteItem) Condition() ItemCondition { return i.condition }

// Notes returns the optional free text, empty when absent
func (i DeliveryNoteItem) Notes() string { return i.notes }

// HasNotes reports whether free text was recorded
func (i DeliveryNoteItem) HasNotes() bool { return i.notes != "" }

// Discrepancy returns the derived quantity discrepancy
func (i DeliveryNoteItem) Discrepancy() QuantityDiscrepancy { return i.discrepancy }

// HasIssues reports whether the item condition flags a problem
func (i DeliveryNoteItem) HasIssues() bool { return i.condition.HasIssues() }

// EffectiveQuantity returns the quantity that counts toward aggregate
// totals. Rejected items contribute zero regardless of what arrived.
func (i DeliveryNoteItem) EffectiveQuantity() int {
	if i.condition.IsRejected() {
		return 0
	}
	return i.quantityDelivered
}
