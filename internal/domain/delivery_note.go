package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeliveryNote is the aggregate root for one goods-receipt event
// against one purchase order from one vendor. It owns its items
// exclusively; callers only ever see copies of the item collection.
// Once confirmed, the note and its items are immutable.
type DeliveryNote struct {
	id              uuid.UUID
	number          string
	purchaseOrderID uuid.UUID
	vendorID        uuid.UUID
	receivedBy      string
	deliveryDate    time.Time
	status          DeliveryNoteStatus
	notes           string
	createdAt       time.Time
	updatedAt       time.Time
	items           []DeliveryNoteItem
}

// CreateDeliveryNote builds a new DRAFT delivery note. It requires at
// least one item and every item must reference this note's id.
func CreateDeliveryNote(
	id uuid.UUID,
	number string,
	purchaseOrderID uuid.UUID,
	vendorID uuid.UUID,
	receivedBy string,
	deliveryDate time.Time,
	notes string,
	items []DeliveryNoteItem,
) (*DeliveryNote, error) {
	now := time.Now().UTC()
	return newDeliveryNote(id, number, purchaseOrderID, vendorID, receivedBy,
		deliveryDate, StatusDraft(), notes, now, now, items)
}

// ReconstituteDeliveryNote rebuilds a delivery note from storage. The
// stored status and timestamps are applied as-is, after the same
// validation as creation.
func ReconstituteDeliveryNote(
	id uuid.UUID,
	number string,
	purchaseOrderID uuid.UUID,
	vendorID uuid.UUID,
	receivedBy string,
	deliveryDate time.Time,
	status DeliveryNoteStatus,
	notes string,
	createdAt time.Time,
	updatedAt time.Time,
	items []DeliveryNoteItem,
) (*DeliveryNote, error) {
	if status == (DeliveryNoteStatus{}) {
		return nil, NewValidationError("status", "status is required when reconstituting")
	}
	return newDeliveryNote(id, number, purchaseOrderID, vendorID, receivedBy,
		deliveryDate, status, notes, createdAt, updatedAt, items)
}

func newDeliveryNote(
	id uuid.UUID,
	number string,
	purchaseOrderID uuid.UUID,
	vendorID uuid.UUID,
	receivedBy string,
	deliveryDate time.Time,
	status DeliveryNoteStatus,
	notes string,
	createdAt time.Time,
	updatedAt time.Time,
	items []DeliveryNoteItem,
) (*DeliveryNote, error) {
	if id == uuid.Nil {
		return nil, NewValidationError("id", "delivery note id is required")
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, NewValidationError("delivery_note_number", "delivery note number is required")
	}
	if purchaseOrderID == uuid.Nil {
		return nil, NewValidationError("purchase_order_id", "purchase order id is required")
	}
	if vendorID == uuid.Nil {
		return nil, NewValidationError("vendor_id", "vendor id is required")
	}
	if strings.TrimSpace(receivedBy) == "" {
		return nil, NewValidationError("received_by", "receiver identity is required")
	}
	if deliveryDate.IsZero() {
		return nil, NewValidationError("delivery_date", "delivery date is required")
	}
	trimmedNotes, err := normalizeNotes(notes)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, NewBusinessRuleViolationError("delivery_note_items",
			"a delivery note must contain at least one item")
	}
	for _, item := range items {
		if item.DeliveryNoteID() != id {
			return nil, NewValidationError("items",
				"item "+item.ID().String()+" belongs to a different delivery note")
		}
	}
	note := &DeliveryNote{
		id:              id,
		number:          number,
		purchaseOrderID: purchaseOrderID,
		vendorID:        vendorID,
		receivedBy:      strings.TrimSpace(receivedBy),
		deliveryDate:    deliveryDate,
		status:          status,
		notes:           trimmedNotes,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
		items:           make([]DeliveryNoteItem, len(items)),
	}
	copy(note.items, items)
	return note, nil
}

// UpdateItem replaces one existing item by id. The whole item is
// swapped; there is no partial patch. Fails once the note is confirmed.
func (n *DeliveryNote) UpdateItem(item DeliveryNoteItem) error {
	if n.status.IsConfirmed() {
		return NewImmutableEntityError("DeliveryNote",
			"items cannot be changed after confirmation")
	}
	if item.DeliveryNoteID() != n.id {
		return NewValidationError("delivery_note_id",
			"item belongs to a different delivery note")
	}
	for i := range n.items {
		if n.items[i].ID() == item.ID() {
			n.items[i] = item
			n.updatedAt = time.Now().UTC()
			return nil
		}
	}
	return NewValidationError("item_id",
		"item "+item.ID().String()+" does not exist on this delivery note")
}

// Confirm performs the one-way DRAFT to CONFIRMED transition.
func (n *DeliveryNote) Confirm() error {
	if n.status.IsConfirmed() {
		return NewImmutableEntityError("DeliveryNote", "delivery note is already confirmed")
	}
	if len(n.items) == 0 {
		return NewBusinessRuleViolationError("delivery_note_items",
			"a delivery note without items cannot be confirmed")
	}
	next, err := n.status.TransitionTo(StatusConfirmed())
	if err != nil {
		return err
	}
	n.status = next
	n.updatedAt = time.Now().UTC()
	return nil
}

// CanBeConfirmed reports whether Confirm would succeed
func (n *DeliveryNote) CanBeConfirmed() bool {
	return n.status.IsDraft() && len(n.items) > 0
}

// Items returns a defensive copy of the item collection
func (n *DeliveryNote) Items() []DeliveryNoteItem {
	items := make([]DeliveryNoteItem, len(n.items))
	copy(items, n.items)
	return items
}

// FindItemByID looks up an item by its id
func (n *DeliveryNote) FindItemByID(id uuid.UUID) (DeliveryNoteItem, bool) {
	for _, item := range n.items {
		if item.ID() == id {
			return item, true
		}
	}
	return DeliveryNoteItem{}, false
}

// TotalQuantityDelivered sums the delivered quantity across all items
func (n *DeliveryNote) TotalQuantityDelivered() int {
	total := 0
	for _, item := range n.items {
		total += item.QuantityDelivered()
	}
	return total
}

// TotalEffectiveQuantity sums the effective quantity across all items;
// rejected items count as zero.
func (n *DeliveryNote) TotalEffectiveQuantity() int {
	total := 0
	for _, item := range n.items {
		total += item.EffectiveQuantity()
	}
	return total
}

// HasAnyIssues reports whether any item flags a condition issue
func (n *DeliveryNote) HasAnyIssues() bool {
	for _, item := range n.items {
		if item.HasIssues() {
			return true
		}
	}
	return false
}

// ItemsWithIssues returns copies of the items whose condition flags an issue
func (n *DeliveryNote) ItemsWithIssues() []DeliveryNoteItem {
	var flagged []DeliveryNoteItem
	for _, item := range n.items {
		if item.HasIssues() {
			flagged = append(flagged, item)
		}
	}
	return flagged
}

// ID returns the delivery note id
func (n *DeliveryNote) ID() uuid.UUID { return n.id }

// Number returns the human-assigned delivery note number
func (n *DeliveryNote) Number() string { return n.number }

// PurchaseOrderID returns the purchase order id
func (n *DeliveryNote) PurchaseOrderID() uuid.UUID { return n.purchaseOrderID }

// VendorID returns the vendor id
func (n *DeliveryNote) VendorID() uuid.UUID { return n.vendorID }

// ReceivedBy returns the receiver identity
func (n *DeliveryNote) ReceivedBy() string { return n.receivedBy }

// DeliveryDate returns the delivery date
func (n *DeliveryNote) DeliveryDate() time.Time { return n.deliveryDate }

// Status returns the current lifecycle status
func (n *DeliveryNote) Status() DeliveryNoteStatus { return n.status }

// Notes returns the optional free text, empty when absent
func (n *DeliveryNote) Notes() string { return n.notes }

// CreatedAt returns the creation timestamp
func (n *DeliveryNote) CreatedAt() time.Time { return n.createdAt }

// UpdatedAt returns the last update timestamp
func (n *DeliveryNote) UpdatedAt() time.Time { return n.updatedAt }
