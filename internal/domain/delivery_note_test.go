package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestItem(t *testing.T, noteID uuid.UUID, ordered, delivered int, condition ItemCondition) DeliveryNoteItem {
	t.Helper()
	item, err := NewDeliveryNoteItem(
		uuid.New(), noteID, uuid.New(), uuid.New(),
		ordered, delivered, condition, "")
	require.NoError(t, err)
	return item
}

func newTestNote(t *testing.T, items ...DeliveryNoteItem) *DeliveryNote {
	t.Helper()
	noteID := items[0].DeliveryNoteID()
	note, err := CreateDeliveryNote(
		noteID, "DN-2024-0042", uuid.New(), uuid.New(),
		"warehouse-clerk", time.Now(), "", items)
	require.NoError(t, err)
	return note
}

func TestCreateDeliveryNote(t *testing.T) {
	noteID := uuid.New()
	item := newTestItem(t, noteID, 10, 10, ConditionGood())

	note, err := CreateDeliveryNote(noteID, "DN-1", uuid.New(), uuid.New(),
		"clerk", time.Now(), "left at dock 3", []DeliveryNoteItem{item})
	require.NoError(t, err)
	require.True(t, note.Status().IsDraft())
	require.Equal(t, "left at dock 3", note.Notes())
	require.Len(t, note.Items(), 1)
}

func TestCreateDeliveryNoteRequiresItems(t *testing.T) {
	_, err := CreateDeliveryNote(uuid.New(), "DN-1", uuid.New(), uuid.New(),
		"clerk", time.Now(), "", nil)
	require.Error(t, err)
	require.True(t, IsBusinessRuleViolationError(err))
}

func TestCreateDeliveryNoteRejectsForeignItems(t *testing.T) {
	noteID := uuid.New()
	foreign := newTestItem(t, uuid.New(), 10, 10, ConditionGood())

	_, err := CreateDeliveryNote(noteID, "DN-1", uuid.New(), uuid.New(),
		"clerk", time.Now(), "", []DeliveryNoteItem{foreign})
	require.Error(t, err)
	require.True(t, IsValidationError(err))
}

func TestCreateDeliveryNoteRejectsBlankScalars(t *testing.T) {
	noteID := uuid.New()
	item := newTestItem(t, noteID, 1, 1, ConditionGood())
	items := []DeliveryNoteItem{item}

	_, err := CreateDeliveryNote(noteID, "  ", uuid.New(), uuid.New(), "clerk", time.Now(), "", items)
	require.True(t, IsValidationError(err))

	_, err = CreateDeliveryNote(noteID, "DN-1", uuid.Nil, uuid.New(), "clerk", time.Now(), "", items)
	require.True(t, IsValidationError(err))

	_, err = CreateDeliveryNote(noteID, "DN-1", uuid.New(), uuid.New(), "", time.Now(), "", items)
	require.True(t, IsValidationError(err))

	_, err = CreateDeliveryNote(noteID, "DN-1", uuid.New(), uuid.New(), "clerk", time.Time{}, "", items)
	require.True(t, IsValidationError(err))

	// Whitespace-only notes are rejected, absent notes are fine
	_, err = CreateDeliveryNote(noteID, "DN-1", uuid.New(), uuid.New(), "clerk", time.Now(), "   ", items)
	require.True(t, IsValidationError(err))
}

func TestConfirmIsOneWay(t *testing.T) {
	note := newTestNote(t, newTestItem(t, uuid.New(), 5, 5, ConditionGood()))
	require.True(t, note.CanBeConfirmed())

	require.NoError(t, note.Confirm())
	require.True(t, note.Status().IsConfirmed())
	require.False(t, note.CanBeConfirmed())

	err := note.Confirm()
	require.Error(t, err)
	require.True(t, IsImmutableEntityError(err))
}

func TestUpdateItemReplacesWholeItem(t *testing.T) {
	noteID := uuid.New()
	item := newTestItem(t, noteID, 10, 8, ConditionGood())
	note := newTestNote(t, item)

	replacement, err := NewDeliveryNoteItem(item.ID(), noteID,
		item.PurchaseOrderItemID(), item.ItemID(), 10, 10, ConditionGood(), "recount")
	require.NoError(t, err)

	require.NoError(t, note.UpdateItem(replacement))
	got, ok := note.FindItemByID(item.ID())
	require.True(t, ok)
	require.Equal(t, 10, got.QuantityDelivered())
	require.Equal(t, "recount", got.Notes())
}

func TestUpdateItemAfterConfirmFails(t *testing.T) {
	noteID := uuid.New()
	item := newTestItem(t, noteID, 10, 10, ConditionGood())
	note := newTestNote(t, item)
	require.NoError(t, note.Confirm())

	err := note.UpdateItem(item)
	require.Error(t, err)
	require.True(t, IsImmutableEntityError(err))
}

func TestUpdateItemUnknownOrForeign(t *testing.T) {
	noteID := uuid.New()
	note := newTestNote(t, newTestItem(t, noteID, 10, 10, ConditionGood()))

	unknown := newTestItem(t, noteID, 1, 1, ConditionGood())
	err := note.UpdateItem(unknown)
	require.Error(t, err)
	require.True(t, IsValidationError(err))

	foreign := newTestItem(t, uuid.New(), 1, 1, ConditionGood())
	err = note.UpdateItem(foreign)
	require.Error(t, err)
	require.True(t, IsValidationError(err))
}

func TestDerivedTotals(t *testing.T) {
	noteID := uuid.New()
	note := newTestNote(t,
		newTestItem(t, noteID, 10, 10, ConditionGood()),
		newTestItem(t, noteID, 5, 4, ConditionDamaged()),
		newTestItem(t, noteID, 10, 10, ConditionRejected()),
	)

	require.Equal(t, 24, note.TotalQuantityDelivered())
	// Rejected items contribute zero to the effective total
	require.Equal(t, 14, note.TotalEffectiveQuantity())
	require.True(t, note.HasAnyIssues())
	require.Len(t, note.ItemsWithIssues(), 2)
}

func TestItemsReturnsDefensiveCopy(t *testing.T) {
	noteID := uuid.New()
	note := newTestNote(t, newTestItem(t, noteID, 10, 10, ConditionGood()))

	items := note.Items()
	items[0] = DeliveryNoteItem{}
	require.NotEqual(t, uuid.Nil, note.Items()[0].ID())
}

func TestReconstituteRequiresStatus(t *testing.T) {
	noteID := uuid.New()
	item := newTestItem(t, noteID, 1, 1, ConditionGood())
	now := time.Now()

	_, err := ReconstituteDeliveryNote(noteID, "DN-1", uuid.New(), uuid.New(),
		"clerk", now, DeliveryNoteStatus{}, "", now, now, []DeliveryNoteItem{item})
	require.Error(t, err)
	require.True(t, IsValidationError(err))

	note, err := ReconstituteDeliveryNote(noteID, "DN-1", uuid.New(), uuid.New(),
		"clerk", now, StatusConfirmed(), "", now, now, []DeliveryNoteItem{item})
	require.NoError(t, err)
	require.True(t, note.Status().IsConfirmed())
}

func TestDeliveryNoteItemEffectiveQuantity(t *testing.T) {
	rejected := newTestItem(t, uuid.New(), 10, 10, ConditionRejected())
	require.Equal(t, 0, rejected.EffectiveQuantity())

	partial := newTestItem(t, uuid.New(), 10, 6, ConditionPartial())
	require.Equal(t, 6, partial.EffectiveQuantity())
	require.True(t, partial.HasIssues())
	require.True(t, partial.Discrepancy().IsUnderDelivery())
}

func TestDeliveryNoteItemDefaultsToGoodCondition(t *testing.T) {
	item, err := NewDeliveryNoteItem(uuid.New(), uuid.New(), uuid.New(), uuid.New(),
		5, 5, ItemCondition{}, "")
	require.NoError(t, err)
	require.Equal(t, "GOOD", item.Condition().String())
	require.False(t, item.HasIssues())
}
