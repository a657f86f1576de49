package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/procurement/internal/domain"
	"example.com/backstage/services/procurement/internal/metrics"
	"example.com/backstage/services/procurement/internal/services"
	"example.com/backstage/services/procurement/internal/tracing"
)

// DeliveryHandler handles delivery note HTTP requests
type DeliveryHandler struct {
	deliveryService *services.DeliveryService
	metrics         *metrics.Metrics
	tracer          tracing.Tracer
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveryService *services.DeliveryService, metrics *metrics.Metrics, tracer tracing.Tracer) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: deliveryService,
		metrics:         metrics,
		tracer:          tracer,
	}
}

// DeliveryNoteItemRequest represents one line of an incoming delivery note
type DeliveryNoteItemRequest struct {
	PurchaseOrderItemID uuid.UUID `json:"purchase_order_item_id" binding:"required"`
	ItemID              uuid.UUID `json:"item_id" binding:"required"`
	QuantityOrdered     int       `json:"quantity_ordered"`
	QuantityDelivered   int       `json:"quantity_delivered"`
	Condition           string    `json:"condition"`
	Notes               string    `json:"notes"`
}

// CreateDeliveryNoteRequest represents an incoming delivery note
type CreateDeliveryNoteRequest struct {
	Number          string                    `json:"delivery_note_number" binding:"required"`
	PurchaseOrderID uuid.UUID                 `json:"purchase_order_id" binding:"required"`
	VendorID        uuid.UUID                 `json:"vendor_id" binding:"required"`
	ReceivedBy      string                    `json:"received_by" binding:"required"`
	DeliveryDate    time.Time                 `json:"delivery_date" binding:"required"`
	Notes           string                    `json:"notes"`
	Items           []DeliveryNoteItemRequest `json:"items" binding:"required"`
}

// UpdateDeliveryNoteItemRequest replaces one item's recorded state
type UpdateDeliveryNoteItemRequest struct {
	QuantityOrdered   int    `json:"quantity_ordered"`
	QuantityDelivered int    `json:"quantity_delivered"`
	Condition         string `json:"condition"`
	Notes             string `json:"notes"`
}

// DeliveryNoteItemResponse represents one delivery note line
type DeliveryNoteItemResponse struct {
	ID                  uuid.UUID `json:"id"`
	PurchaseOrderItemID uuid.UUID `json:"purchase_order_item_id"`
	ItemID              uuid.UUID `json:"item_id"`
	QuantityOrdered     int       `json:"quantity_ordered"`
	QuantityDelivered   int       `json:"quantity_delivered"`
	Condition           string    `json:"condition"`
	Discrepancy         int       `json:"discrepancy"`
	DiscrepancySummary  string    `json:"discrepancy_summary"`
	EffectiveQuantity   int       `json:"effective_quantity"`
	HasIssues           bool      `json:"has_issues"`
	Notes               string    `json:"notes,omitempty"`
}

// DeliveryNoteResponse represents a delivery note
type DeliveryNoteResponse struct {
	ID                 uuid.UUID                  `json:"id"`
	Number             string                     `json:"delivery_note_number"`
	PurchaseOrderID    uuid.UUID                  `json:"purchase_order_id"`
	VendorID           uuid.UUID                  `json:"vendor_id"`
	ReceivedBy         string                     `json:"received_by"`
	DeliveryDate       time.Time                  `json:"delivery_date"`
	Status             string                     `json:"status"`
	Notes              string                     `json:"notes,omitempty"`
	HasIssues          bool                       `json:"has_issues"`
	TotalDelivered     int                        `json:"total_delivered"`
	EffectiveQuantity  int                        `json:"effective_quantity"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
	Items              []DeliveryNoteItemResponse `json:"items"`
}

func toDeliveryNoteResponse(note *domain.DeliveryNote) DeliveryNoteResponse {
	items := note.Items()
	itemResponses := make([]DeliveryNoteItemResponse, 0, len(items))
	for _, item := range items {
		itemResponses = append(itemResponses, DeliveryNoteItemResponse{
			ID:                  item.ID(),
			PurchaseOrderItemID: item.PurchaseOrderItemID(),
			ItemID:              item.ItemID(),
			QuantityOrdered:     item.QuantityOrdered(),
			QuantityDelivered:   item.QuantityDelivered(),
			Condition:           item.Condition().String(),
			Discrepancy:         item.Discrepancy().Discrepancy(),
			DiscrepancySummary:  item.Discrepancy().Description(),
			EffectiveQuantity:   item.EffectiveQuantity(),
			HasIssues:           item.HasIssues(),
			Notes:               item.Notes(),
		})
	}

	return DeliveryNoteResponse{
		ID:                note.ID(),
		Number:            note.Number(),
		PurchaseOrderID:   note.PurchaseOrderID(),
		VendorID:          note.VendorID(),
		ReceivedBy:        note.ReceivedBy(),
		DeliveryDate:      note.DeliveryDate(),
		Status:            note.Status().String(),
		Notes:             note.Notes(),
		HasIssues:         note.HasAnyIssues(),
		TotalDelivered:    note.TotalQuantityDelivered(),
		EffectiveQuantity: note.TotalEffectiveQuantity(),
		CreatedAt:         note.CreatedAt(),
		UpdatedAt:         note.UpdatedAt(),
		Items:             itemResponses,
	}
}

func toDeliveryNoteResponses(notes []*domain.DeliveryNote) []DeliveryNoteResponse {
	responses := make([]DeliveryNoteResponse, 0, len(notes))
	for _, note := range notes {
		responses = append(responses, toDeliveryNoteResponse(note))
	}
	return responses
}

// HandleCreateDeliveryNote records a new delivery
func (h *DeliveryHandler) HandleCreateDeliveryNote(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-delivery-note")
	defer h.tracer.EndTransaction(txn)

	var req CreateDeliveryNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "delivery_note_number", req.Number)

	items := make([]services.DeliveryNoteItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.DeliveryNoteItemInput{
			PurchaseOrderItemID: item.PurchaseOrderItemID,
			ItemID:              item.ItemID,
			QuantityOrdered:     item.QuantityOrdered,
			QuantityDelivered:   item.QuantityDelivered,
			Condition:           item.Condition,
			Notes:               item.Notes,
		})
	}

	note, err := h.deliveryService.CreateDeliveryNote(c, services.CreateDeliveryNoteCommand{
		Number:          req.Number,
		PurchaseOrderID: req.PurchaseOrderID,
		VendorID:        req.VendorID,
		ReceivedBy:      req.ReceivedBy,
		DeliveryDate:    req.DeliveryDate,
		Notes:           req.Notes,
		Items:           items,
	})
	if err != nil {
		h.metrics.RecordError("create_delivery_note")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	h.metrics.RecordSuccess("create_delivery_note")
	h.metrics.IncrementCounter("delivery_notes_created")
	c.JSON(http.StatusCreated, toDeliveryNoteResponse(note))
}

// HandleGetDeliveryNote returns one delivery note by id
func (h *DeliveryHandler) HandleGetDeliveryNote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery note id"})
		return
	}

	note, err := h.deliveryService.GetDeliveryNote(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDeliveryNoteResponse(note))
}

// HandleGetDeliveryNoteByNumber returns one delivery note by number
func (h *DeliveryHandler) HandleGetDeliveryNoteByNumber(c *gin.Context) {
	note, err := h.deliveryService.GetDeliveryNoteByNumber(c, c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDeliveryNoteResponse(note))
}

// HandleListDeliveryNotes lists delivery notes filtered by status,
// vendor, date range or issue flag.
func (h *DeliveryHandler) HandleListDeliveryNotes(c *gin.Context) {
	if c.Query("issues") == "true" {
		notes, err := h.deliveryService.ListWithIssues(c)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toDeliveryNoteResponses(notes))
		return
	}

	if vendorParam := c.Query("vendor_id"); vendorParam != "" {
		vendorID, err := uuid.Parse(vendorParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor id"})
			return
		}
		notes, err := h.deliveryService.ListByVendor(c, vendorID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toDeliveryNoteResponses(notes))
		return
	}

	if from, to := c.Query("from"), c.Query("to"); from != "" && to != "" {
		fromTime, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		toTime, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		notes, err := h.deliveryService.ListByDateRange(c, fromTime, toTime)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toDeliveryNoteResponses(notes))
		return
	}

	statusParam := c.DefaultQuery("status", "DRAFT")
	status, err := domain.NewDeliveryNoteStatus(statusParam)
	if err != nil {
		respondError(c, err)
		return
	}
	notes, err := h.deliveryService.ListByStatus(c, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDeliveryNoteResponses(notes))
}

// HandleUpdateItem replaces one item on a draft delivery note
func (h *DeliveryHandler) HandleUpdateItem(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-update-delivery-note-item")
	defer h.tracer.EndTransaction(txn)

	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery note id"})
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var req UpdateDeliveryNoteItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := h.deliveryService.UpdateItem(c, noteID, itemID, services.UpdateDeliveryNoteItemCommand{
		QuantityOrdered:   req.QuantityOrdered,
		QuantityDelivered: req.QuantityDelivered,
		Condition:         req.Condition,
		Notes:             req.Notes,
	})
	if err != nil {
		h.metrics.RecordError("update_delivery_note_item")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	h.metrics.RecordSuccess("update_delivery_note_item")
	c.JSON(http.StatusOK, toDeliveryNoteResponse(note))
}

// HandleConfirmDeliveryNote confirms a draft delivery note
func (h *DeliveryHandler) HandleConfirmDeliveryNote(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-confirm-delivery-note")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery note id"})
		return
	}

	note, err := h.deliveryService.ConfirmDeliveryNote(c, id)
	if err != nil {
		h.metrics.RecordError("confirm_delivery_note")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	h.metrics.RecordSuccess("confirm_delivery_note")
	h.metrics.IncrementCounter("delivery_notes_confirmed")
	c.JSON(http.StatusOK, toDeliveryNoteResponse(note))
}

// HandleDeleteDeliveryNote removes a delivery note
func (h *DeliveryHandler) HandleDeleteDeliveryNote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery note id"})
		return
	}

	if err := h.deliveryService.DeleteDeliveryNote(c, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGetStats reports counts per lifecycle status
func (h *DeliveryHandler) HandleGetStats(c *gin.Context) {
	stats, err := h.deliveryService.GetStats(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandleVendorDeliveredTotal sums a vendor's delivered quantity
func (h *DeliveryHandler) HandleVendorDeliveredTotal(c *gin.Context) {
	vendorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor id"})
		return
	}

	total, err := h.deliveryService.VendorDeliveredTotal(c, vendorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor_id": vendorID, "total_delivered": total})
}

// HandleListVendors lists the active vendors
func (h *DeliveryHandler) HandleListVendors(c *gin.Context) {
	vendors, err := h.deliveryService.ListVendors(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendors)
}

// HandleListVendorPurchaseOrders lists a vendor's purchase orders
func (h *DeliveryHandler) HandleListVendorPurchaseOrders(c *gin.Context) {
	vendorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor id"})
		return
	}

	orders, err := h.deliveryService.ListVendorPurchaseOrders(c, vendorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// RegisterRoutes registers the handler's routes
func (h *DeliveryHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/delivery-notes", h.HandleCreateDeliveryNote)
	router.GET("/delivery-notes", h.HandleListDeliveryNotes)
	router.GET("/delivery-notes/stats", h.HandleGetStats)
	router.GET("/delivery-notes/:id", h.HandleGetDeliveryNote)
	router.GET("/delivery-notes/number/:number", h.HandleGetDeliveryNoteByNumber)
	router.PUT("/delivery-notes/:id/items/:itemId", h.HandleUpdateItem)
	router.POST("/delivery-notes/:id/confirm", h.HandleConfirmDeliveryNote)
	router.DELETE("/delivery-notes/:id", h.HandleDeleteDeliveryNote)
	router.GET("/vendors", h.HandleListVendors)
	router.GET("/vendors/:id/purchase-orders", h.HandleListVendorPurchaseOrders)
	router.GET("/vendors/:id/delivered-total", h.HandleVendorDeliveredTotal)
}
