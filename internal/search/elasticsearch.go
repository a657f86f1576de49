package search

import (
	"bytes"
	"context"
	"encoding/json"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/domain"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	deliveryNoteIndex   = "delivery-notes"
	fileAttachmentIndex = "file-attachments"
)

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// IndexDeliveryNote indexes a delivery note in Elasticsearch
func (c *ElasticClient) IndexDeliveryNote(ctx context.Context, note *domain.DeliveryNote) error {
	log.Info().Str("delivery_note_id", note.ID().String()).Msg("indexing delivery note")

	items := note.Items()
	itemDocs := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		itemDocs = append(itemDocs, map[string]interface{}{
			"id":                 item.ID().String(),
			"item_id":            item.ItemID().String(),
			"quantity_ordered":   item.QuantityOrdered(),
			"quantity_delivered": item.QuantityDelivered(),
			"condition":          item.Condition().String(),
			"discrepancy":        item.Discrepancy().Discrepancy(),
			"has_issues":         item.HasIssues(),
		})
	}

	// Build the document to be indexed
	doc := map[string]interface{}{
		"id":                   note.ID().String(),
		"delivery_note_number": note.Number(),
		"purchase_order_id":    note.PurchaseOrderID().String(),
		"vendor_id":            note.VendorID().String(),
		"received_by":          note.ReceivedBy(),
		"delivery_date":        note.DeliveryDate(),
		"status":               note.Status().String(),
		"has_issues":           note.HasAnyIssues(),
		"total_delivered":      note.TotalQuantityDelivered(),
		"total_effective":      note.TotalEffectiveQuantity(),
		"items":                itemDocs,
	}

	return c.index(ctx, deliveryNoteIndex, note.ID().String(), doc)
}

// IndexFileAttachment indexes a file attachment in Elasticsearch
func (c *ElasticClient) IndexFileAttachment(ctx context.Context, file *domain.FileAttachment) error {
	log.Info().Str("file_id", file.ID().String()).Msg("indexing file attachment")

	doc := map[string]interface{}{
		"id":                file.ID().String(),
		"s3_key":            file.Key().String(),
		"filename":          file.Metadata().Filename(),
		"extension":         file.FileExtension(),
		"mime_type":         file.Metadata().MimeType(),
		"size_bytes":        file.Metadata().SizeBytes(),
		"virus_scan_status": file.ScanStatus().String(),
		"uploaded_by":       file.UploadedBy(),
		"uploaded_at":       file.UploadedAt(),
		"version":           file.Version(),
		"safe":              file.IsSafe(),
	}

	return c.index(ctx, fileAttachmentIndex, file.ID().String(), doc)
}

func (c *ElasticClient) index(ctx context.Context, index, documentID string, doc map[string]interface{}) error {
	// Marshall the document to JSON
	docJson, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal document")
	}

	// Prepare the index request
	indexName := config.FormatIndex(c.config, index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: documentID,
		Body:       bytes.NewReader(docJson),
		Refresh:    "true",
	}

	// Execute the request
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	// Check for errors in the response
	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	return nil
}

// SearchDeliveryNotes searches delivery notes with the given criteria
func (c *ElasticClient) SearchDeliveryNotes(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	return c.search(ctx, deliveryNoteIndex, query)
}

// SearchFileAttachments searches file attachments with the given criteria
func (c *ElasticClient) SearchFileAttachments(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	return c.search(ctx, fileAttachmentIndex, query)
}

func (c *ElasticClient) search(ctx context.Context, index string, query map[string]interface{}) ([]map[string]interface{}, error) {
	// Convert query to JSON
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	// Prepare the search request
	indexName := config.FormatIndex(c.config, index)
	req := esapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	// Execute the request
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	// Check for errors in the response
	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	// Parse the response
	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	// Extract the hits
	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected search result format")
	}

	hitsArray, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, errors.New("unexpected hits format")
	}

	// Extract the documents
	var docs []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}

		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}

		docs = append(docs, source)
	}

	return docs, nil
}
