package handlers

import (
	"io"
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

// FileHandler handles file attachment HTTP requests
type FileHandler struct {
	fileService *services.FileService
	metrics     *metrics.Metrics
	tracer      tracing.Tracer
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService *services.FileService, metrics *metrics.Metrics, tracer tracing.Tracer) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		metrics:     metrics,
		tracer:      tracer,
	}
}

// FileAttachmentResponse represents a file attachment
type FileAttachmentResponse struct {
	ID         uuid.UUID `json:"id"`
	S3Key      string    `json:"s3_key"`
	Filename   string    `json:"filename"`
	Extension  string    `json:"extension"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	Size       string    `json:"size"`
	Checksum   string    `json:"checksum"`
	ScanStatus string    `json:"virus_scan_status"`
	Safe       bool      `json:"safe"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
	Version    int       `json:"version"`
}

// FileVersionResponse represents one frozen prior version
type FileVersionResponse struct {
	ID            uuid.UUID `json:"id"`
	VersionNumber int       `json:"version_number"`
	S3Key         string    `json:"s3_key"`
	Checksum      string    `json:"checksum"`
	SizeBytes     int64     `json:"size_bytes"`
	ReplacedBy    string    `json:"replaced_by"`
	ReplacedAt    time.Time `json:"replaced_at"`
	Reason        string    `json:"reason,omitempty"`
}

// ScanResultRequest carries a scan verdict for a pending file
type ScanResultRequest struct {
	Result string `json:"result" binding:"required"`
}

// AttachFileRequest links an existing file to an invoice
type AttachFileRequest struct {
	FileID uuid.UUID `json:"file_id" binding:"required"`
}

func toFileAttachmentResponse(file *domain.FileAttachment) FileAttachmentResponse {
	return FileAttachmentResponse{
		ID:         file.ID(),
		S3Key:      file.Key().String(),
		Filename:   file.Metadata().Filename(),
		Extension:  file.FileExtension(),
		MimeType:   file.Metadata().MimeType(),
		SizeBytes:  file.Metadata().SizeBytes(),
		Size:       file.HumanReadableSize(),
		Checksum:   file.Checksum().String(),
		ScanStatus: file.ScanStatus().String(),
		Safe:       file.IsSafe(),
		UploadedBy: file.UploadedBy(),
		UploadedAt: file.UploadedAt(),
		Version:    file.Version(),
	}
}

func toFileAttachmentResponses(files []*domain.FileAttachment) []FileAttachmentResponse {
	responses := make([]FileAttachmentResponse, 0, len(files))
	for _, file := range files {
		responses = append(responses, toFileAttachmentResponse(file))
	}
	return responses
}

func readUpload(c *gin.Context) ([]byte, string, string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", "", err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, "", "", err
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, "", "", err
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	return content, fileHeader.Filename, mimeType, nil
}

// HandleUploadFile accepts a multipart upload and registers the file
// with a pending virus scan.
func (h *FileHandler) HandleUploadFile(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-upload-file")
	defer h.tracer.EndTransaction(txn)

	content, filename, mimeType, err := readUpload(c)
	if err != nil {
		log.Error().Err(err).Msg("Invalid upload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	uploadedBy := c.PostForm("uploaded_by")
	prefix := c.DefaultPostForm("prefix", "attachments")
	h.tracer.AddAttribute(txn, "filename", filename)
	h.tracer.AddAttribute(txn, "size_bytes", len(content))

	file, err := h.fileService.Upload(c, services.UploadFileCommand{
		Prefix:     prefix,
		Filename:   filename,
		MimeType:   mimeType,
		Content:    content,
		UploadedBy: uploadedBy,
	})
	if err != nil {
		h.metrics.RecordError("upload_file")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	h.metrics.RecordSuccess("upload_file")
	h.metrics.IncrementCounter("files_uploaded")
	h.metrics.IncrementCounterBy("bytes_uploaded", file.Metadata().SizeBytes())
	c.JSON(http.StatusCreated, toFileAttachmentResponse(file))
}

// HandleGetFile returns one file attachment by id
func (h *FileHandler) HandleGetFile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	file, err := h.fileService.GetFile(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFileAttachmentResponse(file))
}

// HandleGetDownloadURL returns a presigned URL for a clean file
func (h *FileHandler) HandleGetDownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	url, err := h.fileService.DownloadURL(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// HandleDownloadContent streams the file content after checksum
// verification.
func (h *FileHandler) HandleDownloadContent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	content, file, err := h.fileService.Download(c, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Metadata().Filename()+`"`)
	c.Data(http.StatusOK, file.Metadata().MimeType(), content)
}

// HandleReplaceFile supersedes a file's content with a new upload
func (h *FileHandler) HandleReplaceFile(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-replace-file")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	content, filename, mimeType, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := h.fileService.Replace(c, id, services.ReplaceFileCommand{
		Filename:   filename,
		MimeType:   mimeType,
		Content:    content,
		ReplacedBy: c.PostForm("replaced_by"),
		Reason:     c.PostForm("reason"),
	})
	if err != nil {
		h.metrics.RecordError("replace_file")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	h.metrics.RecordSuccess("replace_file")
	h.metrics.IncrementCounter("files_replaced")
	c.JSON(http.StatusOK, toFileAttachmentResponse(file))
}

// HandleScanResult applies a scan verdict to a pending file. Normally
// verdicts arrive through the scan queue; this endpoint covers manual
// remediation.
func (h *FileHandler) HandleScanResult(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-file-scan-result")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	var req ScanResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := domain.NewVirusScanStatus(req.Result)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.fileService.CompleteScan(c, id, result); err != nil {
		h.metrics.RecordError("complete_scan")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	h.metrics.RecordSuccess("complete_scan")
	h.metrics.IncrementCounter("scans_completed")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleListFiles lists files filtered by scan status, uploader or
// upload date range.
func (h *FileHandler) HandleListFiles(c *gin.Context) {
	if uploadedBy := c.Query("uploaded_by"); uploadedBy != "" {
		files, err := h.fileService.ListByUploader(c, uploadedBy)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toFileAttachmentResponses(files))
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
		files, err := h.fileService.ListByUploadDateRange(c, fromTime, toTime)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toFileAttachmentResponses(files))
		return
	}

	switch c.DefaultQuery("scan_status", "PENDING") {
	case "INFECTED":
		files, err := h.fileService.ListInfected(c)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toFileAttachmentResponses(files))
	default:
		files, err := h.fileService.ListPendingScans(c)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toFileAttachmentResponses(files))
	}
}

// HandleListVersions lists a file's prior versions
func (h *FileHandler) HandleListVersions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	versions, err := h.fileService.Versions(c, id)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]FileVersionResponse, 0, len(versions))
	for _, v := range versions {
		responses = append(responses, FileVersionResponse{
			ID:            v.ID(),
			VersionNumber: v.VersionNumber(),
			S3Key:         v.Key().String(),
			Checksum:      v.Checksum().String(),
			SizeBytes:     v.SizeBytes(),
			ReplacedBy:    v.ReplacedBy(),
			ReplacedAt:    v.ReplacedAt(),
			Reason:        v.Reason(),
		})
	}
	c.JSON(http.StatusOK, responses)
}

// HandleUploaderUsage sums the stored bytes for one uploader
func (h *FileHandler) HandleUploaderUsage(c *gin.Context) {
	uploadedBy := c.Query("uploaded_by")
	if uploadedBy == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded_by is required"})
		return
	}

	total, err := h.fileService.UploaderUsage(c, uploadedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploaded_by": uploadedBy, "total_size_bytes": total})
}

// HandleGetStorageMetadata reports what the object store holds for the
// file, for reconciling the record against the blob.
func (h *FileHandler) HandleGetStorageMetadata(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	meta, err := h.fileService.StorageMetadata(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

// HandleAttachToInvoice links a clean file to an invoice
func (h *FileHandler) HandleAttachToInvoice(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-attach-file-to-invoice")
	defer h.tracer.EndTransaction(txn)

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	var req AttachFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.fileService.AttachToInvoice(c, invoiceID, req.FileID); err != nil {
		h.metrics.RecordError("attach_file_to_invoice")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	h.metrics.RecordSuccess("attach_file_to_invoice")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RegisterRoutes registers the handler's routes
func (h *FileHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/files", h.HandleUploadFile)
	router.GET("/files", h.HandleListFiles)
	router.GET("/files/usage", h.HandleUploaderUsage)
	router.GET("/files/:id", h.HandleGetFile)
	router.GET("/files/:id/download-url", h.HandleGetDownloadURL)
	router.GET("/files/:id/content", h.HandleDownloadContent)
	router.GET("/files/:id/storage", h.HandleGetStorageMetadata)
	router.GET("/files/:id/versions", h.HandleListVersions)
	router.PUT("/files/:id", h.HandleReplaceFile)
	router.POST("/files/:id/scan-result", h.HandleScanResult)
	router.POST("/invoices/:id/attachment", h.HandleAttachToInvoice)
}
