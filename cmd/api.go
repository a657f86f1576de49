package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/api"
	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/database"
	"example.com/backstage/services/procurement/internal/messaging"
	"example.com/backstage/services/procurement/internal/metrics"
	"example.com/backstage/services/procurement/internal/models"
	"example.com/backstage/services/procurement/internal/repositories"
	"example.com/backstage/services/procurement/internal/search"
	"example.com/backstage/services/procurement/internal/services"
	"example.com/backstage/services/procurement/internal/storage"
	"example.com/backstage/services/procurement/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for delivery notes and file attachments`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize database connections
	db, readOnlyDB, err := initDatabases(cfg)
	if err != nil {
		return err
	}

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	// Initialize Elasticsearch client. The indexer interfaces must stay
	// nil when the client is nil, or the services' nil checks never fire.
	var noteIndexer services.DeliveryNoteIndexer
	var fileIndexer services.FileAttachmentIndexer
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}
	if elasticClient != nil {
		noteIndexer = elasticClient
		fileIndexer = elasticClient
	}

	// Initialize object storage
	objectStore, err := storage.NewS3Store(ctx, cfg.S3)
	if err != nil {
		return errors.Wrap(err, "failed to initialize object storage")
	}

	// Initialize Service Bus publisher for domain events
	publisher, err := messaging.NewServiceBusClient(cfg.Azure, cfg.Azure.EventQueueName, "api")
	if err != nil {
		return errors.Wrap(err, "failed to initialize Service Bus client")
	}
	defer publisher.Close()

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize repositories and services
	noteRepo := repositories.NewDeliveryNoteRepository(db, readOnlyDB)
	fileRepo := repositories.NewFileAttachmentRepository(db, readOnlyDB)
	vendorRepo := repositories.NewVendorRepository(db, readOnlyDB)
	orderRepo := repositories.NewPurchaseOrderRepository(db, readOnlyDB)
	invoiceRepo := repositories.NewInvoiceRepository(db, readOnlyDB)

	deliveryService := services.NewDeliveryService(noteRepo, vendorRepo, orderRepo, publisher, noteIndexer, redisCache, tracer)
	fileService := services.NewFileService(fileRepo, invoiceRepo, objectStore, publisher, fileIndexer, redisCache, tracer)

	// Initialize and start the server
	server := api.NewServer(cfg, deliveryService, fileService, metricsCollector, tracer)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	// Shutdown the server
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

func initDatabases(cfg config.Config) (*gorm.DB, *gorm.DB, error) {
	// Initialize write database
	writeDB, err := database.Connect(cfg.DB.DSN, cfg.DB)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to write database")
	}

	// Initialize read-only database
	readDB, err := database.Connect(cfg.DB.ReadOnlyDSN, cfg.DB)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to read-only database")
	}

	db, err := writeDB.DB()
	if err != nil {
		return nil, nil, err
	}
	readOnlyDB, err := readDB.DB()
	if err != nil {
		return nil, nil, err
	}

	// Auto-migrate only the write database
	if err := models.SetupModels(db); err != nil {
		return nil, nil, errors.Wrap(err, "failed to run migrations")
	}

	return db, readOnlyDB, nil
}
