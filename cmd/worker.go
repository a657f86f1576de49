package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/messaging"
	"example.com/backstage/services/procurement/internal/repositories"
	"example.com/backstage/services/procurement/internal/search"
	"example.com/backstage/services/procurement/internal/services"
	"example.com/backstage/services/procurement/internal/storage"
	"example.com/backstage/services/procurement/internal/tracing"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to process virus scan results from Azure Service Bus and requeue stale scans`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

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

	// Initialize Elasticsearch client. The indexer interface must stay
	// nil when the client is nil, or the service's nil check never fires.
	var fileIndexer services.FileAttachmentIndexer
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}
	if elasticClient != nil {
		fileIndexer = elasticClient
	}

	// Initialize object storage
	objectStore, err := storage.NewS3Store(ctx, cfg.S3)
	if err != nil {
		return errors.Wrap(err, "failed to initialize object storage")
	}

	// Initialize Service Bus publisher for domain events
	publisher, err := messaging.NewServiceBusClient(cfg.Azure, cfg.Azure.EventQueueName, "worker")
	if err != nil {
		return errors.Wrap(err, "failed to initialize Service Bus client")
	}
	defer publisher.Close()

	// Initialize the file service used by the scan result processor
	fileRepo := repositories.NewFileAttachmentRepository(db, readOnlyDB)
	invoiceRepo := repositories.NewInvoiceRepository(db, readOnlyDB)
	fileService := services.NewFileService(fileRepo, invoiceRepo, objectStore, publisher, fileIndexer, redisCache, tracer)

	// Initialize the scan result receiver
	receiver, err := messaging.NewReceiver(cfg.Azure.ConnectionString, cfg.Azure.ScanQueueName)
	if err != nil {
		return errors.Wrap(err, "failed to initialize Service Bus receiver")
	}

	// Start the scan result processor
	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.ScanQueueName).Msg("Starting virus scan result processor")
		return receiver.Run(ctx, messaging.NewScanResultProcessor(fileService))
	})

	// Start the stale scan requeue cron job as a fallback mechanism
	g.Go(func() error {
		log.Info().
			Dur("interval", cfg.Worker.ScanRequeueInterval).
			Msg("Starting stale scan requeue cron job as fallback mechanism")

		// Create a scheduler
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		// Requeue uploads whose scan result never arrived
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.ScanRequeueInterval),
			gocron.NewTask(func() {
				requeued, err := fileService.RequeueStaleScans(ctx, cfg.Worker.ScanRequeueAfter)
				if err != nil {
					log.Error().Err(err).Msg("Failed to requeue stale scans")
					return
				}
				if requeued > 0 {
					log.Info().Int("count", requeued).Msg("Requeued stale virus scans")
				}
			}),
		)
		if err != nil {
			return err
		}

		// Start the scheduler
		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		// Shutdown the scheduler
		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
