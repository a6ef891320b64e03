package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/claresloggett/nightscout-backup/internal/archive"
	"github.com/claresloggett/nightscout-backup/internal/broker"
	"github.com/claresloggett/nightscout-backup/internal/client"
	"github.com/claresloggett/nightscout-backup/internal/config"
	"github.com/claresloggett/nightscout-backup/internal/data"
	"github.com/claresloggett/nightscout-backup/internal/database"
	"github.com/claresloggett/nightscout-backup/internal/model"
	"github.com/claresloggett/nightscout-backup/internal/storage"
)

const (
	entriesCollection    = "entries"
	entriesDateField     = "dateString"
	treatmentsCollection = "treatments"
	treatmentsDateField  = "created_at"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("[boot] configuração inválida: %v", err)
	}
	logger.Printf("[boot] nightscout backup configs loaded:%s", cfg)

	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	logger.Printf("[boot] run id: %s", runID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupGracefulShutdown(cancel, logger)

	ns := client.NewNightscout(cfg.BaseURL, time.Duration(cfg.HTTPTimeoutSec)*time.Second, logger)
	paginator := data.NewPaginator(ns, cfg.BatchSize, cfg.MaxRecords, logger)

	var sink archive.Writer
	if cfg.ArchiveFormat == "parquet" {
		sink = archive.NewParquetWriter(cfg.ParquetCompression)
	} else {
		sink = archive.NewCSVWriter(cfg.CSVDelimiter, cfg.CSVQuote, cfg.CSVEscape)
	}

	var s3 *storage.Client
	if cfg.S3Enabled() {
		s3, err = storage.NewMinIO(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseTLS, cfg.S3Bucket)
		if err != nil {
			logger.Fatalf("[boot] s3 client error: %v", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			logger.Fatalf("[boot] ensure bucket error: %v", err)
		}
	}

	var relay *broker.Relay
	if cfg.KafkaEnabled() {
		relay = broker.NewRelay(cfg.KafkaBrokers, cfg.KafkaTopic, runID, logger)
		defer relay.Close()
	}

	var influx *database.InfluxDB
	if cfg.InfluxEnabled() {
		influx = database.NewInfluxDB(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
		defer influx.Close()
	}

	upload := func(fileName, path string) {
		if s3 == nil {
			return
		}
		objPath := storage.BuildObjectPath(cfg.S3BasePath, startedAt, runID, fileName)
		if err := s3.UploadFile(ctx, objPath, path); err != nil {
			logger.Fatalf("[s3] upload %s error: %v", fileName, err)
		}
		logger.Printf("[s3] uploaded %s", objPath)
	}

	// BGL entries: one table over the full merged set
	logger.Printf("[entries] retrieving BGL entries")
	entries, err := paginator.Paginate(ctx, entriesCollection, entriesDateField)
	if err != nil {
		logger.Fatalf("[entries] %v", err)
	}

	entriesTable := model.BuildTable(entries)
	entriesFile := archive.EntriesFileName(sink.Extension())
	entriesPath := filepath.Join(cfg.OutputDir, entriesFile)
	logger.Printf("[entries] saving %d records (%d columns) to %s",
		entriesTable.NumRows(), len(entriesTable.Columns()), entriesPath)
	if err := sink.WriteTable(entriesTable, entriesPath); err != nil {
		logger.Fatalf("[entries] %v", err)
	}
	upload(entriesFile, entriesPath)

	if relay != nil {
		if err := relay.PublishRecords(ctx, entriesCollection, entries); err != nil {
			logger.Fatalf("[kafka] relay entries error: %v", err)
		}
	}
	if influx != nil {
		if err := influx.WriteEntries(ctx, cfg.InfluxMeasurement, entriesDateField, entries); err != nil {
			logger.Fatalf("[influx] load entries error: %v", err)
		}
		logger.Printf("[influx] loaded %d entries into %s", len(entries), cfg.InfluxBucket)
	}

	// Treatments: one table (and one archive) per event type
	logger.Printf("[treatments] retrieving treatments")
	treatments, err := paginator.Paginate(ctx, treatmentsCollection, treatmentsDateField)
	if err != nil {
		logger.Fatalf("[treatments] %v", err)
	}

	// relay before splitting: the splitter rewrites records in place when
	// flattening, and downstream consumers want the raw wire shape
	if relay != nil {
		if err := relay.PublishRecords(ctx, treatmentsCollection, treatments); err != nil {
			logger.Fatalf("[kafka] relay treatments error: %v", err)
		}
	}

	tables, err := data.SplitByEventType(treatments)
	if err != nil {
		logger.Fatalf("[treatments] %v", err)
	}

	eventTypes := make([]string, 0, len(tables))
	for et := range tables {
		eventTypes = append(eventTypes, et)
	}
	sort.Strings(eventTypes)

	for _, et := range eventTypes {
		table := tables[et]
		fileName := archive.TreatmentFileName(et, cfg.UnderscoreNames, sink.Extension())
		path := filepath.Join(cfg.OutputDir, fileName)
		logger.Printf("[treatments] saving %q: %d records (%d columns) to %s",
			et, table.NumRows(), len(table.Columns()), path)
		if err := sink.WriteTable(table, path); err != nil {
			logger.Fatalf("[treatments] %v", err)
		}
		upload(fileName, path)
	}

	logger.Printf("[done] backup finished in %s", time.Since(startedAt).Round(time.Millisecond))
}

func setupGracefulShutdown(cancel context.CancelFunc, logger *log.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		logger.Printf("\nreceived signal: %v — shutting down...", s)
		cancel()
	}()
}
