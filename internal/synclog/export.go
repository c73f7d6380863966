package synclog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ExportConfig holds configuration for the export service.
type ExportConfig struct {
	// RetentionDays is how many days of sync-log rows to keep. Default: 90.
	RetentionDays int

	// ExportOnStart runs an export immediately on service start.
	ExportOnStart bool

	// ReportName identifies this deployment in report captions.
	ReportName string
}

// DefaultExportConfig returns sensible defaults.
func DefaultExportConfig() *ExportConfig {
	return &ExportConfig{
		RetentionDays: 90,
		ReportName:    "studiodesk",
	}
}

// TableExporter provides access to exportable tables.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// ReportSender delivers the finished workbook to operators.
type ReportSender interface {
	SendDocument(ctx context.Context, filename string, data io.Reader, caption string) error
}

// Cleaner deletes sync-log rows past retention.
type Cleaner interface {
	DeleteOldSyncEntries(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ExportService runs the monthly sync-log export and retention cleanup.
type ExportService struct {
	config  *ExportConfig
	tables  TableExporter
	writer  func() ExcelWriter
	sender  ReportSender
	cleaner Cleaner
	logger  *zerolog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewExportService creates the export service.
func NewExportService(
	config *ExportConfig,
	tables TableExporter,
	writerFactory func() ExcelWriter,
	sender ReportSender,
	cleaner Cleaner,
	logger *zerolog.Logger,
) *ExportService {
	if config == nil {
		config = DefaultExportConfig()
	}
	if config.RetentionDays <= 0 {
		config.RetentionDays = 90
	}
	return &ExportService{
		config:  config,
		tables:  tables,
		writer:  writerFactory,
		sender:  sender,
		cleaner: cleaner,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the export scheduler.
func (s *ExportService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if s.config.ExportOnStart {
		go s.RunExportAndCleanup()
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().Int("retention_days", s.config.RetentionDays).Msg("sync-log export service started")
}

// Stop gracefully stops the export service.
func (s *ExportService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("sync-log export service stopped")
}

func (s *ExportService) loop() {
	defer s.wg.Done()

	nextRun := nextFirstOfMonth(time.Now())
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	s.logger.Info().Time("next_run", nextRun).Msg("sync-log export scheduled")

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			s.RunExportAndCleanup()

			nextRun = nextFirstOfMonth(time.Now())
			timer.Reset(time.Until(nextRun))
			s.logger.Info().Time("next_run", nextRun).Msg("sync-log export scheduled")
		}
	}
}

func nextFirstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}

// ReportFilename names the workbook for the month containing t.
func ReportFilename(t time.Time) string {
	return fmt.Sprintf("sync_log_%s.xlsx", t.Format("2006-01"))
}

// RunExportAndCleanup performs the export and cleanup immediately.
func (s *ExportService) RunExportAndCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := s.exportData(ctx); err != nil {
		s.logger.Error().Err(err).Msg("sync-log export failed")
	}
	if err := s.cleanupOldData(ctx); err != nil {
		s.logger.Error().Err(err).Msg("sync-log cleanup failed")
	}
}

func (s *ExportService) exportData(ctx context.Context) error {
	if s.tables == nil || s.writer == nil {
		return fmt.Errorf("exporter or writer not configured")
	}

	tables, err := s.tables.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}
	if len(tables) == 0 {
		s.logger.Info().Msg("no tables to export")
		return nil
	}

	excel := s.writer()
	if excel == nil {
		return fmt.Errorf("failed to create excel writer")
	}
	defer func() { _ = excel.Close() }()

	for _, tableName := range tables {
		data, columns, err := s.tables.GetTableData(ctx, tableName)
		if err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("failed to read table")
			continue
		}

		if err := excel.AddSheet(tableName); err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("failed to add sheet")
			continue
		}
		if err := excel.WriteHeader(columns); err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("failed to write header")
			continue
		}

		for _, row := range data {
			rowData := make([]interface{}, len(columns))
			for i, col := range columns {
				rowData[i] = row[col]
			}
			if err := excel.WriteRow(rowData); err != nil {
				s.logger.Error().Err(err).Str("table", tableName).Msg("failed to write row")
			}
		}

		s.logger.Debug().Str("table", tableName).Int("rows", len(data)).Msg("exported table")
	}

	var buf bytes.Buffer
	if err := excel.Save(&buf); err != nil {
		return fmt.Errorf("save excel: %w", err)
	}

	if s.sender != nil {
		filename := ReportFilename(time.Now().AddDate(0, -1, 0))
		caption := fmt.Sprintf("Monthly sync report: %s", s.config.ReportName)
		if err := s.sender.SendDocument(ctx, filename, &buf, caption); err != nil {
			return fmt.Errorf("send report: %w", err)
		}
		s.logger.Info().Str("filename", filename).Msg("sync report sent")
	}

	return nil
}

func (s *ExportService) cleanupOldData(ctx context.Context) error {
	if s.cleaner == nil {
		return nil
	}

	retention := time.Duration(s.config.RetentionDays) * 24 * time.Hour
	deleted, err := s.cleaner.DeleteOldSyncEntries(ctx, retention)
	if err != nil {
		return fmt.Errorf("delete old sync entries: %w", err)
	}

	s.logger.Info().
		Int64("deleted_count", deleted).
		Int("retention_days", s.config.RetentionDays).
		Msg("cleaned up old sync entries")
	return nil
}

// ExportNow triggers an immediate export (useful for tests and manual runs).
func (s *ExportService) ExportNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	return s.exportData(ctx)
}

// CleanupNow triggers an immediate cleanup.
func (s *ExportService) CleanupNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return s.cleanupOldData(ctx)
}
