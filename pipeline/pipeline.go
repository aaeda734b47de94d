package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-bursaries/config"
	"github.com/aluiziolira/go-scrape-bursaries/models"
	"github.com/aluiziolira/go-scrape-bursaries/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []*models.BursaryRecord) error
	Close() error
	Validate() error
}

// WriterFactory opens the output. It is only called when there is something
// to write, so an empty run leaves no file behind.
type WriterFactory func() (OutputWriter, error)

// Pipeline validates, de-duplicates and optionally freshness-filters records,
// then writes them sorted by last-updated date on Close.
type Pipeline struct {
	open      WriterFactory
	batchSize int
	freshOnly bool
	cutoff    time.Time

	seen *lru.Cache[string, struct{}]

	metrics metrics

	mu      sync.Mutex // guards records/closed/written
	records []*models.BursaryRecord
	closed  bool
	written int
}

// NewPipeline builds a pipeline. now anchors the freshness cutoff.
func NewPipeline(open WriterFactory, cfg *config.Config, now time.Time) (*Pipeline, error) {
	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Pipeline{
		open:      open,
		batchSize: batchSize,
		freshOnly: cfg.FreshOnly,
		cutoff:    cfg.Cutoff(now),
		seen:      seen,
		metrics:   newMetrics(),
	}, nil
}

// Process accepts records for output.
func (p *Pipeline) Process(records ...*models.BursaryRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPipelineClosed
	}

	for _, record := range records {
		if record == nil {
			continue
		}
		if prepared := p.prepare(record); prepared != nil {
			p.records = append(p.records, prepared)
		}
	}
	return nil
}

// Close sorts the accepted records and writes them. With no records the
// writer is never opened.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPipelineClosed
	}
	p.closed = true
	records := p.records
	p.mu.Unlock()

	SortByLastUpdated(records)
	if len(records) == 0 {
		slog.Info("no records to write")
		return nil
	}

	writer, err := p.open()
	if err != nil {
		return fmt.Errorf("open writer: %w", err)
	}

	for start := 0; start < len(records); start += p.batchSize {
		end := min(start+p.batchSize, len(records))
		if err := writer.Write(records[start:end]); err != nil {
			writer.Close()
			return fmt.Errorf("write batch: %w", err)
		}
		p.mu.Lock()
		p.written += end - start
		p.mu.Unlock()
	}

	if err := writer.Validate(); err != nil {
		writer.Close()
		return fmt.Errorf("validate output: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Records returns the accepted records; sorted once Close has run.
func (p *Pipeline) Records() []*models.BursaryRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*models.BursaryRecord, len(p.records))
	copy(out, p.records)
	return out
}

// Written reports how many records reached the writer.
func (p *Pipeline) Written() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) prepare(record *models.BursaryRecord) *models.BursaryRecord {
	if err := parser.ValidateRecord(record); err != nil {
		slog.Debug("dropping invalid record", slog.Any("error", err))
		p.metrics.addValidation("invalid_record")
		return nil
	}

	if seen, _ := p.seen.ContainsOrAdd(record.URL, struct{}{}); seen {
		p.metrics.addValidation("duplicate_url")
		return nil
	}

	if p.freshOnly && !IsFresh(record.LastUpdated.String(), p.cutoff) {
		p.metrics.addValidation("stale")
		return nil
	}

	p.metrics.incrementProcessed()
	return record
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_records": m.processed,
		"validation_errors": copyValidation,
	}
}
