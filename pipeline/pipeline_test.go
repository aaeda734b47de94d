package pipeline

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-bursaries/config"
	"github.com/aluiziolira/go-scrape-bursaries/models"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]*models.BursaryRecord
	closed      bool
	validateErr error
}

func (mw *mockWriter) Write(records []*models.BursaryRecord) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	copyBatch := make([]*models.BursaryRecord, len(records))
	copy(copyBatch, records)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

func (mw *mockWriter) all() []*models.BursaryRecord {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	var out []*models.BursaryRecord
	for _, batch := range mw.batches {
		out = append(out, batch...)
	}
	return out
}

func (mw *mockWriter) batchSizes() []int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	sizes := make([]int, 0, len(mw.batches))
	for _, batch := range mw.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

var testNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func factory(w OutputWriter, opened *int) WriterFactory {
	return func() (OutputWriter, error) {
		*opened++
		return w, nil
	}
}

func record(i int, updated models.Field) *models.BursaryRecord {
	return &models.BursaryRecord{
		Title:       "Bursary " + strconv.Itoa(i),
		URL:         "http://example.test/bursary-" + strconv.Itoa(i),
		ClosingDate: models.Sentinel(models.KindOpen),
		LastUpdated: updated,
		ScrapedAt:   testNow,
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config, w OutputWriter, opened *int) *Pipeline {
	t.Helper()
	p, err := NewPipeline(factory(w, opened), cfg, testNow)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestPipelineProcessValidationAndDedup(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	opened := 0
	p := newTestPipeline(t, cfg, writer, &opened)

	valid := record(1, models.Value("2024-05-01"))
	invalid := record(2, models.Value("2024-05-01"))
	invalid.Title = ""
	relative := record(3, models.Value("2024-05-01"))
	relative.URL = "/bursary-3"
	duplicate := record(1, models.Value("2024-06-01"))
	duplicate.Title = "Bursary 1 again"

	if err := p.Process(valid, invalid, relative, duplicate, nil); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := writer.all()
	if len(got) != 1 || got[0] != valid {
		t.Fatalf("written = %v, want only the first record", got)
	}
	if !writer.closed {
		t.Fatalf("writer should be closed")
	}

	validation := p.GetMetrics()["validation_errors"].(map[string]int)
	if validation["invalid_record"] != 2 {
		t.Fatalf("invalid_record = %d, want 2", validation["invalid_record"])
	}
	if validation["duplicate_url"] != 1 {
		t.Fatalf("duplicate_url = %d, want 1", validation["duplicate_url"])
	}
}

func TestPipelineFreshOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FreshOnly = true
	writer := &mockWriter{}
	opened := 0
	p := newTestPipeline(t, cfg, writer, &opened)

	fresh := record(1, models.Value("2024-06-01"))
	stale := record(2, models.Value("2023-06-01"))
	unknown := record(3, models.Sentinel(models.KindUnknown))

	if err := p.Process(fresh, stale, unknown); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := writer.all()
	if len(got) != 1 || got[0] != fresh {
		t.Fatalf("written = %d records, want only the fresh one", len(got))
	}
	if stale := p.GetMetrics()["validation_errors"].(map[string]int)["stale"]; stale != 2 {
		t.Fatalf("stale = %d, want 2", stale)
	}
}

func TestPipelineSortsBeforeWriting(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	opened := 0
	p := newTestPipeline(t, cfg, writer, &opened)

	a := record(1, models.Sentinel(models.KindCheckLink))
	b := record(2, models.Value("2024-01-01"))
	c := record(3, models.Value("2024-06-01"))
	if err := p.Process(a, b, c); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := writer.all()
	if len(got) != 3 || got[0] != c || got[1] != b || got[2] != a {
		t.Fatalf("records not sorted newest first")
	}
	if p.Written() != 3 {
		t.Fatalf("written = %d, want 3", p.Written())
	}
}

func TestPipelineBatchFlushThreshold(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 64
	writer := &mockWriter{}
	opened := 0
	p := newTestPipeline(t, cfg, writer, &opened)

	for i := 0; i < 65; i++ {
		if err := p.Process(record(i, models.Value("2024-05-01"))); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sizes := writer.batchSizes()
	if len(sizes) != 2 || sizes[0] != 64 || sizes[1] != 1 {
		t.Fatalf("batch sizes = %v, want [64 1]", sizes)
	}
}

func TestPipelineEmptyRunOpensNoWriter(t *testing.T) {
	cfg := config.DefaultConfig()
	opened := 0
	p := newTestPipeline(t, cfg, &mockWriter{}, &opened)

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if opened != 0 {
		t.Fatalf("writer opened %d times for an empty run", opened)
	}
}

func TestPipelineClosed(t *testing.T) {
	cfg := config.DefaultConfig()
	opened := 0
	p := newTestPipeline(t, cfg, &mockWriter{}, &opened)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Process(record(1, models.Value("2024-05-01"))); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("expected ErrPipelineClosed, got %v", err)
	}
	if err := p.Close(); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("second close: expected ErrPipelineClosed, got %v", err)
	}
}

func TestPipelineValidateFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{validateErr: errors.New("empty")}
	opened := 0
	p := newTestPipeline(t, cfg, writer, &opened)
	if err := p.Process(record(1, models.Value("2024-05-01"))); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err == nil {
		t.Fatalf("expected validation error")
	}
	if !writer.closed {
		t.Fatalf("writer should be closed after a failed validation")
	}
}
