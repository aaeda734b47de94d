package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-bursaries/models"
)

// DualWriter outputs the workbook and a CSV copy of the same rows.
type DualWriter struct {
	xlsxWriter *XLSXWriter
	csvWriter  *CSVWriter
	mu         sync.Mutex
}

// NewDualWriter creates a writer for both xlsx and CSV output.
func NewDualWriter(xlsxFilename, csvFilename string) (*DualWriter, error) {
	xlsxWriter, err := NewXLSXWriter(xlsxFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create xlsx writer: %w", err)
	}

	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		xlsxWriter.file.Close()
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}

	return &DualWriter{
		xlsxWriter: xlsxWriter,
		csvWriter:  csvWriter,
	}, nil
}

// Write writes records to both outputs.
func (dw *DualWriter) Write(records []*models.BursaryRecord) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.xlsxWriter.Write(records); err != nil {
		return fmt.Errorf("xlsx write failed: %w", err)
	}
	if err := dw.csvWriter.Write(records); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}
	return nil
}

// Close closes both writers
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.xlsxWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("xlsx close failed: %w", err))
	}
	if err := dw.csvWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("CSV close failed: %w", err))
	}
	return errors.Join(errs...)
}

// Validate validates both outputs
func (dw *DualWriter) Validate() error {
	var errs []error
	if err := dw.xlsxWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("xlsx validation failed: %w", err))
	}
	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("CSV validation failed: %w", err))
	}
	return errors.Join(errs...)
}
