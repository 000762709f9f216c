package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"repairer-discovery/models"
)

var csvHeader = []string{
	"source", "name", "address", "city", "postal_code", "phone", "email", "website",
	"is_repairer", "confidence", "method", "quality_score", "price_range", "services", "specialties",
	"lat", "lng", "accuracy", "scraped_at",
}

var _ ProcessedWriter = (*CSVWriter)(nil)

// CSVWriter exports processed repairers to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteProcessed appends one row per processed repairer.
func (c *CSVWriter) WriteProcessed(batch []*models.ProcessedRepairer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range batch {
		if err := c.writer.Write(processedRow(p)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

func processedRow(p *models.ProcessedRepairer) []string {
	return []string{
		string(p.Source),
		p.Name,
		p.Address,
		p.City,
		p.PostalCode,
		p.Phone,
		p.Email,
		p.Website,
		strconv.FormatBool(p.IsRepairer),
		strconv.FormatFloat(p.ConfidenceScore, 'f', 2, 64),
		string(p.Method),
		strconv.Itoa(p.QualityScore),
		string(p.PriceRange),
		strings.Join(p.Services, "; "),
		strings.Join(p.Specialties, "; "),
		strconv.FormatFloat(p.Lat, 'f', 6, 64),
		strconv.FormatFloat(p.Lng, 'f', 6, 64),
		string(p.Accuracy),
		p.ScrapedAt.Format(time.RFC3339),
	}
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
