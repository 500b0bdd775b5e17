// pkg/source/csv.go
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// CSVSource reads a dataset from a local CSV file
type CSVSource struct {
	path   string
	table  string
	logger *zap.Logger
}

// NewCSVSource creates a CSV-backed dataset source
func NewCSVSource(path, table string, logger *zap.Logger) (*CSVSource, error) {
	if path == "" {
		return nil, errors.New("csv path cannot be empty")
	}
	if table == "" {
		return nil, errors.New("table name cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &CSVSource{
		path:   path,
		table:  table,
		logger: logger.Named("csv-source"),
	}, nil
}

// Validate verifies the file exists and is a regular file
func (s *CSVSource) Validate(ctx context.Context) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("csv file not accessible: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a csv file", s.path)
	}
	return nil
}

// Fetch reads the whole file into a table. Cells after a delimiter
// may carry a leading space, empty cells become nulls, and columns
// whose every value parses as a number are promoted to numeric cells.
// A row whose width differs from the header is a schema mismatch and
// fails the read.
func (s *CSVSource) Fetch(ctx context.Context) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file %s is empty", s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	fields := make([]string, 0, len(header))
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q in csv header: %w", name, model.ErrSchemaMismatch)
		}
		seen[name] = true
		fields = append(fields, name)
	}

	t := model.NewTable(s.table, fields)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("csv row does not match the header: %v: %w", err, model.ErrSchemaMismatch)
			}
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}

		rec := make(model.Record, len(fields))
		for i, cell := range row {
			rec[fields[i]] = parseCell(cell)
		}
		t.Append(rec)
	}

	inferColumns(t)

	s.logger.Info("Loaded dataset from CSV",
		zap.String("path", s.path),
		zap.Int("rows", t.RowCount()),
		zap.Int("columns", len(t.Fields)))

	return t, nil
}

// Close releases nothing; the file handle never outlives Fetch
func (s *CSVSource) Close() error {
	return nil
}

// ExportCSV writes a table to a CSV file, creating parent directories
// as needed. Null cells are written as empty strings.
func ExportCSV(t *model.Table, path string) error {
	if t == nil {
		return errors.New("table cannot be nil")
	}
	if path == "" {
		return errors.New("output path cannot be empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(t.Fields); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(t.Fields))
	for _, rec := range t.Records {
		for i, field := range t.Fields {
			if model.IsNull(rec[field]) {
				row[i] = ""
				continue
			}
			row[i] = model.ToString(rec[field])
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv output: %w", err)
	}
	return nil
}
