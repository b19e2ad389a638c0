package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"duapune-scraper/internal/domain/listing"

	"go.uber.org/zap"
)

const (
	csvSeparator  = ';'
	fileTimestamp = "20060102_150405"
	fileSuffix    = "duapune.csv"
)

// CSVWriter writes a RecordSet as a timestamped, fully quoted CSV file.
type CSVWriter struct {
	dir         string
	includeHTML bool
	logger      *zap.Logger
}

func NewCSVWriter(dir string, includeHTML bool, logger *zap.Logger) *CSVWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVWriter{dir: dir, includeHTML: includeHTML, logger: logger}
}

// FileName is the export path for a run started at t.
func (w *CSVWriter) FileName(t time.Time) string {
	return filepath.Join(w.dir, t.Format(fileTimestamp)+"_"+fileSuffix)
}

// Write exports set under the name of the run started at startedAt and returns
// the path written. The file appears only once it is complete.
func (w *CSVWriter) Write(set *listing.RecordSet, startedAt time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := w.FileName(startedAt)

	tmp, err := os.CreateTemp(w.dir, ".export-*.csv")
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err := WriteCSV(tmp, set, w.includeHTML); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move export file: %w", err)
	}

	w.logger.Info("csv written", zap.String("path", path), zap.Int("records", set.Len()))
	return path, nil
}

// WriteCSV writes a header row and one row per record, every value quoted.
func WriteCSV(out io.Writer, set *listing.RecordSet, includeHTML bool) error {
	bw := bufio.NewWriter(out)
	if err := writeRow(bw, listing.Columns(includeHTML)); err != nil {
		return err
	}
	for _, r := range set.Records() {
		if err := writeRow(bw, r.Values(includeHTML)); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(csvSeparator); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
		}
		if _, err := w.WriteString(quote(f)); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
