package controlloop

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVHeader is the column layout written by CSVWriter.
var CSVHeader = []string{"frame", "elapsed_s", "speed_mps", "personality", "min_accel", "max_accel"}

// CSVWriter writes samples as CSV rows.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a CSVWriter and writes the header row.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	c := &CSVWriter{w: csv.NewWriter(w)}
	if err := c.w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	return c, nil
}

// Write appends one sample. Errors surface from Flush.
func (c *CSVWriter) Write(s Sample) {
	c.w.Write([]string{
		fmt.Sprintf("%d", s.Frame),
		fmt.Sprintf("%.3f", s.Elapsed.Seconds()),
		fmt.Sprintf("%.4f", s.Speed),
		s.Personality.String(),
		fmt.Sprintf("%.4f", s.Limits.Min),
		fmt.Sprintf("%.4f", s.Limits.Max),
	})
}

// Flush flushes buffered rows and reports any write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
