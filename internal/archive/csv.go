// Package archive writes the per-type tables out as compressed tabular
// files. The CSV dialect deliberately avoids double-quote quoting: cell
// values routinely contain embedded JSON (profile columns, unflattened
// sub-objects), so fields are quoted with a configurable quote character
// (default ') and a configurable escape character (default \).
package archive

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/claresloggett/nightscout-backup/internal/model"
)

// Writer is the table sink. Implementations produce one file per table.
type Writer interface {
	WriteTable(table *model.Table, path string) error
	Extension() string
}

type CSVWriter struct {
	delimiter byte
	quote     byte
	escape    byte
}

func NewCSVWriter(delimiter, quote, escape byte) *CSVWriter {
	return &CSVWriter{delimiter: delimiter, quote: quote, escape: escape}
}

func (w *CSVWriter) Extension() string { return ".csv.gz" }

func (w *CSVWriter) WriteTable(table *model.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	bw := bufio.NewWriter(gz)

	fail := func(err error) error {
		_ = gz.Close()
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}

	columns := table.Columns()
	for i, col := range columns {
		if i > 0 {
			if err := bw.WriteByte(w.delimiter); err != nil {
				return fail(err)
			}
		}
		if _, err := bw.WriteString(w.encodeField(col)); err != nil {
			return fail(err)
		}
	}
	if err := bw.WriteByte('\n'); err != nil {
		return fail(err)
	}

	for i := 0; i < table.NumRows(); i++ {
		for j, col := range columns {
			if j > 0 {
				if err := bw.WriteByte(w.delimiter); err != nil {
					return fail(err)
				}
			}
			cell, ok := table.Cell(i, col)
			if !ok {
				continue // null cell stays empty
			}
			s, ok := FormatCell(cell)
			if !ok {
				continue
			}
			if _, err := bw.WriteString(w.encodeField(s)); err != nil {
				return fail(err)
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fail(err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := gz.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// encodeField quotes a field only when needed: when it contains the
// delimiter, the quote or escape character, or a line break. Inside a quoted
// field the escape character prefixes itself and the quote character.
func (w *CSVWriter) encodeField(s string) string {
	if !strings.ContainsAny(s, string([]byte{w.delimiter, w.quote, w.escape, '\n', '\r'})) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(w.quote)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == w.quote || c == w.escape {
			b.WriteByte(w.escape)
		}
		b.WriteByte(c)
	}
	b.WriteByte(w.quote)
	return b.String()
}
