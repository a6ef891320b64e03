package archive

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/claresloggett/nightscout-backup/internal/model"
)

// ParquetWriter is the alternative archive format. Schemas here are only
// known at runtime (column set depends on the data), so the typed writer is
// no use; the metadata-driven CSV writer takes the column list as strings.
// Every column is an optional UTF8 byte array — cells keep the same textual
// rendering as the CSV format, nulls become parquet NULLs.
type ParquetWriter struct {
	compression string // SNAPPY, ZSTD or GZIP
	parallel    int64
}

func NewParquetWriter(compression string) *ParquetWriter {
	return &ParquetWriter{compression: compression, parallel: 4}
}

func (w *ParquetWriter) Extension() string { return ".parquet" }

func (w *ParquetWriter) WriteTable(table *model.Table, path string) error {
	columns := parquetColumnNames(table.Columns())
	md := make([]string, 0, len(columns))
	for _, col := range columns {
		md = append(md, fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", col))
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	pw, err := writer.NewCSVWriter(md, fw, w.parallel)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}

	switch w.compression {
	case "ZSTD":
		pw.CompressionType = parquet.CompressionCodec_ZSTD
	case "GZIP":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	}

	srcColumns := table.Columns()
	for i := 0; i < table.NumRows(); i++ {
		row := make([]*string, len(srcColumns))
		for j, col := range srcColumns {
			cell, ok := table.Cell(i, col)
			if !ok {
				continue
			}
			if s, ok := FormatCell(cell); ok {
				row[j] = &s
			}
		}
		if err := pw.WriteString(row); err != nil {
			_ = fw.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return fw.Close()
}

var parquetNameRe = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// parquetColumnNames sanitizes column names for the parquet schema metadata
// (spaces, '=' and ',' would corrupt the tag syntax) and disambiguates any
// collisions the sanitization introduces.
func parquetColumnNames(columns []string) []string {
	out := make([]string, 0, len(columns))
	used := make(map[string]int, len(columns))
	for _, col := range columns {
		name := parquetNameRe.ReplaceAllString(strings.TrimSpace(col), "_")
		name = strings.Trim(name, "_")
		if name == "" {
			name = "field"
		}
		if n, ok := used[name]; ok {
			used[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		used[name] = 1
		out = append(out, name)
	}
	return out
}
