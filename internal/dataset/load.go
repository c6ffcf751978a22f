package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Options controls how a source is read.
type Options struct {
	// SheetName selects an XLSX sheet; empty means the first sheet.
	SheetName string
	// Delimiter for CSV. If 0, uses '\t' for .tsv sources and ',' otherwise.
	Delimiter rune
}

// Table is the raw dataset: the trimmed header and one record per data row.
type Table struct {
	Source  string
	Header  []string
	Records []RawRecord
}

// Loader reads the raw dataset from a local path or an http(s) URL.
type Loader struct {
	fetcher *Fetcher
	logger  *zap.Logger
}

// NewLoader returns a Loader. A nil fetcher gets default timeouts and retries.
func NewLoader(fetcher *Fetcher, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fetcher == nil {
		fetcher = NewFetcher(0, 0, 0, 0, logger)
	}
	return &Loader{fetcher: fetcher, logger: logger}
}

// Load reads source (a path or URL) as CSV, TSV or XLSX, chosen by extension.
func (l *Loader) Load(ctx context.Context, source string, opt Options) (*Table, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, &SourceUnavailableError{Err: errors.New("no source given")}
	}
	var data []byte
	if IsURL(source) {
		b, err := l.fetcher.Fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		data = b
	} else {
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, &SourceUnavailableError{Source: source, Err: err}
		}
		data = b
	}

	ext := sourceExt(source)
	var (
		header  []string
		records []RawRecord
		err     error
	)
	switch ext {
	case ".xlsx":
		header, records, err = ReadXLSX(bytes.NewReader(data), opt.SheetName)
	default:
		delim := opt.Delimiter
		if delim == 0 && ext == ".tsv" {
			delim = '\t'
		}
		header, records, err = ReadCSV(bytes.NewReader(data), delim)
	}
	if err != nil {
		var se *SourceUnavailableError
		if errors.As(err, &se) && se.Source == "" {
			se.Source = source
		}
		return nil, err
	}
	l.logger.Info("loaded dataset",
		zap.String("source", source),
		zap.String("format", strings.TrimPrefix(ext, ".")),
		zap.Int("columns", len(header)),
		zap.Int("rows", len(records)))
	return &Table{Source: source, Header: header, Records: records}, nil
}

// ReadCSV parses a delimited table. The header is validated before any data row is converted.
func ReadCSV(r io.Reader, delim rune) ([]string, []RawRecord, error) {
	if delim == 0 {
		delim = ','
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, &SchemaMismatchError{Missing: append([]string(nil), Columns...)}
		}
		return nil, nil, &SourceUnavailableError{Err: fmt.Errorf("read header: %w", err)}
	}
	header = trimHeader(header)
	idx, err := indexHeader(header)
	if err != nil {
		return nil, nil, err
	}
	var out []RawRecord
	for n := 1; ; n++ {
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, &SourceUnavailableError{Err: fmt.Errorf("read row %d: %w", n, err)}
		}
		if blankRow(row) {
			continue
		}
		rec, err := idx.record(row, n)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, rec)
	}
	return header, out, nil
}

// IsURL reports whether source should be fetched over HTTP.
func IsURL(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func sourceExt(source string) string {
	if IsURL(source) {
		if u, err := url.Parse(source); err == nil {
			return strings.ToLower(path.Ext(u.Path))
		}
	}
	return strings.ToLower(filepath.Ext(source))
}

func trimHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
