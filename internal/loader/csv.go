package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/eda-explorer/backend/internal/models"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVLoader reads delimited text. The first record is always the header.
type CSVLoader struct {
	// Delimiter overrides sniffing when non-zero.
	Delimiter rune
}

// NewCSVLoader creates a loader that sniffs the delimiter.
func NewCSVLoader() *CSVLoader {
	return &CSVLoader{}
}

// Kind implements Loader.
func (l *CSVLoader) Kind() models.FileKind { return models.FileKindCSV }

// Load implements Loader. Hints other than the kind are ignored.
func (l *CSVLoader) Load(data []byte, _ models.LoadHints) (*models.Table, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, unreadable("decode text: %v", err)
	}

	delim := l.Delimiter
	if delim == 0 {
		delim = SniffDelimiter(text)
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, unreadable("no columns to parse from file")
		}
		return nil, unreadable("read header: %v", err)
	}
	names := headerNames(header)
	ncol := len(names)

	intern := NewStringIntern()
	builders := make([]*columnBuilder, ncol)
	for i, name := range names {
		builders[i] = newColumnBuilder(name, 64)
	}

	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, unreadable("read row: %v", err)
		}
		if len(rec) > ncol {
			line, _ := r.FieldPos(0)
			return nil, unreadable("expected %d fields in line %d, saw %d", ncol, line, len(rec))
		}
		for j := 0; j < ncol; j++ {
			if j < len(rec) {
				builders[j].addText(rec[j], intern)
			} else {
				builders[j].addValue(models.Missing())
			}
		}
	}

	cols := make([]models.Column, ncol)
	for i, b := range builders {
		cols[i] = b.build(intern)
	}
	t, err := models.NewTable(cols)
	if err != nil {
		return nil, unreadable("%v", err)
	}
	slog.Debug("[Loader] csv parsed", "rows", t.NumRows(), "columns", ncol, "delimiter", string(delim), "interned", intern.Len())
	return t, nil
}

// decodeText strips a UTF-8 byte order mark and falls back to Windows-1252
// when the bytes are not valid UTF-8.
func decodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	return charmap.Windows1252.NewDecoder().Bytes(data)
}

// sniffLines is how many non-empty lines SniffDelimiter samples.
const sniffLines = 5

// SniffDelimiter returns the field separator for text. Comma is the
// default and wins whenever the header line contains one. Otherwise the
// most frequent of ; tab | on the header is used, provided every sampled
// line carries it the same number of times.
func SniffDelimiter(text []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var lines []string
	for len(lines) < sniffLines && sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 || strings.ContainsRune(lines[0], ',') {
		return ','
	}

	best, bestCount := ',', 0
	for _, sep := range []rune{';', '\t', '|'} {
		if n := strings.Count(lines[0], string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	if bestCount == 0 {
		return ','
	}
	for _, line := range lines[1:] {
		if strings.Count(line, string(best)) != bestCount {
			return ','
		}
	}
	return best
}
