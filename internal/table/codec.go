package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader is returned when delimited input has no header row.
var ErrNoHeader = errors.New("delimited input has no header row")

const utf8BOM = "\ufeff"

// Format controls the delimited serialization.
type Format struct {
	// Delimiter separates fields. Zero means comma when writing and
	// auto-detection among ',', ';' and tab when reading.
	Delimiter rune
	// WriteBOM prefixes written output with a UTF-8 byte-order mark.
	WriteBOM bool
}

func (f Format) writeDelimiter() rune {
	if f.Delimiter == 0 {
		return ','
	}
	return f.Delimiter
}

// Decode reads a header row plus data rows and reconciles them against
// schema: columns are reordered to schema order, missing ones become empty
// strings and undeclared ones are dropped. A leading byte-order mark is
// ignored.
func Decode(r io.Reader, schema Schema, format Format) (Table, error) {
	data, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return New(schema), fmt.Errorf("read delimited input: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	delim := format.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(data)
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return New(schema), ErrNoHeader
	}
	if err != nil {
		return New(schema), fmt.Errorf("parse header: %w", err)
	}

	positions := make([]int, schema.Len())
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
		if _, dup := seen[h]; !dup {
			seen[h] = i
		}
	}
	for i, name := range schema.Names() {
		if pos, ok := seen[name]; ok {
			positions[i] = pos
		} else {
			positions[i] = -1
		}
	}

	out := New(schema)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return New(schema), fmt.Errorf("parse row: %w", err)
		}
		row := make([]string, schema.Len())
		for i, pos := range positions {
			if pos >= 0 && pos < len(rec) {
				row[i] = rec[pos]
			}
		}
		out.appendRaw(row)
	}
	return out, nil
}

// Encode writes the header row followed by every row of t. Values are written
// as stored; Append has already folded CRLF and CR line breaks to LF, which is
// the only form Decode reproduces inside quoted fields.
func Encode(w io.Writer, t Table, format Format) error {
	bw := bufio.NewWriter(w)
	if format.WriteBOM {
		if _, err := bw.WriteString(utf8BOM); err != nil {
			return err
		}
	}
	writer := csv.NewWriter(bw)
	writer.Comma = format.writeDelimiter()
	if err := writer.Write(t.schema.Names()); err != nil {
		return err
	}
	for _, row := range t.rows {
		// csv.Writer emits a blank line for a lone empty field, which the
		// reader skips; quote it explicitly so the row survives.
		if len(row) == 1 && row[0] == "" {
			writer.Flush()
			if _, err := bw.WriteString("\"\"\n"); err != nil {
				return err
			}
			continue
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// Marshal encodes t into a byte slice.
func Marshal(t Table, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, t, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes payload against schema.
func Unmarshal(payload []byte, schema Schema, format Format) (Table, error) {
	return Decode(bytes.NewReader(payload), schema, format)
}

// sniffDelimiter picks the most frequent of ',', ';' and tab in the first
// line, ignoring quoted sections. Comma wins ties.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	counts := map[rune]int{}
	quoted := false
	for _, r := range string(line) {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == ',' || r == ';' || r == '\t':
			counts[r]++
		}
	}
	best := ','
	for _, r := range []rune{';', '\t'} {
		if counts[r] > counts[best] {
			best = r
		}
	}
	return best
}
