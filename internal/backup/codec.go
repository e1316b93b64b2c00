// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// MarshalJSON writes the document as one object: "metadata" plus one array
// per table.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Tables)+1)
	out["metadata"] = d.Metadata
	for name, rows := range d.Tables {
		if rows == nil {
			rows = []Row{}
		}
		out[name] = rows
	}
	return json.Marshal(out)
}

// Encode writes the document as indented JSON.
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Decode parses and validates a backup document. Values are converted to
// the column types of the target tables, so a decoded document is ready
// to be restored.
func Decode(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrMissingType
	}

	typ := root.Get("metadata.type")
	if typ.Type != gjson.String || typ.String() == "" {
		return nil, ErrMissingType
	}
	t, err := ParseType(typ.String())
	if err != nil {
		return nil, err
	}

	version := root.Get("metadata.version").String()
	if !versionSupported(version) {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidDocument, version)
	}

	doc := &Document{
		Metadata: Metadata{Type: t, Version: version},
		Tables:   make(map[string][]Row),
	}
	if ts := root.Get("metadata.timestamp").String(); ts != "" {
		if parsed, err := parseTime(ts); err == nil {
			doc.Metadata.Timestamp = parsed
		}
	}

	inProfile := make(map[string]bool, len(t.Tables()))
	for _, name := range t.Tables() {
		inProfile[name] = true
	}

	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == "metadata" {
			return true
		}
		if !inProfile[name] {
			err = fmt.Errorf("%w: table %q is not part of a %s backup", ErrInvalidDocument, name, t)
			return false
		}
		var rows []Row
		rows, err = decodeRows(schemaByName[name], value)
		if err != nil {
			return false
		}
		doc.Tables[name] = rows
		return true
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeRows(td tableDef, value gjson.Result) ([]Row, error) {
	if !value.IsArray() {
		return nil, fmt.Errorf("%w: %s must be an array", ErrInvalidDocument, td.name)
	}
	items := value.Array()
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: %s[%d] must be an object", ErrInvalidDocument, td.name, i)
		}
		raw := make(map[string]any)
		dec := json.NewDecoder(strings.NewReader(item.Raw))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidDocument, td.name, i, err)
		}
		row, err := convertRow(td, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidDocument, td.name, i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// convertRow checks every key against the table's columns and converts
// values to their bind types.
func convertRow(td tableDef, raw Row) (Row, error) {
	row := make(Row, len(raw))
	for name, v := range raw {
		c, ok := td.column(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		cv, err := convertValue(c, v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		row[name] = cv
	}
	return row, nil
}

func convertValue(c column, v any) (any, error) {
	if v == nil {
		if c.kind == kindJSON {
			return "{}", nil
		}
		return nil, nil
	}

	switch c.kind {
	case kindInt:
		return toInt(v)
	case kindText:
		return toText(v)
	case kindTime:
		return toTime(v)
	case kindBool:
		return toBool(v)
	case kindJSON:
		return toJSONText(v)
	}
	return nil, fmt.Errorf("unsupported column kind %d", c.kind)
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil || f != float64(int64(f)) {
			return 0, fmt.Errorf("%s is not an integer", n)
		}
		return int64(f), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("unexpected %T for an integer", v)
}

func toText(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case bool:
		return strconv.FormatBool(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case json.RawMessage:
		return string(s), nil
	case map[string]any, []any:
		b, err := json.Marshal(s)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return "", fmt.Errorf("unexpected %T for text", v)
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTime(t)
	}
	return time.Time{}, fmt.Errorf("unexpected %T for a timestamp", v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a timestamp", s)
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case json.Number:
		switch b.String() {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
	case int64:
		return b != 0, nil
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed, nil
		}
	}
	return false, fmt.Errorf("unexpected %v for a boolean", v)
}

// toJSONText returns the stored text form of a JSON column. Objects are
// re-encoded; strings must already hold valid JSON.
func toJSONText(v any) (string, error) {
	switch j := v.(type) {
	case string:
		if !gjson.Valid(j) {
			return "", fmt.Errorf("%q is not valid JSON", j)
		}
		return j, nil
	case json.RawMessage:
		var buf bytes.Buffer
		if err := json.Compact(&buf, j); err != nil {
			return "", err
		}
		return buf.String(), nil
	case map[string]any, []any:
		b, err := json.Marshal(j)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return "", fmt.Errorf("unexpected %T for JSON", v)
}
