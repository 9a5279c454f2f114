package store

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ValueKind is the inferred storage type of a dataset column.
type ValueKind int

// Column kinds, ordered by specificity: inference starts at integer and
// widens as values demand.
const (
	KindInteger ValueKind = iota
	KindFloat
	KindText
)

// DatasetColumn is one typed column of an ingested file.
type DatasetColumn struct {
	Name string
	Kind ValueKind
}

// Dataset is a parsed, typed file ready for import into either backend.
// Cell values are int64, float64, string, or nil for blanks.
type Dataset struct {
	Name    string
	Columns []DatasetColumn
	Rows    [][]any
}

var identSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// DatasetName derives a table or collection name from a file path:
// lowercased base name with non-identifier runs collapsed to
// underscores.
func DatasetName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := identSanitizer.ReplaceAllString(strings.ToLower(base), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "dataset"
	}
	return name
}

// ReadFile parses a CSV or JSON file by extension.
func ReadFile(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path)
	case ".json":
		return ReadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported file type %q: use .csv or .json", filepath.Ext(path))
	}
}

// ReadCSV parses a headered CSV file, inferring a column type from the
// values seen: integer when every non-blank cell parses as an integer,
// float when every non-blank cell parses as a number, text otherwise.
func ReadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var raw [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		raw = append(raw, record)
	}

	ds := &Dataset{Name: DatasetName(path)}
	for i, name := range header {
		kind := KindInteger
		for _, record := range raw {
			if i >= len(record) {
				continue
			}
			kind = widen(kind, record[i])
		}
		ds.Columns = append(ds.Columns, DatasetColumn{Name: strings.TrimSpace(name), Kind: kind})
	}

	for _, record := range raw {
		row := make([]any, len(ds.Columns))
		for i, col := range ds.Columns {
			if i >= len(record) {
				continue
			}
			row[i] = convert(record[i], col.Kind)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

type jsonField struct {
	key   string
	value any
}

// ReadJSON parses a file containing an array of flat objects. Column
// order follows first appearance; types are inferred the same way as for
// CSV. Objects are walked token by token because map decoding would
// scramble the key order.
func ReadJSON(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse json: expected an array of objects: %w", err)
	}

	records := make([][]jsonField, 0, len(raws))
	for i, raw := range raws {
		rec, err := parseJSONObject(raw)
		if err != nil {
			return nil, fmt.Errorf("parse json record %d: %w", i, err)
		}
		records = append(records, rec)
	}

	ds := &Dataset{Name: DatasetName(path)}
	index := make(map[string]int)
	kinds := make(map[string]ValueKind)

	// Two passes: discover columns and widen kinds, then build rows.
	for _, rec := range records {
		for _, f := range rec {
			if _, ok := index[f.key]; !ok {
				index[f.key] = len(ds.Columns)
				ds.Columns = append(ds.Columns, DatasetColumn{Name: f.key})
				kinds[f.key] = KindInteger
			}
			kinds[f.key] = widenJSON(kinds[f.key], f.value)
		}
	}
	for i := range ds.Columns {
		ds.Columns[i].Kind = kinds[ds.Columns[i].Name]
	}

	for _, rec := range records {
		row := make([]any, len(ds.Columns))
		for _, f := range rec {
			row[index[f.key]] = convertJSON(f.value, kinds[f.key])
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func parseJSONObject(raw json.RawMessage) ([]jsonField, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object, got %v", tok)
	}

	var fields []jsonField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string key, got %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, jsonField{key: key, value: value})
	}
	return fields, nil
}

// widen moves a kind toward text as string values fail to parse.
func widen(kind ValueKind, cell string) ValueKind {
	cell = strings.TrimSpace(cell)
	if cell == "" || kind == KindText {
		return kind
	}
	if kind == KindInteger {
		if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return KindInteger
		}
		kind = KindFloat
	}
	if _, err := strconv.ParseFloat(cell, 64); err == nil {
		return KindFloat
	}
	return KindText
}

func widenJSON(kind ValueKind, value any) ValueKind {
	switch v := value.(type) {
	case nil:
		return kind
	case float64:
		if kind == KindInteger && v != float64(int64(v)) {
			return maxKind(kind, KindFloat)
		}
		return maxKind(kind, KindInteger)
	case bool:
		return KindText
	case string:
		return widen(kind, v)
	default:
		return KindText
	}
}

func maxKind(a, b ValueKind) ValueKind {
	if b > a {
		return b
	}
	return a
}

func convert(cell string, kind ValueKind) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	switch kind {
	case KindInteger:
		if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return n
		}
	case KindFloat:
		if f, err := strconv.ParseFloat(cell, 64); err == nil {
			return f
		}
	}
	return cell
}

func convertJSON(value any, kind ValueKind) any {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		if kind == KindInteger {
			return int64(v)
		}
		return v
	case string:
		return convert(v, kind)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
