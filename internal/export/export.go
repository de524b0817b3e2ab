// Package export writes batch results to disk as JSON or XLSX.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/extract-cli/internal/model"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a flag value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

// OutputPath swaps the extension of path to match f.
func OutputPath(path string, f Format) string {
	ext := "." + string(f)
	if strings.EqualFold(filepath.Ext(path), ext) {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// MarshalJSON encodes v with two-space indentation and a trailing newline.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, eris.Wrap(err, "export: encode json")
	}
	return buf.Bytes(), nil
}

// WriteJSON writes v to path as indented JSON.
func WriteJSON(path string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// Write stores batch outcomes at path in the given format.
func Write(path string, f Format, schema model.Schema, items []model.BatchItem, outcomes []model.Outcome) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(path, schema, items, outcomes)
	default:
		if outcomes == nil {
			outcomes = []model.Outcome{}
		}
		return WriteJSON(path, outcomes)
	}
}

// WriteXLSX writes one row per extracted record. Columns are the item title
// and URL, the error (if any), then one column per schema field. Items that
// failed or yielded nothing get a single row carrying the error.
func WriteXLSX(path string, schema model.Schema, items []model.BatchItem, outcomes []model.Outcome) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("results")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := append([]string{"item_title", "item_url", "error"}, schema.FieldNames()...)
	addStringRow(sheet, header)

	for i, o := range outcomes {
		var item model.BatchItem
		if i < len(items) {
			item = items[i]
		}
		if !o.OK() {
			addStringRow(sheet, []string{item.Title, item.URL, o.Error})
			continue
		}
		title := o.Title
		if title == "" {
			title = item.Title
		}
		for _, rec := range records(o.Data) {
			row := sheet.AddRow()
			row.AddCell().SetString(title)
			row.AddCell().SetString(item.URL)
			row.AddCell().SetString("")
			for _, f := range schema.Fields {
				setCell(row.AddCell(), rec[f.Name])
			}
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// records flattens extracted data into objects. A bare object counts as one
// record; non-object array elements are dropped.
func records(data json.RawMessage) []map[string]any {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		arr = []json.RawMessage{data}
	}
	var out []map[string]any
	for _, raw := range arr {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

func setCell(c *xlsx.Cell, v any) {
	switch x := v.(type) {
	case nil:
		c.SetString("")
	case string:
		c.SetString(x)
	case bool:
		c.SetBool(x)
	case float64:
		c.SetFloat(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			c.SetString(fmt.Sprint(x))
			return
		}
		c.SetString(string(b))
	}
}
