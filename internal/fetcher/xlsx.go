package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// readXLSXTable reads the named sheet, or the first one when sheet is empty.
// The first non-blank row is the header; blank rows are dropped.
func readXLSXTable(path, sheet string) (header []string, rows [][]string, err error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "xlsx: open file")
	}

	var s *xlsx.Sheet
	switch {
	case sheet != "":
		var ok bool
		if s, ok = f.Sheet[sheet]; !ok {
			return nil, nil, eris.Errorf("xlsx: sheet %q not found", sheet)
		}
	case len(f.Sheets) > 0:
		s = f.Sheets[0]
	default:
		return nil, nil, eris.New("xlsx: workbook has no sheets")
	}

	for _, row := range s.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		if blankRow(cells) {
			continue
		}
		if header == nil {
			header = cells
			continue
		}
		rows = append(rows, cells)
	}
	return header, rows, nil
}
