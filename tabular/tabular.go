// Package tabular loads table files into a plain in-memory structure.
// It is deliberately small: callers needing real dataframe semantics
// feed Rows into their tool of choice.
package tabular

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

// Table is rows under a fixed column order.
type Table struct {
	Columns []string
	Rows    [][]any
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ReadCSV concatenates one or more CSV files sharing a header row.
func ReadCSV(paths ...string) (*Table, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to read")
	}

	table := &Table{}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		r := csv.NewReader(f)
		records, err := r.ReadAll()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if len(records) == 0 {
			continue
		}

		header, rows := records[0], records[1:]
		if table.Columns == nil {
			table.Columns = header
		} else if !sameColumns(table.Columns, header) {
			return nil, fmt.Errorf(
				"header of %s does not match the first file", path,
			)
		}

		for _, rec := range rows {
			row := make([]any, len(rec))
			for i, v := range rec {
				row[i] = v
			}
			table.Rows = append(table.Rows, row)
		}
	}
	return table, nil
}

// ReadParquet concatenates one or more parquet parts into a single
// table, column order taken sorted from the first part.
func ReadParquet(paths ...string) (*Table, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to read")
	}

	table := &Table{}
	for _, path := range paths {
		if err := appendParquet(table, path); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return table, nil
}

func appendParquet(table *Table, path string) error {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, 1)
	if err != nil {
		return err
	}
	defer pr.ReadStop()

	rows, err := pr.ReadByNumber(int(pr.GetNumRows()))
	if err != nil {
		return err
	}

	for _, raw := range rows {
		// rows come back as generated structs; round-trip through JSON
		// to get at them generically.
		buf, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		record := map[string]any{}
		if err := json.Unmarshal(buf, &record); err != nil {
			return err
		}

		if table.Columns == nil {
			cols := make([]string, 0, len(record))
			for c := range record {
				cols = append(cols, c)
			}
			sort.Strings(cols)
			table.Columns = cols
		}

		row := make([]any, len(table.Columns))
		for i, c := range table.Columns {
			row[i] = record[c]
		}
		table.Rows = append(table.Rows, row)
	}
	return nil
}

func sameColumns(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
