package tabular_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/c360-ai/lakeclient/internal/cmp"
	"github.com/c360-ai/lakeclient/internal/try"
	"github.com/c360-ai/lakeclient/tabular"
)

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("single file", func(t *testing.T) {
		path := write("a.csv", "id,name\n1,alice\n2,bob\n")

		table := try.To(tabular.ReadCSV(path)).OrFatal(t)
		if !cmp.SliceEq(table.Columns, []string{"id", "name"}) {
			t.Errorf("unexpected columns: %v", table.Columns)
		}
		if table.Len() != 2 {
			t.Fatalf("unexpected row count: %d", table.Len())
		}
		if table.Rows[1][table.Column("name")] != "bob" {
			t.Errorf("unexpected cell: %v", table.Rows[1])
		}
	})

	t.Run("multi-part concat", func(t *testing.T) {
		p1 := write("part-0.csv", "id,name\n1,alice\n")
		p2 := write("part-1.csv", "id,name\n2,bob\n")

		table := try.To(tabular.ReadCSV(p1, p2)).OrFatal(t)
		if table.Len() != 2 {
			t.Errorf("unexpected row count: %d", table.Len())
		}
	})

	t.Run("mismatched headers rejected", func(t *testing.T) {
		p1 := write("h1.csv", "id,name\n1,alice\n")
		p2 := write("h2.csv", "id,email\n2,b@x\n")

		if _, err := tabular.ReadCSV(p1, p2); err == nil {
			t.Error("mismatched headers should not concatenate")
		}
	})

	t.Run("no files", func(t *testing.T) {
		if _, err := tabular.ReadCSV(); err == nil {
			t.Error("empty input should fail")
		}
	})

	t.Run("unknown column", func(t *testing.T) {
		path := write("c.csv", "id\n1\n")
		table := try.To(tabular.ReadCSV(path)).OrFatal(t)
		if got := table.Column("nope"); got != -1 {
			t.Errorf("expected -1, got %d", got)
		}
	})
}

type parquetRow struct {
	ID   int64  `parquet:"name=id, type=INT64"`
	Name string `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func writeParquetPart(t *testing.T, path string, rows []parquetRow) {
	t.Helper()
	fw := try.To(local.NewLocalFileWriter(path)).OrFatal(t)
	pw := try.To(writer.NewParquetWriter(fw, new(parquetRow), 1)).OrFatal(t)
	for _, r := range rows {
		if err := pw.Write(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		t.Fatal(err)
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReadParquet(t *testing.T) {
	dir := t.TempDir()

	t.Run("single part", func(t *testing.T) {
		path := filepath.Join(dir, "a.parquet")
		writeParquetPart(t, path, []parquetRow{
			{ID: 1, Name: "alice"}, {ID: 2, Name: "bob"},
		})

		table := try.To(tabular.ReadParquet(path)).OrFatal(t)
		// columns read back under the schema's reconstructed field names.
		if !cmp.SliceEq(table.Columns, []string{"Id", "Name"}) {
			t.Fatalf("unexpected columns: %v", table.Columns)
		}
		if table.Len() != 2 {
			t.Fatalf("unexpected row count: %d", table.Len())
		}
		if table.Rows[1][table.Column("Name")] != "bob" {
			t.Errorf("unexpected cell: %v", table.Rows[1])
		}
	})

	t.Run("multi-part concat", func(t *testing.T) {
		p1 := filepath.Join(dir, "part-0.parquet")
		p2 := filepath.Join(dir, "part-1.parquet")
		writeParquetPart(t, p1, []parquetRow{{ID: 1, Name: "alice"}})
		writeParquetPart(t, p2, []parquetRow{{ID: 2, Name: "bob"}})

		table := try.To(tabular.ReadParquet(p1, p2)).OrFatal(t)
		if table.Len() != 2 {
			t.Fatalf("unexpected row count: %d", table.Len())
		}
		if table.Rows[0][table.Column("Name")] != "alice" ||
			table.Rows[1][table.Column("Name")] != "bob" {
			t.Errorf("parts out of order: %v", table.Rows)
		}
	})

	t.Run("no files", func(t *testing.T) {
		if _, err := tabular.ReadParquet(); err == nil {
			t.Error("empty input should fail")
		}
	})
}
