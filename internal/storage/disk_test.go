package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "lexrag.db")
	idx := filepath.Join(dir, "bleve")
	write := func(path, data string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(db, "hello")
	write(filepath.Join(idx, "store", "root.bolt"), "ab")
	write(filepath.Join(idx, "index_meta.json"), "c")

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"database file", []string{db}, 5},
		{"index directory", []string{idx}, 3},
		{"both", []string{db, idx}, 8},
		{"missing path skipped", []string{db, filepath.Join(dir, "vectors.bin"), idx}, 8},
		{"empty path skipped", []string{"", db}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DiskUsageBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}
