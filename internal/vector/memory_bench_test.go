package vector

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkMemoryIndexSearch(b *testing.B) {
	const dims = 1024
	idx, err := NewMemoryIndex(dims)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	entries := make([]Entry, 2000)
	for i := range entries {
		v := make([]float32, dims)
		v[i%dims] = 1
		entries[i] = Entry{ID: fmt.Sprintf("c%d", i), DocumentID: fmt.Sprintf("d%d", i%20), Vector: v}
	}
	if err := idx.Add(ctx, entries); err != nil {
		b.Fatal(err)
	}
	query := make([]float32, dims)
	query[0] = 1
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10, Filter{})
	}
}
