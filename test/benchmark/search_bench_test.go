// Package benchmark measures the hot paths of the retrieval pipeline.
package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/hyperjump/docbert/internal/encoder"
	"github.com/hyperjump/docbert/internal/maxsim"
	"github.com/hyperjump/docbert/internal/textindex"
)

func randomMatrix(rng *rand.Rand, tokens, dim int) maxsim.Matrix {
	data := make([]float32, tokens*dim)
	for i := range data {
		data[i] = rng.Float32()
	}
	return maxsim.NewMatrix(tokens, dim, data)
}

func BenchmarkMaxSimScore(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	q := randomMatrix(rng, 32, 128)
	d := randomMatrix(rng, 256, 128)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = maxsim.Score(q, d)
	}
}

func BenchmarkTextIndexSearch(b *testing.B) {
	ix, err := textindex.OpenInMemory()
	if err != nil {
		b.Fatal(err)
	}
	defer ix.Close()

	words := []string{"search", "index", "vector", "token", "query", "cache", "shard", "merge"}
	batch := ix.NewBatch()
	for i := 0; i < 1000; i++ {
		body := fmt.Sprintf("document %d about %s and %s systems",
			i, words[i%len(words)], words[(i+3)%len(words)])
		if err := batch.Add(textindex.Document{
			NumID:      uint64(i + 1),
			Short:      fmt.Sprintf("%06x", i+1),
			Collection: "bench",
			Path:       fmt.Sprintf("doc-%d.md", i),
			Title:      fmt.Sprintf("Document %d", i),
			Body:       body,
		}); err != nil {
			b.Fatal(err)
		}
	}
	if err := ix.Execute(batch); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ix.Search("vector systems", textindex.SearchOptions{Fuzzy: true, Limit: 10}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkStubEncodeQuery(b *testing.B) {
	enc := encoder.NewStub()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := enc.EncodeQuery(ctx, "hybrid retrieval over markdown notes"); err != nil {
			b.Fatal(err)
		}
	}
}
