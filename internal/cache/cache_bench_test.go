package cache

import (
	"context"
	"runtime"
	"testing"
	"time"
)

var benchPayload = []byte(`{"query":"best crops for winter","answer":"Wheat, mustard and chickpea suit the rabi season.","llm_source":"Groq (Llama 3.1)","alerts":[],"crop_suggestions":["Wheat","Mustard","Chickpea"]}`)

// BenchmarkKey benchmarks cache key derivation.
func BenchmarkKey(b *testing.B) {
	temp := 24.5
	for i := 0; i < b.N; i++ {
		_ = Key("best crops for winter", "Pune", &temp)
	}
}

// BenchmarkInMemoryStore_Get_Hit benchmarks Get on a hit.
func BenchmarkInMemoryStore_Get_Hit(b *testing.B) {
	s, _ := NewInMemoryStore(1024)
	ctx := context.Background()
	_ = s.Set(ctx, "k", benchPayload, 5*time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = s.Get(ctx, "k")
	}
}

// BenchmarkInMemoryStore_Get_Miss benchmarks Get on a miss.
func BenchmarkInMemoryStore_Get_Miss(b *testing.B) {
	s, _ := NewInMemoryStore(1024)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = s.Get(ctx, "nonexistent")
	}
}

// BenchmarkInMemoryStore_Set benchmarks Set.
func BenchmarkInMemoryStore_Set(b *testing.B) {
	s, _ := NewInMemoryStore(1024)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Set(ctx, "k", benchPayload, 5*time.Minute)
	}
}

// BenchmarkInMemoryStore_Parallel benchmarks concurrent mixed access.
func BenchmarkInMemoryStore_Parallel(b *testing.B) {
	s, _ := NewInMemoryStore(1024)
	ctx := context.Background()
	_ = s.Set(ctx, "k", benchPayload, 5*time.Minute)

	b.SetParallelism(runtime.GOMAXPROCS(0))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%10 == 0 {
				_ = s.Set(ctx, "k", benchPayload, 5*time.Minute)
			} else {
				_, _, _ = s.Get(ctx, "k")
			}
			i++
		}
	})
}

// BenchmarkFileStore_Set benchmarks the write-then-rename path.
func BenchmarkFileStore_Set(b *testing.B) {
	s, _ := NewFileStore(b.TempDir())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Set(ctx, "k", benchPayload, 5*time.Minute)
	}
}
