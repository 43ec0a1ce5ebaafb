package repository

import (
	"context"
	"math/rand"
	"testing"

	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/model"
)

func populate(b *testing.B, s *MemoryStore, users int) {
	b.Helper()
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()
	for id := int64(1); id <= int64(users); id++ {
		pts := int64(rng.Intn(100_000))
		err := s.WithinUser(ctx, id, func(ctx context.Context, tx discovery.Tx) error {
			p := model.NewUserProgress(id)
			p.TotalPoints = pts
			return tx.PutProgress(ctx, p)
		})
		if err != nil {
			b.Fatalf("populate: %v", err)
		}
	}
}

func BenchmarkMemoryStore_WithinUser(b *testing.B) {
	ctx := context.Background()
	s := NewMemoryStore(ctx)
	defer s.Close()
	populate(b, s, 10_000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			id := int64(rng.Intn(10_000) + 1)
			_ = s.WithinUser(ctx, id, func(ctx context.Context, tx discovery.Tx) error {
				p, _, err := tx.GetProgress(ctx, id)
				if err != nil {
					return err
				}
				p.TotalPoints += 10
				return tx.PutProgress(ctx, p)
			})
		}
	})
}

func BenchmarkMemoryStore_CountAbove(b *testing.B) {
	ctx := context.Background()
	s := NewMemoryStore(ctx)
	defer s.Close()
	populate(b, s, 100_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.CountAbove(ctx, model.MetricTotalPoints, int64(i%100_000))
	}
}

func BenchmarkMemoryStore_TopN(b *testing.B) {
	ctx := context.Background()
	s := NewMemoryStore(ctx)
	defer s.Close()
	populate(b, s, 100_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.TopN(ctx, model.MetricTotalPoints, 100)
	}
}
