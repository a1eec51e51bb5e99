package mst

import (
	"context"
	"testing"
)

func benchmarkStdMapInsert(factor int, b *testing.B) {
	m := map[uint64]Fingerprint{}
	for n := 0; n < factor*b.N; n++ {
		m[uint64(n)] = testFP(uint64(n))
	}
}

func BenchmarkStdMapInsert1(b *testing.B)    { benchmarkStdMapInsert(1, b) }
func BenchmarkStdMapInsert100(b *testing.B)  { benchmarkStdMapInsert(100, b) }
func BenchmarkStdMapInsert10k(b *testing.B)  { benchmarkStdMapInsert(10_000, b) }
func BenchmarkStdMapInsert100k(b *testing.B) { benchmarkStdMapInsert(100_000, b) }

func benchmarkTreeInsert(factor int, b *testing.B) {
	m := NewInMemory()
	ctx := context.Background()
	for n := 0; n < factor*b.N; n++ {
		err := m.Insert(ctx, Leaf{Key: uint64(n), Fingerprint: testFP(uint64(n))})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTreeInsert1(b *testing.B)    { benchmarkTreeInsert(1, b) }
func BenchmarkTreeInsert100(b *testing.B)  { benchmarkTreeInsert(100, b) }
func BenchmarkTreeInsert10k(b *testing.B)  { benchmarkTreeInsert(10_000, b) }
func BenchmarkTreeInsert100k(b *testing.B) { benchmarkTreeInsert(100_000, b) }

func benchmarkTreeGet(factor int, b *testing.B) {
	m := NewInMemory()
	ctx := context.Background()
	b.StopTimer()
	for n := 0; n < factor*b.N; n++ {
		err := m.Insert(ctx, Leaf{Key: uint64(n), Fingerprint: testFP(uint64(n))})
		if err != nil {
			b.Fatal(err)
		}
	}
	b.StartTimer()
	for n := 0; n < factor*b.N; n++ {
		_, _, err := m.Get(ctx, uint64(n))
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTreeGet1(b *testing.B)    { benchmarkTreeGet(1, b) }
func BenchmarkTreeGet100(b *testing.B)  { benchmarkTreeGet(100, b) }
func BenchmarkTreeGet10k(b *testing.B)  { benchmarkTreeGet(10_000, b) }
func BenchmarkTreeGet100k(b *testing.B) { benchmarkTreeGet(100_000, b) }

func benchmarkBuild(size int, b *testing.B) {
	leaves := make([]Leaf, size)
	for i := range leaves {
		leaves[i] = testLeaf(uint64(i))
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		_, err := Build(leaves)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuild100(b *testing.B)  { benchmarkBuild(100, b) }
func BenchmarkBuild10k(b *testing.B)  { benchmarkBuild(10_000, b) }
func BenchmarkBuild100k(b *testing.B) { benchmarkBuild(100_000, b) }

// benchmarkDiff measures diffing two large trees that differ in a
// handful of keys, the dominant production shape.
func benchmarkDiff(size, changed int, b *testing.B) {
	ctx := context.Background()
	leaves := make([]Leaf, size)
	for i := range leaves {
		leaves[i] = testLeaf(uint64(i))
	}
	left, err := Build(leaves)
	if err != nil {
		b.Fatal(err)
	}
	right := left.Clone()
	for i := 0; i < changed; i++ {
		err := right.Update(ctx, Leaf{Key: uint64(i * (size / changed)), Fingerprint: testFP(uint64(size + i))})
		if err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		found := 0
		err := left.DiffIter(ctx, right, func(DivergentKey) (bool, error) {
			found++
			return true, nil
		})
		if err != nil {
			b.Fatal(err)
		}
		if found != changed {
			b.Fatalf("found %d of %d divergent keys", found, changed)
		}
	}
}

func BenchmarkDiff10kOf1(b *testing.B)    { benchmarkDiff(10_000, 1, b) }
func BenchmarkDiff10kOf10(b *testing.B)   { benchmarkDiff(10_000, 10, b) }
func BenchmarkDiff100kOf10(b *testing.B)  { benchmarkDiff(100_000, 10, b) }
func BenchmarkDiff100kOf100(b *testing.B) { benchmarkDiff(100_000, 100, b) }
