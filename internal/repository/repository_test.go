package repository

import (
	"testing"

	"indexerfleet/internal/checkpoint"
	"indexerfleet/internal/models"
)

// The Exec/Query-calling methods on *Repository bind a concrete *pgxpool.Pool
// and make a real database round trip; following postgres_ingest_test.go's
// precedent, this package tests only the pure logic split out for that
// purpose, not the live call sites themselves.

func TestRangeEndParamNilPatchFieldMeansDontTouch(t *testing.T) {
	t.Parallel()
	if got := rangeEndParam(nil); got != nil {
		t.Fatalf("rangeEndParam(nil) = %v, want nil", got)
	}
}

func TestRangeEndParamSetToUnbounded(t *testing.T) {
	t.Parallel()
	got := rangeEndParam(&checkpoint.RangeEndValue{Value: nil})
	if got != nil {
		t.Fatalf("rangeEndParam(&{nil}) = %v, want nil", got)
	}
}

func TestRangeEndParamSetToValue(t *testing.T) {
	t.Parallel()
	want := uint64(12345)
	got := rangeEndParam(&checkpoint.RangeEndValue{Value: &want})
	if got == nil || *got != want {
		t.Fatalf("rangeEndParam(&{%d}) = %v, want pointer to %d", want, got, want)
	}
}

func TestGeneColumnsPreservesSlotOrder(t *testing.T) {
	t.Parallel()
	var expansion models.GeneExpansion
	for i := range expansion.Slots {
		expansion.Slots[i] = models.GeneSlot{Dominant: i, R1: i + 1, R2: i + 2, R3: i + 3}
	}

	dominant, r1, r2, r3 := geneColumns(expansion)
	if len(dominant) != 12 || len(r1) != 12 || len(r2) != 12 || len(r3) != 12 {
		t.Fatalf("geneColumns returned wrong lengths: %d %d %d %d", len(dominant), len(r1), len(r2), len(r3))
	}
	for i := 0; i < 12; i++ {
		if dominant[i] != i || r1[i] != i+1 || r2[i] != i+2 || r3[i] != i+3 {
			t.Fatalf("slot %d: got dominant=%d r1=%d r2=%d r3=%d", i, dominant[i], r1[i], r2[i], r3[i])
		}
	}
}

func TestGeneColumnsEmptyExpansion(t *testing.T) {
	t.Parallel()
	dominant, r1, r2, r3 := geneColumns(models.GeneExpansion{})
	if len(dominant) != 12 || len(r1) != 12 || len(r2) != 12 || len(r3) != 12 {
		t.Fatalf("geneColumns(zero value) should still return fixed-length 12 slices")
	}
}
