package genecodec

import "testing"

func TestKaiIndexRoundTrip(t *testing.T) {
	for i := 0; i < len(kaiAlphabet); i++ {
		ch, err := KaiChar(i)
		if err != nil {
			t.Fatalf("KaiChar(%d): %v", i, err)
		}
		idx, err := KaiIndex(ch)
		if err != nil {
			t.Fatalf("KaiIndex(%q): %v", ch, err)
		}
		if idx != i {
			t.Errorf("round trip mismatch: index %d -> char %q -> index %d", i, ch, idx)
		}
	}
}

func TestKaiIndexRejectsUnknownChar(t *testing.T) {
	if _, err := KaiIndex('z'); err == nil {
		t.Fatalf("expected error for 'z', which is not in the 32-char alphabet")
	}
}

func TestDecodeEncodeKaiStringBijection(t *testing.T) {
	var slots [slotCount][levelsPerSlot]int
	for s := 0; s < slotCount; s++ {
		for l := 0; l < levelsPerSlot; l++ {
			slots[s][l] = (s*levelsPerSlot + l) % len(kaiAlphabet)
		}
	}
	encoded, err := EncodeKaiString(slots)
	if err != nil {
		t.Fatalf("EncodeKaiString: %v", err)
	}
	if len(encoded) != 48 {
		t.Fatalf("encoded length = %d, want 48", len(encoded))
	}
	decoded, err := DecodeKaiString(encoded)
	if err != nil {
		t.Fatalf("DecodeKaiString: %v", err)
	}
	if decoded != slots {
		t.Errorf("decode(encode(slots)) != slots")
	}
}

func TestDecodeKaiStringRejectsWrongLength(t *testing.T) {
	if _, err := DecodeKaiString("123"); err == nil {
		t.Fatalf("expected error for short kai string")
	}
}

func TestStatGenesToKaiStringLength(t *testing.T) {
	s, err := StatGenesToKaiString("123456789012345678901234567890")
	if err != nil {
		t.Fatalf("StatGenesToKaiString: %v", err)
	}
	if len(s) != 48 {
		t.Fatalf("kai string length = %d, want 48", len(s))
	}
}

func TestStatGenesToKaiStringRejectsNonInteger(t *testing.T) {
	if _, err := StatGenesToKaiString("not-a-number"); err == nil {
		t.Fatalf("expected error for non-numeric statGenes")
	}
}
