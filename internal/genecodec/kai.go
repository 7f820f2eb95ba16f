// Package genecodec implements the Kai alphabet bijection between raw gene
// indices and a hero's statGenes integer string (§8.2). Decoding a hero's
// full 12-slot x 4-level gene tree is delegated to the external GeneDecoder
// collaborator (trait-curve semantics, stat formulas); this package owns
// only the character<->index mapping those curves are built on top of.
package genecodec

import (
	"fmt"
	"math/big"
)

// kaiAlphabet is the fixed 32-character set statGenes strings are encoded
// over; position in the string is the raw gene index ("kai index").
const kaiAlphabet = "123456789abcdefghijkmnopqrstuvwx"

const slotCount = 12
const levelsPerSlot = 4 // dominant, R1, R2, R3

// KaiIndex returns the raw gene index for one kai character, or an error if
// ch is not a member of the 32-character alphabet.
func KaiIndex(ch byte) (int, error) {
	for i := 0; i < len(kaiAlphabet); i++ {
		if kaiAlphabet[i] == ch {
			return i, nil
		}
	}
	return 0, fmt.Errorf("genecodec: %q is not a valid kai character", ch)
}

// KaiChar is the inverse of KaiIndex.
func KaiChar(index int) (byte, error) {
	if index < 0 || index >= len(kaiAlphabet) {
		return 0, fmt.Errorf("genecodec: index %d out of kai range [0,%d)", index, len(kaiAlphabet))
	}
	return kaiAlphabet[index], nil
}

// DecodeKaiString splits a 48-character kai string (12 slots x 4 levels,
// most-significant slot first, dominant first within a slot) into raw gene
// indices, one per (slot, level).
func DecodeKaiString(s string) ([slotCount][levelsPerSlot]int, error) {
	var out [slotCount][levelsPerSlot]int
	want := slotCount * levelsPerSlot
	if len(s) != want {
		return out, fmt.Errorf("genecodec: kai string length %d, want %d", len(s), want)
	}
	for i := 0; i < want; i++ {
		idx, err := KaiIndex(s[i])
		if err != nil {
			return out, err
		}
		out[i/levelsPerSlot][i%levelsPerSlot] = idx
	}
	return out, nil
}

// EncodeKaiString is the inverse of DecodeKaiString, used by tests to check
// the round-trip bijection (§8.2).
func EncodeKaiString(slots [slotCount][levelsPerSlot]int) (string, error) {
	buf := make([]byte, 0, slotCount*levelsPerSlot)
	for _, slot := range slots {
		for _, idx := range slot {
			ch, err := KaiChar(idx)
			if err != nil {
				return "", err
			}
			buf = append(buf, ch)
		}
	}
	return string(buf), nil
}

// StatGenesToKaiString converts a hero's raw statGenes integer (as decimal
// string, since it may exceed 64 bits) into its base-32 kai representation,
// padded to 48 characters. This mirrors how the chain stores genes as one
// big integer that is really 48 base-32 digits.
func StatGenesToKaiString(statGenesDecimal string) (string, error) {
	n, ok := new(big.Int).SetString(statGenesDecimal, 10)
	if !ok {
		return "", fmt.Errorf("genecodec: %q is not a valid decimal integer", statGenesDecimal)
	}
	base := big.NewInt(int64(len(kaiAlphabet)))
	zero := big.NewInt(0)
	digits := make([]byte, 0, slotCount*levelsPerSlot)

	rem := new(big.Int)
	for n.Cmp(zero) > 0 {
		n.DivMod(n, base, rem)
		ch, err := KaiChar(int(rem.Int64()))
		if err != nil {
			return "", err
		}
		digits = append(digits, ch)
	}
	for len(digits) < slotCount*levelsPerSlot {
		digits = append(digits, kaiAlphabet[0])
	}
	// digits were accumulated least-significant-first; reverse for
	// most-significant-slot-first order.
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	if len(digits) > slotCount*levelsPerSlot {
		digits = digits[len(digits)-slotCount*levelsPerSlot:]
	}
	return string(digits), nil
}
