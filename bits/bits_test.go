package bits_test

import (
	"testing"

	"github.com/kallistipsx/gopsx/bits"
)

func TestRange(t *testing.T) {
	v := uint32(0xabcd1234)
	if got := bits.Range(v, 0, 7); got != 0x34 {
		t.Fatalf("got %#x", got)
	}
	if got := bits.Range(v, 24, 31); got != 0xab {
		t.Fatalf("got %#x", got)
	}
}

func TestInsert(t *testing.T) {
	v := uint32(0)
	v = bits.Insert(v, 16, 20, 0x1f)
	if v != 0x1f0000 {
		t.Fatalf("got %#x", v)
	}
}

func TestSignExtend(t *testing.T) {
	if got := bits.SignExtend(0x8080, 16); got != 0xffff8080 {
		t.Fatalf("got %#x", got)
	}
	if got := bits.SignExtend(0x0080, 16); got != 0x80 {
		t.Fatalf("got %#x", got)
	}
}

func TestLeadingZeros32(t *testing.T) {
	if bits.LeadingZeros32(0) != 32 {
		t.Fatal("zero case")
	}
	if bits.LeadingZeros32(1) != 31 {
		t.Fatal("one case")
	}
	if bits.LeadingZeros32(0x80000000) != 0 {
		t.Fatal("msb case")
	}
}
