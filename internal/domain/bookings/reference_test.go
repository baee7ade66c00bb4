package bookings

import (
	"strings"
	"testing"
)

func TestReferenceRoundTrip(t *testing.T) {
	coder, err := NewReferenceCoder("test-salt")
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []int64{1, 42, 999999} {
		ref, err := coder.Encode(id)
		if err != nil {
			t.Fatalf("encode %d: %v", id, err)
		}
		if !strings.HasPrefix(ref, "CR-") {
			t.Errorf("reference %q missing prefix", ref)
		}

		got, err := coder.Decode(ref)
		if err != nil {
			t.Fatalf("decode %q: %v", ref, err)
		}
		if got != id {
			t.Errorf("round trip: got %d, want %d", got, id)
		}
	}
}

func TestReferenceDecodeLenient(t *testing.T) {
	coder, err := NewReferenceCoder("test-salt")
	if err != nil {
		t.Fatal(err)
	}

	ref, _ := coder.Encode(7)

	// customers type references with sloppy casing and whitespace
	got, err := coder.Decode("  " + strings.ToLower(ref) + " ")
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Errorf("got %d, want 7", got)
	}
}

func TestReferenceDecodeGarbage(t *testing.T) {
	coder, err := NewReferenceCoder("test-salt")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := coder.Decode("CR-!!!!"); err == nil {
		t.Error("expected error for garbage reference")
	}
}

func TestReferenceSaltChangesCodes(t *testing.T) {
	a, _ := NewReferenceCoder("salt-a")
	b, _ := NewReferenceCoder("salt-b")

	refA, _ := a.Encode(100)
	refB, _ := b.Encode(100)
	if refA == refB {
		t.Error("different salts produced identical references")
	}
}
