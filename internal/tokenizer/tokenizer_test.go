package tokenizer

import (
	"testing"
)

func TestRunesRoundTrip(t *testing.T) {
	text := "Статья 1. Общие положения"
	ids, err := Runes{}.Encode(text)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(ids) != 25 {
		t.Errorf("got %d ids, want 25", len(ids))
	}

	out, err := Runes{}.Decode(ids)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out != text {
		t.Errorf("Decode = %q, want %q", out, text)
	}
}

func TestRunesDecodeRejectsInvalidID(t *testing.T) {
	if _, err := (Runes{}).Decode([]int{-1}); err == nil {
		t.Error("expected an error for a negative id")
	}
}

func TestBPE(t *testing.T) {
	b, err := NewBPE("")
	if err != nil {
		t.Fatalf("NewBPE failed: %v", err)
	}

	text := "The law enters into force on the day of its publication."
	ids, err := b.Encode(text)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(ids) == 0 || len(ids) >= len(text) {
		t.Errorf("got %d tokens for %d bytes", len(ids), len(text))
	}

	out, err := b.Decode(ids)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out != text {
		t.Errorf("Decode = %q, want %q", out, text)
	}

	if n, err := Count(b, ""); err != nil || n != 0 {
		t.Errorf("Count(\"\") = %d, %v", n, err)
	}
}

func TestNew(t *testing.T) {
	tk, err := New(KindRunes, "", "")
	if err != nil {
		t.Fatalf("New(runes) failed: %v", err)
	}
	if _, ok := tk.(Runes); !ok {
		t.Errorf("New(runes) returned %T", tk)
	}
	if _, err := New("unknown", "", ""); err == nil {
		t.Error("expected an error for an unknown kind")
	}
	if _, err := New(KindHuggingFace, "", ""); err == nil {
		t.Error("expected an error for a tokenizer without a path")
	}
}
