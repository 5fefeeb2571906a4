package store

import "testing"

func TestNullIfEmpty(t *testing.T) {
	if v := nullIfEmpty(""); v != nil {
		t.Fatalf("empty -> nil expected, got %v", v)
	}
	if v := nullIfEmpty("  "); v != nil {
		t.Fatalf("whitespace -> nil expected, got %v", v)
	}
	if v := nullIfEmpty("x"); v != "x" {
		t.Fatalf("non-empty preserved, got %v", v)
	}
}

func TestToJSON(t *testing.T) {
	if got := string(toJSON([]string{"a"})); got != `["a"]` {
		t.Fatalf("got %s", got)
	}
	if got := string(toJSON(make(chan int))); got != "null" {
		t.Fatalf("unmarshalable value should fall back to null, got %s", got)
	}
}
