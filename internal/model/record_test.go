package model

import (
	"encoding/json"
	"testing"
)

func mustRecord(t *testing.T, js string) *Record {
	t.Helper()
	r := NewRecord()
	if err := json.Unmarshal([]byte(js), r); err != nil {
		t.Fatalf("unmarshal %s: %v", js, err)
	}
	return r
}

func TestRecordPreservesKeyOrder(t *testing.T) {
	r := mustRecord(t, `{"b":1,"a":"x","c":{"inner":2}}`)

	want := []string{"b", "a", "c"}
	got := r.Keys()
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"b":1,"a":"x","c":{"inner":2}}` {
		t.Fatalf("marshal = %s, wire order lost", out)
	}
}

func TestRecordRejectsNonObject(t *testing.T) {
	r := NewRecord()
	if err := json.Unmarshal([]byte(`[1,2]`), r); err == nil {
		t.Fatal("expected error for non-object input")
	}
}

func TestRecordSetDelete(t *testing.T) {
	r := mustRecord(t, `{"a":1,"b":2,"c":3}`)

	r.Delete("b")
	if r.Has("b") {
		t.Fatal("b still present after Delete")
	}
	r.Set("d", "new")
	r.Set("a", "overwritten")

	want := []string{"a", "c", "d"}
	got := r.Keys()
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
	if v, _ := r.Get("a"); v != "overwritten" {
		t.Fatalf("a = %v", v)
	}
}

func TestFingerprintStructuralEquality(t *testing.T) {
	a := mustRecord(t, `{"ts":"2024-01-02","sgv":100}`)
	b := mustRecord(t, `{"sgv":100,"ts":"2024-01-02"}`)
	c := mustRecord(t, `{"ts":"2024-01-02","sgv":101}`)

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("same fields in different wire order must fingerprint equal")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatal("different field values must fingerprint differently")
	}
}

func TestDecodePage(t *testing.T) {
	page, err := DecodePage([]byte(`[{"a":1},{"b":"x"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len = %d, want 2", len(page))
	}
	if v, _ := page[1].Get("b"); v != "x" {
		t.Fatalf("page[1].b = %v", v)
	}

	if _, err := DecodePage([]byte(`{"not":"array"}`)); err == nil {
		t.Fatal("expected error for non-array page")
	}
}

func TestDecodePageKeepsNumbersExact(t *testing.T) {
	page, err := DecodePage([]byte(`[{"date":1714694400000}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	v, _ := page[0].Get("date")
	n, ok := v.(json.Number)
	if !ok {
		t.Fatalf("date decoded as %T, want json.Number", v)
	}
	if n.String() != "1714694400000" {
		t.Fatalf("date = %s", n)
	}
}
