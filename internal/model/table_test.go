package model

import "testing"

func TestTableColumnsFirstObservedOrder(t *testing.T) {
	table := NewTable()
	table.AppendRecord(mustRecord(t, `{"ts":"t1","sgv":100}`))
	table.AppendRecord(mustRecord(t, `{"ts":"t2","direction":"Flat","sgv":99}`))

	want := []string{"ts", "sgv", "direction"}
	got := table.Columns()
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columns = %v, want %v", got, want)
		}
	}
}

func TestTableNullCells(t *testing.T) {
	table := NewTable()
	table.AppendRecord(mustRecord(t, `{"ts":"t1","sgv":100}`))
	table.AppendRecord(mustRecord(t, `{"ts":"t2"}`))

	if _, ok := table.Cell(0, "sgv"); !ok {
		t.Fatal("row 0 sgv should be present")
	}
	if _, ok := table.Cell(1, "sgv"); ok {
		t.Fatal("row 1 sgv should be null")
	}
	if _, ok := table.Cell(0, "missing"); ok {
		t.Fatal("unknown column should be null")
	}
}

func TestTableAppendUnionsColumns(t *testing.T) {
	a := NewTable()
	a.AppendRecord(mustRecord(t, `{"x":1}`))
	b := NewTable()
	b.AppendRecord(mustRecord(t, `{"y":2}`))

	a.Append(b)

	if a.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", a.NumRows())
	}
	if len(a.Columns()) != 2 {
		t.Fatalf("columns = %v, want [x y]", a.Columns())
	}
	if _, ok := a.Cell(1, "x"); ok {
		t.Fatal("appended row should have null x")
	}
	if _, ok := a.Cell(1, "y"); !ok {
		t.Fatal("appended row should keep y")
	}
}
