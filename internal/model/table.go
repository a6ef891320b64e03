package model

// Table is a dynamically-assembled columnar view over heterogeneous records.
// Columns are registered in first-observed order; rows are sparse, a missing
// cell means null. Rows carry their cells keyed by column name — never by
// position — so concatenating tables with different column sets is safe.
type Table struct {
	columns  []string
	colIndex map[string]struct{}
	rows     []map[string]any
}

func NewTable() *Table {
	return &Table{colIndex: make(map[string]struct{})}
}

func (t *Table) AddColumn(name string) {
	if _, ok := t.colIndex[name]; ok {
		return
	}
	t.colIndex[name] = struct{}{}
	t.columns = append(t.columns, name)
}

// AppendRecord adds one record as a new row, registering any unseen fields
// as new columns.
func (t *Table) AppendRecord(r *Record) {
	row := make(map[string]any, r.Len())
	for _, k := range r.Keys() {
		t.AddColumn(k)
		v, _ := r.Get(k)
		row[k] = v
	}
	t.rows = append(t.rows, row)
}

// Append concatenates another table row-wise, unioning the column sets.
// Cells absent from either side stay null.
func (t *Table) Append(other *Table) {
	for _, c := range other.columns {
		t.AddColumn(c)
	}
	t.rows = append(t.rows, other.rows...)
}

func (t *Table) Columns() []string {
	return t.columns
}

func (t *Table) NumRows() int {
	return len(t.rows)
}

// Cell returns the value at row i for the named column; ok is false when the
// cell is null/absent.
func (t *Table) Cell(i int, column string) (any, bool) {
	v, ok := t.rows[i][column]
	return v, ok
}

// BuildTable assembles a single table from a merged record set, one column
// per field observed anywhere in the set.
func BuildTable(records []*Record) *Table {
	t := NewTable()
	for _, r := range records {
		t.AppendRecord(r)
	}
	return t
}
