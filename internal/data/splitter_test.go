package data

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/claresloggett/nightscout-backup/internal/model"
)

func TestSplitCompleteness(t *testing.T) {
	records := []*model.Record{
		rec(t, `{"eventType":"Carbs","created_at":"t1","carbs":10}`),
		rec(t, `{"eventType":"Temp Basal","created_at":"t2","rate":0.5}`),
		rec(t, `{"created_at":"t3","note":"no event type"}`),
		rec(t, `{"eventType":"Carbs","created_at":"t4","carbs":20}`),
	}

	tables, err := SplitByEventType(records)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(tables))
	}
	if tables["Carbs"].NumRows() != 2 {
		t.Fatalf("Carbs rows = %d, want 2", tables["Carbs"].NumRows())
	}
	if tables["Temp Basal"].NumRows() != 1 {
		t.Fatalf("Temp Basal rows = %d, want 1", tables["Temp Basal"].NumRows())
	}
	// the discriminator-less record appears in no table
	total := 0
	for _, table := range tables {
		total += table.NumRows()
	}
	if total != 3 {
		t.Fatalf("total rows = %d, want 3", total)
	}
}

func TestSplitBolusWizardFlattening(t *testing.T) {
	records := []*model.Record{
		rec(t, `{"eventType":"Carbs","created_at":"t1","carbs":10}`),
		rec(t, `{"eventType":"Bolus Wizard","created_at":"t2","boluscalc":{"bgdiff":5,"insulin":1.5}}`),
		rec(t, `{"eventType":"Bolus Wizard","created_at":"t3"}`),
	}

	tables, err := SplitByEventType(records)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	bw := tables["Bolus Wizard"]
	if bw.NumRows() != 2 {
		t.Fatalf("Bolus Wizard rows = %d, want 2", bw.NumRows())
	}

	// the raw nested-object column is gone
	for _, col := range bw.Columns() {
		if col == "boluscalc" {
			t.Fatal("boluscalc column should have been dropped")
		}
	}

	v, ok := bw.Cell(0, "boluscalc_bgdiff")
	if !ok {
		t.Fatal("row 0 boluscalc_bgdiff should be present")
	}
	if n, _ := v.(json.Number); n.String() != "5" {
		t.Fatalf("boluscalc_bgdiff = %v", v)
	}
	if _, ok := bw.Cell(0, "boluscalc_insulin"); !ok {
		t.Fatal("row 0 boluscalc_insulin should be present")
	}

	// record without the sub-object: null flattened cells, other fields kept
	if _, ok := bw.Cell(1, "boluscalc_bgdiff"); ok {
		t.Fatal("row 1 boluscalc_bgdiff should be null")
	}
	if ts, _ := bw.Cell(1, "created_at"); ts != "t3" {
		t.Fatalf("row 1 created_at = %v", ts)
	}
}

func TestSplitProfileSwitchJSONRoundTrip(t *testing.T) {
	inner := `{"dia":5,"basal":[{"time":"00:00","value":0.8}]}`
	records := []*model.Record{
		rec(t, `{"eventType":"Profile Switch","created_at":"t1","profile":{"Default":`+inner+`}}`),
	}

	tables, err := SplitByEventType(records)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	ps := tables["Profile Switch"]

	v, ok := ps.Cell(0, "profile_Default")
	if !ok {
		t.Fatal("profile_Default should be present")
	}
	cell, ok := v.(string)
	if !ok {
		t.Fatalf("profile_Default = %T, want re-serialized JSON string", v)
	}

	var got, want any
	if err := json.Unmarshal([]byte(cell), &got); err != nil {
		t.Fatalf("cell is not valid JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(inner), &want); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %v\nwant %v", got, want)
	}

	for _, col := range ps.Columns() {
		if col == "profile" {
			t.Fatal("profile column should have been dropped")
		}
	}
}

func TestSplitProfileSwitchMissingProfileIsFatal(t *testing.T) {
	records := []*model.Record{
		rec(t, `{"eventType":"Profile Switch","created_at":"t1"}`),
	}
	_, err := SplitByEventType(records)

	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedRecordError", err)
	}
	if malformed.Field != "profile" {
		t.Fatalf("field = %s", malformed.Field)
	}
}

func TestSplitBolusCalcNotAnObject(t *testing.T) {
	records := []*model.Record{
		rec(t, `{"eventType":"Bolus Wizard","created_at":"t1","boluscalc":"oops"}`),
	}
	_, err := SplitByEventType(records)

	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedRecordError", err)
	}
}

func TestSplitPlainTypeKeepsNestedFields(t *testing.T) {
	records := []*model.Record{
		rec(t, `{"eventType":"Sensor Start","created_at":"t1","meta":{"keep":"nested"}}`),
	}
	tables, err := SplitByEventType(records)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	v, ok := tables["Sensor Start"].Cell(0, "meta")
	if !ok {
		t.Fatal("meta should be present")
	}
	if _, isMap := v.(map[string]any); !isMap {
		t.Fatalf("meta = %T, want untouched nested object", v)
	}
}
