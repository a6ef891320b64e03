package data

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/claresloggett/nightscout-backup/internal/model"
)

const (
	// EventTypeField discriminates treatment records; records lacking it are
	// dropped before grouping (empty records created by Spike).
	EventTypeField = "eventType"

	bolusWizardType   = "Bolus Wizard"
	profileSwitchType = "Profile Switch"

	bolusCalcField  = "boluscalc"
	profileField    = "profile"
	bolusCalcPrefix = "boluscalc_"
	profilePrefix   = "profile_"
)

// SplitByEventType partitions treatment records into one table per event type.
//
// Two types get one level of nested-field flattening:
//   - "Bolus Wizard": the boluscalc sub-object (absent on some records) is
//     expanded into boluscalc_<key> columns; records without it contribute
//     null cells for those columns and keep their other fields.
//   - "Profile Switch": the profile sub-object (required) is expanded into
//     profile_<key> columns whose values are re-serialized JSON strings; the
//     inner structure is kept opaque as text, not flattened further.
//
// Tables are not re-deduplicated here; the caller dedups the merged set
// before splitting.
func SplitByEventType(records []*model.Record) (map[string]*model.Table, error) {
	groups := make(map[string][]*model.Record)
	var order []string
	for _, r := range records {
		et, ok := r.StringField(EventTypeField)
		if !ok {
			continue
		}
		if _, seen := groups[et]; !seen {
			order = append(order, et)
		}
		groups[et] = append(groups[et], r)
	}

	result := make(map[string]*model.Table, len(groups))
	for _, et := range order {
		var (
			table *model.Table
			err   error
		)
		switch et {
		case bolusWizardType:
			table, err = flattenGroup(groups[et], et, bolusCalcField, bolusCalcPrefix, false, false)
		case profileSwitchType:
			table, err = flattenGroup(groups[et], et, profileField, profilePrefix, true, true)
		default:
			table = model.BuildTable(groups[et])
		}
		if err != nil {
			return nil, err
		}
		result[et] = table
	}
	return result, nil
}

// flattenGroup builds one table from a homogeneous group, expanding the named
// sub-object into prefixed columns. With required set, a record lacking the
// sub-object is a MalformedRecordError; otherwise it just gets null cells for
// the flattened columns. With asJSON set, each inner value is re-serialized
// to a JSON string instead of being stored as a raw scalar.
func flattenGroup(records []*model.Record, eventType, field, prefix string, required, asJSON bool) (*model.Table, error) {
	table := model.NewTable()
	for _, r := range records {
		v, present := r.Get(field)
		if !present {
			if required {
				return nil, &MalformedRecordError{EventType: eventType, Field: field}
			}
			table.AppendRecord(r)
			continue
		}
		sub, ok := v.(map[string]any)
		if !ok {
			return nil, &MalformedRecordError{EventType: eventType, Field: field}
		}
		// the raw nested-object column is dropped from the table
		r.Delete(field)

		// inner maps are unordered; sort for deterministic column order
		keys := make([]string, 0, len(sub))
		for k := range sub {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if asJSON {
				b, err := json.Marshal(sub[k])
				if err != nil {
					return nil, fmt.Errorf("%s: re-serializing %s%s: %w", eventType, prefix, k, err)
				}
				r.Set(prefix+k, string(b))
			} else {
				r.Set(prefix+k, sub[k])
			}
		}
		table.AppendRecord(r)
	}
	return table, nil
}
