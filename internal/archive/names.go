package archive

import "strings"

// TreatmentFileName builds the archive file name for one treatment event
// type, e.g. "nightscout_treatments_Bolus Wizard.csv.gz". With underscore
// set, embedded whitespace becomes "_". Path separators are always replaced
// so an event type can never escape the output directory.
func TreatmentFileName(eventType string, underscore bool, ext string) string {
	name := strings.ReplaceAll(eventType, "/", "-")
	if underscore {
		name = strings.Join(strings.Fields(name), "_")
	}
	return "nightscout_treatments_" + name + ext
}

// EntriesFileName is the archive file name for the BGL entries collection.
func EntriesFileName(ext string) string {
	return "nightscout_entries" + ext
}
