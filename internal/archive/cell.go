package archive

import (
	"encoding/json"
	"fmt"
)

// FormatCell renders one table cell as archive text. ok is false for a
// null/absent cell, which both formats encode as empty/NULL rather than as
// an empty string.
func FormatCell(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		if x {
			return "true", true
		}
		return "false", true
	case map[string]any, []any:
		// nested structures that were not flattened stay as JSON text
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x), true
		}
		return string(b), true
	default:
		return fmt.Sprintf("%v", x), true
	}
}
