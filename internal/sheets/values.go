package sheets

import (
	"fmt"
	"strconv"
)

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(val)
	}
}

// CellString renders a value the way adapters persist it as text.
func CellString(v any) string {
	return stringify(v)
}
