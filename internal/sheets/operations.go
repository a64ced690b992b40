package sheets

import "fmt"

// ToRows converts the untyped cells returned by the Sheets API into strings.
// Nil cells become "". Trailing empty cells are not padded: the API omits
// them and row length checks depend on that.
func ToRows(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i := range row {
			cells[i] = extractStringField(row, i)
		}
		rows = append(rows, cells)
	}
	return rows
}

// extractStringField safely extracts a string field from a row at the given index
func extractStringField(row []interface{}, index int) string {
	if len(row) > index && row[index] != nil {
		return fmt.Sprintf("%v", row[index])
	}
	return ""
}
