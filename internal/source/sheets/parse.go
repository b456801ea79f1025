package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// parseRows converts a values matrix (as returned by Sheets API) into
// records. The first row must name at least Date, Title and Amount; Type,
// Category and ID are optional. Rows without an ID column get their sheet
// row number. Rows with an unreadable amount are counted and skipped.
func parseRows(values [][]interface{}) ([]core.Record, int, error) {
	if len(values) == 0 {
		return []core.Record{}, 0, nil
	}
	headers := toStrings(values[0])
	colDate := indexOf(headers, "Date")
	colTitle := indexOf(headers, "Title")
	colAmount := indexOf(headers, "Amount")
	colType := indexOf(headers, "Type")
	colCategory := indexOf(headers, "Category")
	colID := indexOf(headers, "ID")
	if colDate == -1 || colTitle == -1 || colAmount == -1 {
		missing := make([]string, 0, 3)
		if colDate == -1 {
			missing = append(missing, "Date")
		}
		if colTitle == -1 {
			missing = append(missing, "Title")
		}
		if colAmount == -1 {
			missing = append(missing, "Amount")
		}
		return nil, 0, fmt.Errorf("unexpected transactions header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	out := make([]core.Record, 0, len(values)-1)
	skipped := 0
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		title := safeGet(row, colTitle)
		rawAmount := safeGet(row, colAmount)
		date := safeGet(row, colDate)
		if title == "" && rawAmount == "" && date == "" {
			continue
		}
		amount, err := core.ParseAmount(strings.TrimPrefix(strings.ReplaceAll(rawAmount, core.CurrencySymbol, ""), "+"))
		if err != nil {
			skipped++
			continue
		}
		id := core.ID(safeGet(row, colID))
		if id == "" {
			id = core.ID(strconv.Itoa(i + 1))
		}
		out = append(out, core.Record{
			ID:       id,
			Title:    title,
			Amount:   amount,
			Type:     safeGet(row, colType),
			Category: safeGet(row, colCategory),
			Date:     date,
		})
	}
	return out, skipped, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
