package pricing

import "time"

// AddBusinessDays advances the date by n business days, skipping Saturday and
// Sunday. No holiday calendar is applied.
func AddBusinessDays(t time.Time, days int) time.Time {
	result := t
	added := 0
	for added < days {
		result = result.AddDate(0, 0, 1)
		switch result.Weekday() {
		case time.Saturday, time.Sunday:
			// weekend days don't count
		default:
			added++
		}
	}
	return result
}
