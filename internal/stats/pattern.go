package stats

import (
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"
)

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// AnalyzePattern buckets transactions by hour of day (24 buckets, UTC) and
// day of week (7 buckets, Sunday-indexed) and reports the busiest of each.
// Ties resolve to the lowest index, so the result is stable for a given set.
func AnalyzePattern(txs []models.TransactionRecord) (*models.ActivityPattern, error) {
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	var hours [24]int
	var days [7]int
	for _, tx := range txs {
		t := tx.BlockTime.UTC()
		hours[t.Hour()]++
		days[int(t.Weekday())]++
	}

	return &models.ActivityPattern{
		MostActiveHour: maxIndex(hours[:]),
		MostActiveDay:  dayNames[maxIndex(days[:])],
	}, nil
}

func maxIndex(buckets []int) int {
	best := 0
	for i := range buckets {
		if buckets[i] > buckets[best] {
			best = i
		}
	}
	return best
}
