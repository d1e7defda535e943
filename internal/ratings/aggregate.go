// Package ratings stores per-response ratings and derives statistics from them.
// Statistics are always recomputed from the responses, never stored.
package ratings

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Response is one model's output for one round, with its rating
type Response struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	ModelID   string    `json:"modelId"`
	Round     int       `json:"round"`
	Content   string    `json:"content"`
	Rating    *int      `json:"rating"` // nil when unrated
	IsWinner  bool      `json:"isWinner"`
	CreatedAt time.Time `json:"createdAt"`
}

// Statistics summarizes a set of responses. With no ratings, AverageRating is 0.
type Statistics struct {
	AverageRating  float64 `json:"averageRating"`
	TotalRatings   int     `json:"totalRatings"`
	WinCount       int     `json:"winCount"`
	TotalResponses int     `json:"totalResponses"`
	WinRate        float64 `json:"winRate"`
}

// Aggregate computes statistics over responses. Empty input yields zero values.
func Aggregate(responses []Response) Statistics {
	var stats Statistics
	var sum int
	for _, r := range responses {
		stats.TotalResponses++
		if r.Rating != nil {
			sum += *r.Rating
			stats.TotalRatings++
		}
		if r.IsWinner {
			stats.WinCount++
		}
	}
	if stats.TotalRatings > 0 {
		stats.AverageRating = float64(sum) / float64(stats.TotalRatings)
	}
	if stats.TotalResponses > 0 {
		stats.WinRate = float64(stats.WinCount) / float64(stats.TotalResponses)
	}
	return stats
}

// ByModel computes statistics per model id
func ByModel(responses []Response) map[string]Statistics {
	grouped := make(map[string][]Response)
	for _, r := range responses {
		grouped[r.ModelID] = append(grouped[r.ModelID], r)
	}

	out := make(map[string]Statistics, len(grouped))
	for model, rs := range grouped {
		out[model] = Aggregate(rs)
	}
	return out
}

// ValidRating reports whether stars is within [MinRating, MaxRating]
func ValidRating(stars int) bool {
	return stars >= MinRating && stars <= MaxRating
}
