package api

import (
	"math"
	"sort"

	"p2p-exchange-go/internal/models"
)

type badgeRule struct {
	badge    models.Badge
	priority int
	earned   func(summary *models.RatingSummary) bool
}

var badgeRules = []badgeRule{
	// Experience tiers by completed deal count
	{models.Badge{Id: "newcomer", Name: "Newcomer", Icon: "🌱"}, 1, func(r *models.RatingSummary) bool {
		return r.TotalDeals >= 1 && r.TotalDeals < 10
	}},
	{models.Badge{Id: "trader", Name: "Trader", Icon: "📊"}, 2, func(r *models.RatingSummary) bool {
		return r.TotalDeals >= 10 && r.TotalDeals < 50
	}},
	{models.Badge{Id: "pro", Name: "Pro", Icon: "⭐"}, 3, func(r *models.RatingSummary) bool {
		return r.TotalDeals >= 50 && r.TotalDeals < 100
	}},
	{models.Badge{Id: "expert", Name: "Expert", Icon: "🏆"}, 4, func(r *models.RatingSummary) bool {
		return r.TotalDeals >= 100
	}},

	// Trust
	{models.Badge{Id: "verified", Name: "Verified", Icon: "✅"}, 10, func(r *models.RatingSummary) bool {
		return r.TotalDeals >= 10 && r.AverageRating >= 4.5
	}},
	{models.Badge{Id: "trusted", Name: "Trusted", Icon: "🛡️"}, 11, func(r *models.RatingSummary) bool {
		return r.TotalDeals >= 50 && r.AverageRating >= 4.8
	}},
}

// BuildRatingSummary derives the public summary and badges, highest priority badge first
func BuildRatingSummary(userId string, stats *models.RatingStats) *models.RatingSummary {
	summary := &models.RatingSummary{
		UserId:          userId,
		TotalDeals:      stats.TotalDeals,
		TotalVolume:     stats.TotalVolume,
		PositiveReviews: stats.PositiveReviews,
		NegativeReviews: stats.NegativeReviews,
		Badges:          []models.Badge{},
	}
	if stats.RatingCount > 0 {
		summary.AverageRating = float64(stats.ScoreSum) / float64(stats.RatingCount)
	}

	earned := make([]badgeRule, 0, len(badgeRules))
	for _, rule := range badgeRules {
		if rule.earned(summary) {
			earned = append(earned, rule)
		}
	}
	sort.Slice(earned, func(i, j int) bool { return earned[i].priority > earned[j].priority })

	for _, rule := range earned {
		summary.Badges = append(summary.Badges, rule.badge)
	}

	// Thresholds apply to the exact average; the rounded value is for display
	summary.AverageRating = math.Round(summary.AverageRating*100) / 100
	return summary
}
