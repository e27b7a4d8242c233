// Package matcher filters a property catalog against extracted requirements.
package matcher

import (
	"strings"

	"chatbot-engine/internal/models"
)

const DefaultMaxMatches = 3

// Match returns, in input order, every property that satisfies all of the
// requirement's present fields. A nil requirement matches nothing.
func Match(req *models.RequirementRecord, properties []models.PropertyRecord) []models.PropertyRecord {
	matches := []models.PropertyRecord{}
	if req == nil {
		return matches
	}

	for _, p := range properties {
		if matchesBudget(req.Budget, p) &&
			matchesLocation(req.Location, p) &&
			matchesType(req.PropertyType, p) &&
			matchesBedrooms(req.Bedrooms, p) {
			matches = append(matches, p)
		}
	}
	return matches
}

// Top truncates matches to at most n entries.
func Top(matches []models.PropertyRecord, n int) []models.PropertyRecord {
	if n < 0 {
		n = 0
	}
	if len(matches) > n {
		return matches[:n]
	}
	return matches
}

func matchesBudget(b *models.Budget, p models.PropertyRecord) bool {
	if b == nil {
		return true
	}
	if b.Min != nil && p.Price < *b.Min {
		return false
	}
	if b.Max != nil && p.Price > *b.Max {
		return false
	}
	return true
}

func matchesLocation(loc *string, p models.PropertyRecord) bool {
	if loc == nil || *loc == "" {
		return true
	}
	want := strings.ToLower(*loc)
	return strings.Contains(strings.ToLower(p.Location), want) ||
		strings.Contains(strings.ToLower(p.City), want)
}

func matchesType(pt *string, p models.PropertyRecord) bool {
	if pt == nil || *pt == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.PropertyType), strings.ToLower(*pt))
}

func matchesBedrooms(beds *int, p models.PropertyRecord) bool {
	if beds == nil || *beds == 0 {
		return true
	}
	return p.Bedrooms >= *beds
}
