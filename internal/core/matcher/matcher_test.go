package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chatbot-engine/internal/models"
)

func ptr[T any](v T) *T { return &v }

func catalog() []models.PropertyRecord {
	return []models.PropertyRecord{
		{ID: "p1", Location: "DHA Phase 6", City: "Lahore", Price: 2500000, Bedrooms: 4, PropertyType: "house"},
		{ID: "p2", Location: "Gulberg III", City: "Lahore", Price: 1500000, Bedrooms: 3, PropertyType: "flat"},
		{ID: "p3", Location: "Bahria Town", City: "Karachi", Price: 1200000, Bedrooms: 2, PropertyType: "house"},
		{ID: "p4", Location: "Clifton Block 5", City: "Karachi", Price: 9000000, Bedrooms: 0, PropertyType: "commercial"},
	}
}

func ids(props []models.PropertyRecord) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.ID
	}
	return out
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		req  *models.RequirementRecord
		want []string
	}{
		{
			name: "budget and bedrooms",
			req: &models.RequirementRecord{
				Budget:   &models.Budget{Min: ptr(1000000.0), Max: ptr(2000000.0)},
				Bedrooms: ptr(3),
			},
			want: []string{"p2"},
		},
		{
			name: "empty requirement matches everything",
			req:  &models.RequirementRecord{},
			want: []string{"p1", "p2", "p3", "p4"},
		},
		{
			name: "min only",
			req:  &models.RequirementRecord{Budget: &models.Budget{Min: ptr(2000000.0)}},
			want: []string{"p1", "p4"},
		},
		{
			name: "max only",
			req:  &models.RequirementRecord{Budget: &models.Budget{Max: ptr(1500000.0)}},
			want: []string{"p2", "p3"},
		},
		{
			name: "location matches city case-insensitively",
			req:  &models.RequirementRecord{Location: ptr("karachi")},
			want: []string{"p3", "p4"},
		},
		{
			name: "location substring of property location",
			req:  &models.RequirementRecord{Location: ptr("dha")},
			want: []string{"p1"},
		},
		{
			name: "property type substring",
			req:  &models.RequirementRecord{PropertyType: ptr("HOUSE")},
			want: []string{"p1", "p3"},
		},
		{
			name: "all predicates combined",
			req: &models.RequirementRecord{
				Budget:       &models.Budget{Max: ptr(3000000.0)},
				Location:     ptr("lahore"),
				PropertyType: ptr("house"),
				Bedrooms:     ptr(4),
			},
			want: []string{"p1"},
		},
		{
			name: "nothing matches",
			req:  &models.RequirementRecord{Location: ptr("Islamabad")},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Match(tt.req, catalog())))
		})
	}
}

func TestMatch_BudgetBoundaryCases(t *testing.T) {
	req := &models.RequirementRecord{
		Budget:   &models.Budget{Min: ptr(1000000.0), Max: ptr(2000000.0)},
		Bedrooms: ptr(3),
	}

	over := models.PropertyRecord{ID: "over", Price: 2500000, Bedrooms: 3}
	within := models.PropertyRecord{ID: "within", Price: 1500000, Bedrooms: 3}

	assert.Empty(t, Match(req, []models.PropertyRecord{over}))
	assert.Equal(t, []string{"within"}, ids(Match(req, []models.PropertyRecord{within})))
}

func TestMatch_NilRequirement(t *testing.T) {
	assert.Empty(t, Match(nil, catalog()))
}

func TestTop(t *testing.T) {
	all := Match(&models.RequirementRecord{}, catalog())
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids(Top(all, DefaultMaxMatches)))
	assert.Len(t, Top(all, 10), 4)
	assert.Empty(t, Top(all, 0))
}
