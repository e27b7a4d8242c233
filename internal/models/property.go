// internal/models/property.go
package models

// PropertyRecord is a listing owned by a chatbot. The engine only reads it.
type PropertyRecord struct {
	ID           string   `json:"id"`
	BotID        string   `json:"botId,omitempty"`
	Location     string   `json:"location"`
	City         string   `json:"city"`
	Country      string   `json:"country"`
	Size         float64  `json:"size"`
	SizeUnit     string   `json:"sizeUnit"`
	Price        float64  `json:"price"`
	Currency     string   `json:"currency"`
	Bedrooms     int      `json:"bedrooms"`
	PropertyType string   `json:"propertyType"`
	Features     []string `json:"features,omitempty"`
	ImageLinks   []string `json:"imageLinks,omitempty"`
	IsActive     bool     `json:"isActive"`
}

// Budget bounds a property search. Nil bounds are open.
type Budget struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// RequirementRecord is what a visitor is looking for, parsed from free text.
// Nil fields mean the visitor did not say.
type RequirementRecord struct {
	Budget       *Budget  `json:"budget,omitempty"`
	Location     *string  `json:"location,omitempty"`
	PropertyType *string  `json:"propertyType,omitempty"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Features     []string `json:"features"`
}
