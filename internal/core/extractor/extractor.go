// Package extractor turns a free-text visitor message into a RequirementRecord.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/genai"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/common/metrics"
	"chatbot-engine/internal/common/validation"
	"chatbot-engine/internal/models"
)

const (
	Temperature = 0.3
	MaxTokens   = 300
)

const promptTemplate = `Extract property requirements from this message. Return JSON only:
{
  "budget": {"min": number, "max": number, "currency": "PKR/USD"},
  "location": "string",
  "propertyType": "house/flat/commercial",
  "bedrooms": number,
  "features": ["array of features"]
}

Message: %s

If information is not mentioned, use null.`

type Extractor struct {
	completer genai.Completer
	logger    logger.Logger
}

func New(completer genai.Completer, log logger.Logger) *Extractor {
	return &Extractor{completer: completer, logger: log}
}

// Extract asks the model for requirements. It never fails: any provider,
// decode or schema error is logged and yields nil.
func (e *Extractor) Extract(ctx context.Context, message string) *models.RequirementRecord {
	req, err := e.extract(ctx, message)
	if err != nil {
		metrics.ExtractionFailures.Inc()
		e.logger.Warn("Requirement extraction failed", map[string]interface{}{
			"errorCode": string(apperrors.ErrCodeExtractionParseFailure),
			"error":     err.Error(),
		})
		return nil
	}
	return req
}

func (e *Extractor) extract(ctx context.Context, message string) (*models.RequirementRecord, error) {
	res, err := e.completer.Complete(ctx, genai.CompletionRequest{
		Messages:    []models.Message{{Role: models.RoleUser, Content: fmt.Sprintf(promptTemplate, message)}},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}
	return Parse(res.Text)
}

// Parse strips markdown fences, validates against the requirement schema
// and decodes the record.
func Parse(raw string) (*models.RequirementRecord, error) {
	doc := []byte(StripCodeFences(raw))

	if !json.Valid(doc) {
		return nil, fmt.Errorf("%w: response is not JSON", apperrors.ErrExtractionParseFailure)
	}
	if err := validation.RequirementSchema.ValidateJSON(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExtractionParseFailure, err)
	}

	var rec rawRequirement
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExtractionParseFailure, err)
	}
	return rec.record(), nil
}

// rawRequirement mirrors RequirementRecord with lenient numeric fields.
type rawRequirement struct {
	Budget *struct {
		Min      lenientNumber `json:"min"`
		Max      lenientNumber `json:"max"`
		Currency *string       `json:"currency"`
	} `json:"budget"`
	Location     *string       `json:"location"`
	PropertyType *string       `json:"propertyType"`
	Bedrooms     lenientNumber `json:"bedrooms"`
	Features     []string      `json:"features"`
}

func (r rawRequirement) record() *models.RequirementRecord {
	req := &models.RequirementRecord{
		Location:     r.Location,
		PropertyType: r.PropertyType,
		Features:     r.Features,
	}
	if r.Budget != nil && (r.Budget.Min.set || r.Budget.Max.set) {
		req.Budget = &models.Budget{Min: r.Budget.Min.ptr(), Max: r.Budget.Max.ptr()}
		if r.Budget.Currency != nil {
			req.Budget.Currency = *r.Budget.Currency
		}
	}
	if r.Bedrooms.set {
		// 3.0 and "3" both mean three bedrooms; fractions truncate.
		n := int(r.Bedrooms.value)
		req.Bedrooms = &n
	}
	if req.Features == nil {
		req.Features = []string{}
	}
	return req
}

// lenientNumber accepts a JSON number or a numeric string. null and ""
// leave it unset.
type lenientNumber struct {
	value float64
	set   bool
}

func (n *lenientNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = strings.TrimSpace(unquoted)
		if s == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	n.value, n.set = v, true
	return nil
}

func (n lenientNumber) ptr() *float64 {
	if !n.set {
		return nil
	}
	v := n.value
	return &v
}

// StripCodeFences removes a surrounding ```json ... ``` block.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
