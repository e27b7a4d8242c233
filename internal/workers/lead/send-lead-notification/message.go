// internal/workers/lead/send-lead-notification/message.go
package sendleadnotification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"chatbot-engine/internal/models"
	"chatbot-engine/internal/pipeline"
)

var emailTemplate = template.Must(template.New("lead").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="color: #4A90E2;">New Lead Captured!</h2>
<div style="background: #f5f5f5; padding: 20px; border-radius: 8px; margin: 20px 0;">
<p><strong>Name:</strong> {{or .Lead.Name "Not provided"}}</p>
<p><strong>Email:</strong> {{or .Lead.Email "Not provided"}}</p>
<p><strong>Phone:</strong> {{or .Lead.Phone "Not provided"}}</p>
{{- if .Lead.InterestedIn}}
<p><strong>Interested In:</strong> {{.Lead.InterestedIn}}</p>
{{- end}}
{{- if .Lead.PreferredLocation}}
<p><strong>Location:</strong> {{.Lead.PreferredLocation}}</p>
{{- end}}
{{- if .Budget}}
<p><strong>Budget:</strong> {{.Budget}}</p>
{{- end}}
</div>
<p><strong>Quality Score:</strong> {{.Stars}}</p>
<p style="color: #666; font-size: 12px; margin-top: 30px;">Lead ID: {{.Lead.LeadID}}<br>Captured at: {{.CapturedAt}}</p>
</div>`))

func emailSubject(botName string) string {
	return fmt.Sprintf("New Lead from %s! 🎯", botName)
}

func emailBody(input *Input) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, map[string]interface{}{
		"Lead":       input.Lead,
		"Budget":     formatBudget(input.Lead.Budget),
		"Stars":      strings.Repeat("⭐", clampScore(input.Lead.QualityScore)),
		"CapturedAt": input.CapturedAt,
	})
	if err != nil {
		return "", fmt.Errorf("render lead email: %w", err)
	}
	return buf.String(), nil
}

// whatsAppMessage is the short-form text sent over SNS.
func whatsAppMessage(input *Input) string {
	lead := input.Lead
	var b strings.Builder

	fmt.Fprintf(&b, "🎯 *New Lead from %s!*\n\n", input.BotName)
	if lead.Name != "" {
		fmt.Fprintf(&b, "👤 *Name:* %s\n", lead.Name)
	}
	if lead.Email != "" {
		fmt.Fprintf(&b, "📧 *Email:* %s\n", lead.Email)
	}
	if lead.Phone != "" {
		fmt.Fprintf(&b, "📱 *Phone:* %s\n", lead.Phone)
	}
	if lead.InterestedIn != "" {
		fmt.Fprintf(&b, "\n🏠 *Interested In:* %s\n", lead.InterestedIn)
	}
	if lead.PreferredLocation != "" {
		fmt.Fprintf(&b, "📍 *Location:* %s\n", lead.PreferredLocation)
	}
	if budget := formatBudget(lead.Budget); budget != "" {
		fmt.Fprintf(&b, "💰 *Budget:* %s\n", budget)
	}

	score := clampScore(lead.QualityScore)
	fmt.Fprintf(&b, "\n⭐ *Quality Score:* %s%s", strings.Repeat("★", score), strings.Repeat("☆", 5-score))
	fmt.Fprintf(&b, "\n\n🆔 Lead ID: %s", lead.LeadID)
	if input.CapturedAt != "" {
		fmt.Fprintf(&b, "\n🕐 Time: %s", input.CapturedAt)
	}
	return b.String()
}

func formatBudget(b *models.Budget) string {
	if b == nil || (b.Min == nil && b.Max == nil) {
		return ""
	}
	bound := func(v *float64) string {
		if v == nil {
			return "any"
		}
		return pipeline.FormatPrice(*v)
	}
	return strings.TrimSpace(bound(b.Min) + " - " + bound(b.Max) + " " + b.Currency)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 5 {
		return 5
	}
	return score
}
