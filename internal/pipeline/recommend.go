package pipeline

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"chatbot-engine/internal/models"
)

const (
	recommendationHeader = "\n\n🏠 I found some properties that might interest you:\n\n"
	recommendationFooter = "Would you like more details about any of these properties?"
)

var printer = message.NewPrinter(language.English)

// FormatRecommendations renders matched listings as the text appended to a
// reply.
func FormatRecommendations(matches []models.PropertyRecord) string {
	var b strings.Builder
	b.WriteString(recommendationHeader)
	for i, p := range matches {
		b.WriteString(printer.Sprintf("%d. %s in %s\n", i+1, p.PropertyType, p.Location))
		b.WriteString("   💰 Price: " + FormatPrice(p.Price) + " " + p.Currency + "\n")
		b.WriteString("   🛏️ Bedrooms: " + strconv.Itoa(p.Bedrooms) + "\n")
		b.WriteString("   📐 Size: " + strconv.FormatFloat(p.Size, 'f', -1, 64) + " " + p.SizeUnit + "\n")
		if len(p.ImageLinks) > 0 {
			b.WriteString("   📷 View: " + p.ImageLinks[0] + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(recommendationFooter)
	return b.String()
}

// FormatPrice groups thousands, keeping up to two decimals for fractional
// prices.
func FormatPrice(price float64) string {
	if price == float64(int64(price)) {
		return printer.Sprintf("%d", int64(price))
	}
	return printer.Sprintf("%.2f", price)
}
