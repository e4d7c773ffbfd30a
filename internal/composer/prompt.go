package composer

import (
	"fmt"
	"strings"

	"github.com/kjstillabower/agri-advisor/internal/models"
)

const (
	maxPromptPassages = 2
	maxPassageChars   = 500
)

// PromptInput is everything the model sees for one query.
type PromptInput struct {
	Query    string
	Passages []models.Passage
	Location *models.LocationInfo
	Weather  *models.WeatherInfo
	Season   models.SeasonInfo
	Alerts   []string
	Crops    []string
}

const promptTemplate = `You are an expert agricultural assistant. Provide concise, practical answers (max %[1]d words).

CONTEXT FROM DOCUMENTS:
%[2]s

ADDITIONAL INFORMATION:
%[3]s
%[4]s
%[5]s
%[6]s
%[7]s

QUESTION: %[8]s

INSTRUCTIONS:
1. Answer based on the context when possible
2. Incorporate location, weather, and seasonal information
3. Be concise and practical (under %[1]d words)
4. Focus on actionable advice
5. If context doesn't fully answer, provide general agricultural advice
6. For crop recommendations, suggest specific crops based on location, weather and season
7. Always mention the location and weather conditions in your response
8. Include relevant agricultural alerts and crop suggestions if available

ANSWER:
`

// BuildPrompt renders the single prompt shared by the primary and fallback
// models. Lines for unavailable location or weather are left empty.
func BuildPrompt(in PromptInput, maxWords int) string {
	var contextParts []string
	for i, p := range in.Passages {
		if i == maxPromptPassages {
			break
		}
		contextParts = append(contextParts, truncateChars(p.Text, maxPassageChars))
	}

	location := ""
	if in.Location.OK() {
		location = fmt.Sprintf("User's Location: %s, %s, %s",
			orUnknown(in.Location.City), orUnknown(in.Location.State), orUnknown(in.Location.Country))
	}
	weather := ""
	if in.Weather.OK() {
		weather = fmt.Sprintf("Current Weather: %s°C, %s, Humidity: %d%%",
			formatTemp(in.Weather.Temperature), in.Weather.Conditions, in.Weather.Humidity)
	}
	season := fmt.Sprintf("Current Season: %s - %s", in.Season.Current, in.Season.Description)
	alerts := ""
	if len(in.Alerts) > 0 {
		alerts = "Agricultural Alerts: " + strings.Join(in.Alerts, ", ")
	}
	crops := ""
	if len(in.Crops) > 0 {
		crops = "Crop Suggestions: " + strings.Join(in.Crops, ", ")
	}

	return fmt.Sprintf(promptTemplate, maxWords,
		strings.Join(contextParts, "\n\n"),
		location, weather, season, alerts, crops,
		in.Query)
}

// truncateChars cuts s to at most n runes.
func truncateChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
