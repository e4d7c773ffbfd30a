// Package guide generates organic farming principle cards for a region.
package guide

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/kjstillabower/agri-advisor/internal/llm"
	"github.com/kjstillabower/agri-advisor/internal/models"
	"github.com/kjstillabower/agri-advisor/internal/observability"
)

var (
	errNotList      = errors.New("response is not a list")
	errMissingField = errors.New("missing required fields in response")
)

// Unavailable is returned when the model cannot be reached or its output has
// the wrong shape.
var Unavailable = models.GuideItem{
	Icon:        "⚠️",
	Title:       "Service Unavailable",
	Description: "Unable to generate farming guide at this time. Please try again later.",
}

// FormatError is returned when the model output is not JSON, even after repair.
func FormatError(err error) models.GuideItem {
	return models.GuideItem{
		Icon:        "❌",
		Title:       "Format Error",
		Description: fmt.Sprintf("Could not parse AI response: %v", err),
	}
}

// Generator builds guides with a language model.
type Generator struct {
	model  llm.Generator
	logger *zap.Logger
}

// New returns a Generator. model may be nil, in which case every guide is
// the Unavailable card.
func New(model llm.Generator, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{model: model, logger: logger}
}

// Generate returns the guide items for location. It never fails: errors are
// reported as a single canned item.
func (g *Generator) Generate(ctx context.Context, location string) []models.GuideItem {
	logger := observability.LoggerFromContext(ctx, g.logger)
	if g.model == nil {
		logger.Warn("guide model not configured")
		return []models.GuideItem{Unavailable}
	}

	text, err := g.model.Generate(ctx, Prompt(location))
	if err != nil {
		logger.Error("guide generation failed", zap.String("location", location), zap.Error(err))
		return []models.GuideItem{Unavailable}
	}

	items, err := Parse(text)
	var syntaxErr *json.SyntaxError
	switch {
	case err == nil:
		return items
	case errors.As(err, &syntaxErr):
		logger.Error("guide response is not JSON", zap.Error(err), zap.String("response", text))
		return []models.GuideItem{FormatError(err)}
	default:
		logger.Error("guide response has wrong shape", zap.Error(err))
		return []models.GuideItem{Unavailable}
	}
}

// Parse decodes a model reply into guide items. Markdown fences are removed
// and malformed JSON is repaired before decoding. A *json.SyntaxError means
// the reply could not be read as JSON at all.
func Parse(text string) ([]models.GuideItem, error) {
	text = stripFences(text)

	var raw interface{}
	var syntaxErr error
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		syntaxErr = err
		repaired, rerr := jsonrepair.JSONRepair(text)
		if rerr != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return nil, syntaxErr
		}
	}

	items, err := toItems(raw)
	if err != nil && syntaxErr != nil {
		// Repair can turn prose into a list of strings; that is still
		// unreadable output, not a wrongly shaped guide.
		return nil, syntaxErr
	}
	return items, err
}

func toItems(raw interface{}) ([]models.GuideItem, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, errNotList
	}
	items := make([]models.GuideItem, 0, len(list))
	for _, v := range list {
		obj, ok := v.(map[string]interface{})
		if !ok {
			return nil, errMissingField
		}
		icon, ok1 := obj["icon"].(string)
		title, ok2 := obj["title"].(string)
		desc, ok3 := obj["description"].(string)
		if !ok1 || !ok2 || !ok3 {
			return nil, errMissingField
		}
		items = append(items, models.GuideItem{Icon: icon, Title: title, Description: desc})
	}
	return items, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// Prompt is the instruction sent to the model for location.
func Prompt(location string) string {
	return fmt.Sprintf(promptTemplate, location, location, location)
}

const promptTemplate = `You are an expert organic farming advisor.
Generate a JSON array of farming principles for organic farming in %s.
Each item must have fields: icon, title, description.

Example format:
[
  {
    "icon": "🌱",
    "title": "Soil Health Management",
    "description": "Build organic matter through composting, green manure, and cover crops to improve soil structure and fertility"
  },
  {
    "icon": "🔄",
    "title": "Crop Rotation",
    "description": "Rotate crops to prevent soil depletion, break pest cycles, and maintain soil nutrients"
  },
  {
    "icon": "🐞",
    "title": "Natural Pest Control",
    "description": "Use beneficial insects, companion planting, and organic pesticides to manage pests"
  },
  {
    "icon": "💧",
    "title": "Water Conservation",
    "description": "Implement drip irrigation, rainwater harvesting, and mulching to optimize water usage"
  },
  {
    "icon": "🌾",
    "title": "Native Crop Selection",
    "description": "Choose crop varieties that are well-suited to %s's climate and soil conditions"
  }
]

Return only valid JSON format without any additional text, explanations, or markdown code blocks.
Focus on principles specific to %s and organic farming practices.`
