package custom

import (
	"encoding/json"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/httpclient"
	"github.com/nulzo/chat-router/internal/llm"
)

const NoMealInformation = "No meal information available"

// Recommendation sends {question} and reads the first meal's
// calorie_per_component.
type Recommendation struct{}

func (Recommendation) Name() string {
	return llm.FamilyRecommendation
}

func (Recommendation) BuildRequest(p config.ProviderConfig, message string, _ []llm.Turn) (*httpclient.Request, error) {
	return llm.NewRequest(p, llm.AuthBearer, map[string]string{"question": message}), nil
}

func (Recommendation) ParseResponse(p config.ProviderConfig, raw []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return invalidFormat(p)
	}
	mealsRaw, ok := obj["meals"]
	if !ok {
		return invalidFormat(p)
	}

	var meals []map[string]any
	if err := json.Unmarshal(mealsRaw, &meals); err != nil || len(meals) == 0 {
		return NoMealInformation
	}

	switch v := meals[0]["calorie_per_component"].(type) {
	case nil:
		return NoMealInformation
	case string:
		if v == "" {
			return NoMealInformation
		}
		return v
	case bool:
		if !v {
			return NoMealInformation
		}
	case float64:
		if v == 0 {
			return NoMealInformation
		}
	}

	// structured values are rendered as compact JSON
	out, err := json.Marshal(meals[0]["calorie_per_component"])
	if err != nil {
		return NoMealInformation
	}
	return string(out)
}

func invalidFormat(p config.ProviderConfig) string {
	return "Invalid response format from " + llm.DisplayName(p)
}
