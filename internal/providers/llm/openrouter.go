package llm

import "github.com/sandevgo/memobot/internal/core"

const OpenRouterBaseURL = "https://openrouter.ai/api"

func NewOpenRouter(apiKey, model string, jsonMode bool) *OpenAICompatible {
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:    OpenRouterBaseURL,
		APIKey:     apiKey,
		Model:      model,
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
		ExtraHeaders: map[string]string{
			"X-Title": core.AppName,
		},
		JSONMode: jsonMode,
	})
}
