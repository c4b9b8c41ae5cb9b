package llm

import "strings"

func NewCustomOpenAI(baseURL, apiKey, model string, jsonMode bool) *OpenAICompatible {
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
		JSONMode:   jsonMode,
	})
}
