package llm

const OpenAIBaseURL = "https://api.openai.com"

// NewOpenAI creates a client for the hosted OpenAI API.
func NewOpenAI(apiKey, model string, jsonMode bool) *OpenAICompatible {
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:    OpenAIBaseURL,
		APIKey:     apiKey,
		Model:      model,
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
		JSONMode:   jsonMode,
	})
}
