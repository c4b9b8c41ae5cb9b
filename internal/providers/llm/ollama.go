package llm

const OllamaBaseURL = "http://localhost:11434"

// NewOllama targets Ollama's OpenAI-compatible endpoints. The key is optional
// and only sent when set, for instances behind an authenticating proxy.
func NewOllama(baseURL, apiKey, model string, jsonMode bool) *OpenAICompatible {
	if baseURL == "" {
		baseURL = OllamaBaseURL
	}
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
		JSONMode:   jsonMode,
	})
}
