package engine

import "os"

// Credential environment variables, in precedence order after any
// caller-supplied key.
var apiKeyEnvVars = []string{
	"LANGEXTRACT_API_KEY",
	"GEMINI_API_KEY",
	"OPENAI_API_KEY",
}

// ResolveAPIKey picks the model-provider credential: the caller's value
// wins, then the well-known environment variables in order. Empty means no
// credential was found anywhere.
func ResolveAPIKey(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range apiKeyEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
