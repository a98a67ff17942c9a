package ai

import (
	"slices"
	"strings"

	"google.golang.org/genai"
)

// ModelInfo represents information about an AI model
type ModelInfo struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"displayName,omitempty"`
	Version          string   `json:"version,omitempty"`
	SupportedActions []string `json:"supportedActions,omitempty"`
	Available        bool     `json:"available"`
	Error            string   `json:"error,omitempty"`
}

// TrimModelPrefix strips the "models/" resource prefix
func TrimModelPrefix(name string) string {
	return strings.TrimPrefix(name, "models/")
}

func toModelInfo(m *genai.Model) ModelInfo {
	return ModelInfo{
		Name:             TrimModelPrefix(m.Name),
		DisplayName:      m.DisplayName,
		Version:          m.Version,
		SupportedActions: m.SupportedActions,
		Available:        true,
	}
}

// FilterCapable keeps the models that support capability, in listing order
func FilterCapable(models []ModelInfo, capability string) []ModelInfo {
	var capable []ModelInfo
	for _, m := range models {
		if capability == "" || slices.Contains(m.SupportedActions, capability) {
			capable = append(capable, m)
		}
	}
	return capable
}

// SelectModel picks the first capable model whose name contains prefer, then
// the first capable model, then fallback
func SelectModel(models []ModelInfo, capability, prefer, fallback string) string {
	capable := FilterCapable(models, capability)
	if prefer != "" {
		for _, m := range capable {
			if strings.Contains(strings.ToLower(m.Name), strings.ToLower(prefer)) {
				return m.Name
			}
		}
	}
	if len(capable) > 0 {
		return capable[0].Name
	}
	return fallback
}
