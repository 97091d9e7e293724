package models

import "sort"

// NLU feature switches, keyed by node configuration name, mapped to the API feature name.
var nluFeatures = map[string]string{
	"categories":    "categories",
	"concepts":      "concepts",
	"doc-emotion":   "emotion",
	"doc-sentiment": "sentiment",
	"entity":        "entities",
	"keyword":       "keywords",
	"metadata":      "metadata",
	"relation":      "relations",
	"semantic":      "semantic_roles",
}

// DefaultMaxConcepts is the concepts limit used when the node does not configure one.
const DefaultMaxConcepts = 8

// FeatureName returns the API feature name for a configuration switch.
func FeatureName(configKey string) (string, bool) {
	name, ok := nluFeatures[configKey]
	return name, ok
}

// FeatureKeys returns the configuration switches in sorted order.
func FeatureKeys() []string {
	keys := make([]string, 0, len(nluFeatures))
	for k := range nluFeatures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AnalyzeOptions is the request body of a feature-extraction call.
type AnalyzeOptions struct {
	Text     string                    `json:"text,omitempty"`
	URL      string                    `json:"url,omitempty"`
	Features map[string]map[string]any `json:"features"`
}
