package models

// Well-known parameter keys.
const (
	ParamWorkspaceID = "workspace_id"
	ParamIntent      = "intent"
	ParamExport      = "export"

	// Workspace listing options.
	ParamPageLimit    = "page_limit"
	ParamIncludeCount = "include_count"
	ParamSort         = "sort"

	// ParamDocument holds a raw workspace document stream when the payload
	// could not be parsed as JSON.
	ParamDocument = "document"
)

// ParameterSet is the argument bundle passed to a remote call.
type ParameterSet map[string]any

// String returns the value at key when it is a non-empty string.
func (p ParameterSet) String(key string) (string, bool) {
	v, ok := p[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Bool returns the boolean value at key, false when absent.
func (p ParameterSet) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

// Clone returns a shallow copy of p.
func (p ParameterSet) Clone() ParameterSet {
	out := make(ParameterSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
