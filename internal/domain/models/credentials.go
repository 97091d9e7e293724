package models

// Credentials authenticate against the remote service.
type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// Complete reports whether both username and password are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// ResolveCredentials applies per-field precedence: bound service credentials win over
// node credentials, and the password falls back to the legacy password field last.
func ResolveCredentials(bound, node Credentials, legacyPassword string) Credentials {
	return Credentials{
		Username: firstNonEmpty(bound.Username, node.Username),
		Password: firstNonEmpty(bound.Password, node.Password, legacyPassword),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
