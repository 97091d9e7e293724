package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/mshogin/flownodes/internal/domain/models"
)

// Service identifiers used to look up bound credentials.
const (
	ServiceConversation = "conversation"
	ServiceNLU          = "natural-language-understanding"
)

// VCAPServices is the decoded VCAP_SERVICES document, keyed by service label.
type VCAPServices map[string][]VCAPService

// VCAPService is one bound service instance.
type VCAPService struct {
	Name        string          `json:"name"`
	Label       string          `json:"label"`
	Credentials VCAPCredentials `json:"credentials"`
}

// VCAPCredentials are the credentials of a bound service instance.
type VCAPCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`
}

// Environment is the part of the process environment the nodes read.
type Environment struct {
	VCAPServices VCAPServices `env:"VCAP_SERVICES"`
}

// LoadEnvironment parses the process environment.
func LoadEnvironment() (*Environment, error) {
	var e Environment
	err := env.ParseWithOptions(&e, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(VCAPServices{}): parseVCAPServices,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &e, nil
}

func parseVCAPServices(v string) (interface{}, error) {
	services := VCAPServices{}
	if strings.TrimSpace(v) == "" {
		return services, nil
	}
	if err := json.Unmarshal([]byte(v), &services); err != nil {
		return nil, fmt.Errorf("invalid VCAP_SERVICES: %w", err)
	}
	return services, nil
}

// Lookup finds the first bound instance whose label or name matches identifier.
func (v VCAPServices) Lookup(identifier string) (VCAPService, bool) {
	labels := make([]string, 0, len(v))
	for label := range v {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		for _, svc := range v[label] {
			if strings.Contains(label, identifier) || strings.Contains(svc.Name, identifier) {
				return svc, true
			}
		}
	}
	return VCAPService{}, false
}

// BoundCredentials returns the credentials of the service bound under identifier.
// The zero value is returned when nothing is bound.
func (e *Environment) BoundCredentials(identifier string) (models.Credentials, bool) {
	if e == nil {
		return models.Credentials{}, false
	}
	svc, ok := e.VCAPServices.Lookup(identifier)
	if !ok {
		return models.Credentials{}, false
	}
	return models.Credentials{
		Username: svc.Credentials.Username,
		Password: svc.Credentials.Password,
	}, true
}
