package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshogin/flownodes/internal/domain/models"
)

const vcap = `{
  "conversation": [
    {"name": "my-conversation", "label": "conversation",
     "credentials": {"username": "cu", "password": "cp", "url": "https://example.test/conversation/api"}}
  ],
  "user-provided": [
    {"name": "shared-natural-language-understanding", "label": "user-provided",
     "credentials": {"username": "nu", "password": "np"}}
  ]
}`

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("VCAP_SERVICES", vcap)

	e, err := LoadEnvironment()
	require.NoError(t, err)

	creds, ok := e.BoundCredentials(ServiceConversation)
	require.True(t, ok)
	assert.Equal(t, models.Credentials{Username: "cu", Password: "cp"}, creds)

	creds, ok = e.BoundCredentials(ServiceNLU)
	require.True(t, ok, "matched by instance name")
	assert.Equal(t, models.Credentials{Username: "nu", Password: "np"}, creds)

	_, ok = e.BoundCredentials("discovery")
	assert.False(t, ok)
}

func TestLoadEnvironment_Unset(t *testing.T) {
	t.Setenv("VCAP_SERVICES", "")

	e, err := LoadEnvironment()
	require.NoError(t, err)

	_, ok := e.BoundCredentials(ServiceConversation)
	assert.False(t, ok)
}

func TestLoadEnvironment_Malformed(t *testing.T) {
	t.Setenv("VCAP_SERVICES", "{not json")

	_, err := LoadEnvironment()
	assert.Error(t, err)
}

func TestBoundCredentials_NilEnvironment(t *testing.T) {
	var e *Environment

	_, ok := e.BoundCredentials(ServiceConversation)
	assert.False(t, ok)
}
