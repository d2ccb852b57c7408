package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botwright/pkg/schema"
)

const sampleWorkflow = `
bot:
  name: portal-report
  headless: true
  report:
    notify: true
    upload: true
    upload_to: reports

variables:
  base_url: https://portal.example.com
  username: ${PORTAL_USER}

actions:
  - type: navigate
    name: open portal
    url: ${base_url}/login
  - type: login
    name: sign in
    url: ${base_url}/login
    username: ${username}
    password: ${PORTAL_PASS}
    username_selector: "#user"
    password_selector: "#pass"
    submit_selector: "#submit"
    success_indicator: "#dashboard"
`

func TestParse_SubstitutesVariablesAndEnv(t *testing.T) {
	t.Setenv("PORTAL_USER", "reporter")
	t.Setenv("PORTAL_PASS", "hunter2")

	doc, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)

	assert.Equal(t, "portal-report", doc.Bot.Name)
	assert.True(t, doc.Bot.Headless)
	require.NotNil(t, doc.Bot.Report)
	assert.True(t, doc.Bot.Report.Notify)
	assert.Equal(t, "reports", doc.Bot.Report.UploadTo)

	require.Len(t, doc.Actions, 2)
	assert.Equal(t, "https://portal.example.com/login", doc.Actions[0]["url"])
	// Document variables win, and may themselves reference the environment.
	assert.Equal(t, "reporter", doc.Actions[1]["username"])
	assert.Equal(t, "hunter2", doc.Actions[1]["password"])
}

func TestParse_VariablesShadowEnvironment(t *testing.T) {
	t.Setenv("base_url", "https://wrong.example.com")
	t.Setenv("PORTAL_USER", "reporter")
	t.Setenv("PORTAL_PASS", "hunter2")

	doc, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.com/login", doc.Actions[0]["url"])
}

func TestParse_UnresolvedPlaceholder(t *testing.T) {
	os.Unsetenv("DEFINITELY_NOT_SET_12345")
	_, err := Parse([]byte(`
bot:
  name: x
actions:
  - type: navigate
    url: ${DEFINITELY_NOT_SET_12345}/page
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFINITELY_NOT_SET_12345")
}

func TestParse_SchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing bot":      "actions:\n  - type: navigate\n",
		"missing actions":  "bot:\n  name: x\n",
		"empty actions":    "bot:\n  name: x\nactions: []\n",
		"missing type":     "bot:\n  name: x\nactions:\n  - name: no type\n",
		"unknown top key":  "bot:\n  name: x\nextra: true\nactions:\n  - type: navigate\n",
		"bad retry_count":  "bot:\n  name: x\nactions:\n  - type: navigate\n    retry_count: 0\n",
		"missing bot name": "bot:\n  headless: true\nactions:\n  - type: navigate\n",
	}
	for name, yml := range cases {
		_, err := Parse([]byte(yml))
		require.Error(t, err, name)
		botErr, ok := err.(*schema.BotError)
		require.True(t, ok, name)
		assert.Equal(t, schema.ErrCodeValidation, botErr.Code, name)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("bot: [unclosed"))
	require.Error(t, err)
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := Parse([]byte(""))
	require.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("PORTAL_USER", "reporter")
	t.Setenv("PORTAL_PASS", "hunter2")

	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleWorkflow), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "portal-report", doc.Bot.Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	botErr, ok := err.(*schema.BotError)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeNotFound, botErr.Code)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "Downloads"), ExpandHome("~/Downloads"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/tmp/x", ExpandHome("/tmp/x"))
	assert.Equal(t, "rel/~x", ExpandHome("rel/~x"))
}
