package core

import (
	htmltmpl "html/template"
	"strings"
	"testing"
	texttmpl "text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorsLogger struct {
	errors []string
}

func (l *errorsLogger) Debug(string, ...interface{}) {}
func (l *errorsLogger) Info(string, ...interface{})  {}
func (l *errorsLogger) Warn(string, ...interface{})  {}
func (l *errorsLogger) Error(msg string, _ ...interface{}) {
	l.errors = append(l.errors, msg)
}
func (l *errorsLogger) Fatal(msg string, _ ...interface{}) {
	l.errors = append(l.errors, msg)
}

func TestParseEmailTemplates(t *testing.T) {
	logger := new(errorsLogger)
	ParseEmailTemplates(&Config{TestMode: true, FrontendBaseURL: "http://localhost:3000"}, logger)
	require.Empty(t, logger.errors)

	for _, name := range []string{"broadsheet", "password_reset"} {
		t.Run(name, func(t *testing.T) {
			entry, ok := templates[name]
			require.True(t, ok)

			_, ok = entry[".txt"].(*texttmpl.Template)
			assert.True(t, ok, "missing .txt template")
			_, ok = entry[".gohtml"].(*htmltmpl.Template)
			assert.True(t, ok, "missing .gohtml template")
		})
	}

	// base templates are layouts, not messages
	_, ok := templates["_base"]
	assert.False(t, ok)
}

func TestEmailMessage_Render(t *testing.T) {
	logger := new(errorsLogger)
	ParseEmailTemplates(&Config{TestMode: true, FrontendBaseURL: "http://localhost:3000"}, logger)
	require.Empty(t, logger.errors)

	msg := EmailMessage{
		TemplateName: "password_reset",
		TemplateData: map[string]string{"Name": "Yaa", "UID": "dWlk", "Token": "tok-en"},
	}
	require.NoError(t, msg.Render())
	require.True(t, msg.HasContent())

	link := "http://localhost:3000/password-reset/dWlk/tok-en"
	assert.Contains(t, msg.TextContent, "Hello Yaa,")
	assert.Contains(t, msg.TextContent, link)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(msg.TextContent), "http://localhost:3000"))
	assert.Contains(t, msg.HTMLContent, `href="`+link+`"`)
}
