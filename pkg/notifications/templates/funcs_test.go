package templates_test

import (
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicholas-fedor/dockerpoller/pkg/notifications/templates"
)

func render(t *testing.T, text string, data any) (string, error) {
	t.Helper()

	tpl, err := template.New("").Funcs(templates.Funcs).Parse(text)
	require.NoError(t, err)

	var out strings.Builder
	err = tpl.Execute(&out, data)

	return out.String(), err
}

func TestTagFuncs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"version of variant tag", `{{TagVersion "3.9-alpine"}}`, "3.9"},
		{"variant of variant tag", `{{TagVariant "3.9-alpine"}}`, "alpine"},
		{"variant keeps later dashes", `{{TagVariant "1.2-rc1-slim"}}`, "rc1-slim"},
		{"plain tag has no variant", `[{{TagVariant "1.11"}}]`, "[]"},
		{"plain tag is its version", `{{TagVersion "1.11"}}`, "1.11"},
		{"title", `{{Title "build host"}}`, "Build Host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(t, tt.text, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortTags(t *testing.T) {
	tags := []string{"1.100", "1.2", "1.11"}

	got, err := render(t, `{{range SortTags .}}{{.}} {{end}}`, tags)
	require.NoError(t, err)

	assert.Equal(t, "1.2 1.11 1.100 ", got)
	assert.Equal(t, []string{"1.100", "1.2", "1.11"}, tags)
}

func TestToJSON(t *testing.T) {
	got, err := render(t, `{{ToJSON .}}`, map[string]string{"tag": "1.0"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"1.0"}`, got)

	_, err = render(t, `{{ToJSON .}}`, map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}
