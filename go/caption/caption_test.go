package caption

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		input   string
		want    string
	}{
		{
			name:    "default pattern wraps the display name",
			pattern: DefaultPattern,
			input:   "张三",
			want:    "请问你看到张三了吗",
		},
		{
			name:    "default pattern with digits",
			pattern: DefaultPattern,
			input:   "12345",
			want:    "请问你看到12345了吗",
		},
		{
			name:    "custom pattern",
			pattern: "{{.Name}}不见了",
			want:    "不见了",
		},
		{
			name:    "sprig functions are available",
			pattern: "{{upper .Name}}!",
			input:   "hello",
			want:    "HELLO!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template, err := New(tt.pattern)
			require.NoError(t, err)
			got, err := template.Render(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNewRejectsMalformedPattern(t *testing.T) {
	_, err := New("{{.Name")
	require.Error(t, err)
}
