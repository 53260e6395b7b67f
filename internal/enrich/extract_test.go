package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{
			"bare object",
			`{"par": 72}`,
			`{"par": 72}`,
			true,
		},
		{
			"prose around object",
			"Here is the data you asked for:\n{\"par\": 72}\nLet me know if you need more.",
			`{"par": 72}`,
			true,
		},
		{
			"code fence",
			"```json\n{\"holes\": 18}\n```",
			`{"holes": 18}`,
			true,
		},
		{
			"nested objects",
			`{"a": {"b": 1}, "c": 2}`,
			`{"a": {"b": 1}, "c": 2}`,
			true,
		},
		{
			"braces inside strings",
			`{"description": "a {strange} name", "par": 70}`,
			`{"description": "a {strange} name", "par": 70}`,
			true,
		},
		{
			"escaped quote inside string",
			`{"description": "he said \"hi {there}\"", "x": 1}`,
			`{"description": "he said \"hi {there}\"", "x": 1}`,
			true,
		},
		{
			"only first object",
			`{"a": 1} {"b": 2}`,
			`{"a": 1}`,
			true,
		},
		{
			"stray closing brace before object",
			`} {"a": 1}`,
			`{"a": 1}`,
			true,
		},
		{
			"no object",
			"sorry, I cannot help with that",
			"",
			false,
		},
		{
			"unterminated object",
			`{"a": 1`,
			"",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.input)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
