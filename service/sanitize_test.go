package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "Ann Lee", expected: "Ann Lee"},
		{name: "empty", input: "", expected: ""},
		{name: "bold tag", input: "<b>Ann</b>", expected: "Ann"},
		{name: "script body dropped", input: `Ann<script>alert("x")</script>`, expected: "Ann"},
		{name: "style body dropped", input: "<style>p{}</style>Ann", expected: "Ann"},
		{name: "attributes", input: `<img src=x onerror="alert(1)">Ann`, expected: "Ann"},
		{name: "escaped markup", input: "&lt;script&gt;alert(1)&lt;/script&gt;Ann", expected: "Ann"},
		{name: "double escaped", input: "&amp;lt;b&amp;gt;Ann", expected: "Ann"},
		{name: "stray brackets", input: "a < b > c", expected: "a b c"},
		{name: "entities kept as text", input: "Tom &amp; Jerry", expected: "Tom & Jerry"},
		{name: "whitespace collapsed", input: "  Ann \n\t Lee ", expected: "Ann Lee"},
		{name: "unicode", input: "<i>Zoë</i> 山田", expected: "Zoë 山田"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeText(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.NotContains(t, got, "<")
			assert.NotContains(t, got, ">")
		})
	}
}
