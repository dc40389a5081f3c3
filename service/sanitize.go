package service

import (
	"strings"

	"golang.org/x/net/html"
)

// Elements whose text content is dropped along with the tags.
var droppedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"iframe":   true,
	"noscript": true,
	"object":   true,
	"embed":    true,
	"template": true,
}

// SanitizeText strips every markup tag from s and returns plain text.
// Entities are decoded and the text stripped again, so the result never
// contains '<' or '>'.
func SanitizeText(s string) string {
	out := s
	for i := 0; i < 3 && strings.ContainsAny(out, "<>&"); i++ {
		next := stripTags(out)
		if next == out {
			break
		}
		out = next
	}
	out = strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		return r
	}, out)
	return strings.Join(strings.Fields(out), " ")
}

func stripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			if droppedElements[string(name)] {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if droppedElements[string(name)] && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}
}
