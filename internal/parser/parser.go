// Package parser derives note titles from content: YAML frontmatter "title"
// when present, otherwise the first line of the body.
package parser

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// illegalChars are stripped from derived file names.
const illegalChars = `\/:*?"<>|`

// Result holds the output of parsing a note.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
}

// Parse splits optional YAML frontmatter from the body and derives a title.
// Invalid frontmatter is treated as body text.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
	}
}

// FirstLine returns the trimmed first line of content.
func FirstLine(content string) string {
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		content = content[:i]
	}
	return strings.TrimSpace(content)
}

// SanitizeFilename removes characters that are illegal in file names on
// common file systems and trims surrounding space.
func SanitizeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalChars, r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// FileTitle returns a file-name-safe title for content, or "" when the
// result would be empty or not shorter than maxLen runes.
// With frontmatter set, a YAML "title" field wins over the first body line.
func FileTitle(content string, frontmatter bool, maxLen int) string {
	var raw string
	if frontmatter {
		raw = Parse([]byte(content)).Title
	} else {
		raw = FirstLine(content)
	}
	title := SanitizeFilename(raw)
	if title == "" || utf8.RuneCountInString(title) >= maxLen {
		return ""
	}
	return title
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}

	return fm, body
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first body line with any leading Markdown heading marks removed.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	line := FirstLine(body)
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}
