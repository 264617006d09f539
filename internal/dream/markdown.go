// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dream

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// slugRegex matches characters that should be dropped from slugs
	slugRegex = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multiSpaceRegex matches runs of spaces/dashes
	multiSpaceRegex = regexp.MustCompile(`[\s-]+`)
)

// maxSlugIDLen caps the id part of a slug; longer ids keep a hash of the full id
const maxSlugIDLen = 64

// ToMarkdown renders the dream as markdown with YAML frontmatter
func ToMarkdown(d Dream) (string, error) {
	var buf bytes.Buffer

	buf.WriteString("---\n")
	frontmatter, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	buf.Write(frontmatter)
	buf.WriteString("---\n\n")

	buf.WriteString(d.Content)
	buf.WriteString("\n")

	return buf.String(), nil
}

// ParseMarkdown reads a dream back from markdown with YAML frontmatter
func ParseMarkdown(content string) (Dream, error) {
	frontmatter, body, err := splitFrontmatter(content)
	if err != nil {
		return Dream{}, fmt.Errorf("failed to split frontmatter: %w", err)
	}

	var d Dream
	if frontmatter != "" {
		if err := yaml.Unmarshal([]byte(frontmatter), &d); err != nil {
			return Dream{}, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}
	d.Content = body

	return d, nil
}

// Slug builds a filesystem-safe name from the dream's title, date and id
func Slug(d Dream) string {
	slug := strings.ToLower(d.Title)
	slug = slugRegex.ReplaceAllString(slug, "")
	slug = multiSpaceRegex.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "dream"
	}

	// Sanitizing is lossy, so an altered id carries a hash of the original to stay unique
	id := strings.ToLower(d.ID)
	id = slugRegex.ReplaceAllString(id, "")
	id = strings.Trim(multiSpaceRegex.ReplaceAllString(id, "-"), "-")
	if len(id) > maxSlugIDLen {
		id = strings.Trim(id[:maxSlugIDLen], "-")
	}
	if id != d.ID {
		sum := sha256.Sum256([]byte(d.ID))
		id = strings.TrimPrefix(id+"-"+hex.EncodeToString(sum[:4]), "-")
	}

	slug = fmt.Sprintf("%s-%s", slug, d.Date.Format("2006-01-02"))
	if id != "" {
		slug = fmt.Sprintf("%s-%s", slug, id)
	}
	return slug
}

// splitFrontmatter splits markdown content into frontmatter and body.
// The body keeps its own whitespace; only the blank separator line after the
// closing delimiter and the final newline written by ToMarkdown are dropped.
func splitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimLeft(content, " \t\r\n")

	if !strings.HasPrefix(trimmed, "---") {
		return "", strings.TrimSuffix(content, "\n"), nil
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 3 {
		return "", strings.TrimSuffix(content, "\n"), nil
	}

	closingIndex := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closingIndex = i
			break
		}
	}

	if closingIndex == -1 {
		return "", content, fmt.Errorf("frontmatter not properly closed")
	}

	frontmatter := strings.Join(lines[1:closingIndex], "\n")

	body := ""
	if closingIndex+1 < len(lines) {
		rest := lines[closingIndex+1:]
		if len(rest) > 1 && strings.TrimSuffix(rest[0], "\r") == "" {
			rest = rest[1:]
		}
		body = strings.TrimSuffix(strings.Join(rest, "\n"), "\n")
	}

	return frontmatter, body, nil
}
