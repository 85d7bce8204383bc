// Package parser extracts frontmatter, embeds, and tags from Markdown content
// and builds the read-only note snapshots the prompt pipeline consumes.
package parser

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runeberg/ansuz/internal/models"
)

var (
	embedRe = regexp.MustCompile(`!\[\[(.*?)\]\]`)
	tagRe   = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Result holds the output of parsing a Markdown document.
type Result struct {
	Frontmatter    map[string]interface{}
	RawFrontmatter string
	Body           string
	// BodyOffset is the byte offset of Body within the original document.
	BodyOffset int
	Embeds     []string
	Tags       []string
	Title      string
}

// Parse extracts frontmatter, body, embedded-file references, and tags from
// raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, raw, body, bodyOff := splitFrontmatter(data)

	return &Result{
		Frontmatter:    fm,
		RawFrontmatter: raw,
		Body:           body,
		BodyOffset:     bodyOff,
		Embeds:         ExtractEmbeds(body),
		Tags:           extractTags(body, fm),
		Title:          deriveTitle(fm, body),
	}, nil
}

// Snapshot builds a NoteSnapshot from a full document and an optional
// selection range given in document byte offsets. The span is clamped to the
// body; a selection that lies entirely inside the frontmatter is treated as
// no selection.
func Snapshot(doc string, sel *models.Span) (*models.NoteSnapshot, error) {
	res, err := Parse([]byte(doc))
	if err != nil {
		return nil, err
	}

	snap := &models.NoteSnapshot{
		Title:          res.Title,
		Tags:           res.Tags,
		RawFrontmatter: res.RawFrontmatter,
		Body:           res.Body,
	}
	if sel == nil {
		return snap, nil
	}

	from := sel.Start - res.BodyOffset
	to := sel.End - res.BodyOffset
	if from < 0 {
		from = 0
	}
	if to > len(res.Body) {
		to = len(res.Body)
	}
	if to <= from {
		return snap, nil
	}

	snap.Selection = res.Body[from:to]
	snap.SelectionSpan = &models.Span{Start: from, End: to}
	return snap, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- fences)
// from the Markdown body, tracking where the body starts in the original
// bytes. If no frontmatter is found, or its YAML is malformed, the entire
// content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, string, int) {
	const delim = "---"
	lead := len(data) - len(bytes.TrimLeft(data, "\n\r"))
	trimmed := data[lead:]

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", string(data), 0
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing fence.
		return nil, "", string(data), 0
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	bodyLead := len(afterDelim) - len(bytes.TrimLeft(afterDelim, "\n\r"))
	bodyOff := lead + len(delim) + idx + 1 + len(delim) + bodyLead

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		slog.Warn("parser: malformed frontmatter yaml, treating document as body", slog.String("error", err.Error()))
		return nil, "", string(data), 0
	}

	return fm, strings.TrimSpace(string(yamlBlock)), string(data[bodyOff:]), bodyOff
}

// ExtractEmbeds returns deduplicated embedded-file targets from ![[...]]
// syntax in order of first appearance, normalising aliases and heading
// anchors.
func ExtractEmbeds(text string) []string {
	matches := embedRe.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		// ![[Target|Alias]] → Target, ![[Target#Heading]] → Target.
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		if i := strings.Index(target, "#"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// extractTags collects #tags from body and from the frontmatter "tags" field.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string

	if fm != nil {
		if raw, ok := fm["tags"]; ok {
			switch v := raw.(type) {
			case []interface{}:
				for _, item := range v {
					if s, ok := item.(string); ok {
						s = strings.TrimSpace(s)
						if s != "" {
							if _, dup := seen[s]; !dup {
								seen[s] = struct{}{}
								out = append(out, s)
							}
						}
					}
				}
			}
		}
	}

	matches := tagRe.FindAllStringSubmatch(body, -1)
	for _, m := range matches {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
