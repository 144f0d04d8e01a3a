// Package readme classifies README content and renders it for the dashboard.
package readme

import (
	"bytes"
	"html"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github-dashboard-sync/internal/model"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.GFM))

	// policy strips scripts, event handlers and unsafe URLs from rendered output.
	policy = bluemonday.UGCPolicy()
)

// Classify determines the content type from the file extension, falling back
// to sniffing for HTML when the name carries no hint.
func Classify(filename, content string) model.ReadmeFormat {
	switch strings.ToLower(path.Ext(filename)) {
	case ".md", ".markdown", ".mdown", ".mkd":
		return model.ReadmeFormatMarkdown
	case ".html", ".htm":
		return model.ReadmeFormatHTML
	case ".rst", ".rest":
		return model.ReadmeFormatRST
	case ".txt", ".text":
		return model.ReadmeFormatText
	}

	head := strings.ToLower(strings.TrimSpace(content))
	if strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") ||
		strings.HasPrefix(head, "<div") || strings.HasPrefix(head, "<p") || strings.HasPrefix(head, "<h1") {
		return model.ReadmeFormatHTML
	}
	return model.ReadmeFormatText
}

// Render converts content into a sanitized HTML fragment.
func Render(content string, format model.ReadmeFormat) (string, error) {
	switch format {
	case model.ReadmeFormatMarkdown:
		var buf bytes.Buffer
		if err := md.Convert([]byte(content), &buf); err != nil {
			return "", err
		}
		return policy.Sanitize(buf.String()), nil
	case model.ReadmeFormatHTML:
		return policy.Sanitize(content), nil
	default:
		return "<pre>" + html.EscapeString(content) + "</pre>", nil
	}
}
