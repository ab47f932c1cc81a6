package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/filelock"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const pageStyle = `body{font-family:sans-serif;max-width:960px;margin:2em auto;padding:0 1em;line-height:1.5}
table{border-collapse:collapse}th,td{border:1px solid #ccc;padding:4px 8px}
pre{background:#f6f8fa;padding:8px;overflow-x:auto}
blockquote{color:#555;border-left:4px solid #ddd;margin:0;padding-left:1em}`

// Markdown renders r as a markdown document: run metadata, a status grid
// and every answer under an image / model heading. Answers are kept as
// written since the models mostly reply in markdown.
func Markdown(r Run) string {
	m := NewMatrix(r)
	var b strings.Builder

	fmt.Fprintf(&b, "# Run %s\n\n", r.ID)
	fmt.Fprintf(&b, "- Started: %s\n", r.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(&b, "- Status: %s\n", r.Status)
	fmt.Fprintf(&b, "- Tasks: %d (succeeded %d, skipped %d, failed %d)\n\n",
		r.Summary.Total, r.Summary.Succeeded, r.Summary.Skipped, r.Summary.Failed)

	b.WriteString("## Prompt\n\n")
	for _, line := range strings.Split(r.Prompt, "\n") {
		fmt.Fprintf(&b, "> %s\n", line)
	}
	b.WriteString("\n## Overview\n\n")

	b.WriteString("| image |")
	for _, model := range m.Models {
		fmt.Fprintf(&b, " %s |", tableCell(model))
	}
	b.WriteString("\n|---|")
	b.WriteString(strings.Repeat("---|", len(m.Models)))
	b.WriteString("\n")
	for _, asset := range m.Assets {
		fmt.Fprintf(&b, "| %s |", tableCell(asset))
		for _, model := range m.Models {
			o, ok := m.Cell(asset, model)
			if !ok {
				b.WriteString("  |")
				continue
			}
			fmt.Fprintf(&b, " %s |", statusCell(o))
		}
		b.WriteString("\n")
	}

	for _, asset := range m.Assets {
		fmt.Fprintf(&b, "\n## %s\n", asset)
		for _, model := range m.Models {
			o, ok := m.Cell(asset, model)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "\n### %s (%s)\n\n%s\n", model, o.ElapsedField(), o.Text)
		}
	}
	return b.String()
}

func statusCell(o models.TaskOutcome) string {
	if o.IsSuccess() {
		return o.ElapsedField()
	}
	return o.Status
}

func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// WriteHTML renders Markdown(r) to a standalone HTML page. Raw HTML inside
// answers is not passed through.
func WriteHTML(path string, r Run) error {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(r)), &body); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>gencompare %s</title>\n<style>%s</style>\n</head>\n<body>\n",
		html.EscapeString(r.ID), pageStyle)
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")

	return filelock.AtomicWrite(path, page.Bytes())
}
