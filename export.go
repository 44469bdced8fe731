/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/Seednode/santabox/exchange"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const exportFilename = "secret_santa_assignments"

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})

	return markdownInstance
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
	`#`, `\#`,
	`|`, `\|`,
	`~`, `\~`,
	`&`, `\&`,
	`!`, `\!`,
	`(`, `\(`,
	`)`, `\)`,
)

var leadingOrdinal = regexp.MustCompile(`^(\d+)\.`)

// escapeMarkdown also neutralizes list markers at the start of a name, since
// the giver always opens a list item.
func escapeMarkdown(s string) string {
	s = markdownEscaper.Replace(s)

	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return `\` + s
	}

	return leadingOrdinal.ReplaceAllString(s, `$1\.`)
}

// renderMarkdown lists each pair under a single heading, in roster order.
func renderMarkdown(title string, pairs []exchange.Pair) []byte {
	var b bytes.Buffer

	b.WriteString("# " + escapeMarkdown(title) + "\n\n")

	for _, p := range pairs {
		b.WriteString("- " + escapeMarkdown(p.Giver) + " → " + escapeMarkdown(p.Receiver) + "\n")
	}

	return b.Bytes()
}

// renderHTML wraps the rendered markdown in a minimal printable page.
func renderHTML(cfg *Config, title string, pairs []exchange.Pair) ([]byte, error) {
	var body bytes.Buffer

	if err := getMarkdown().Convert(renderMarkdown(title, pairs), &body); err != nil {
		return nil, err
	}

	var page bytes.Buffer

	page.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
	page.WriteString(getFavicon(cfg))
	page.WriteString(`<title>` + html.EscapeString(title) + `</title></head><body>`)
	page.Write(body.Bytes())
	page.WriteString(`</body></html>`)

	return page.Bytes(), nil
}
