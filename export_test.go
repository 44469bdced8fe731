/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
	"testing"

	"github.com/Seednode/santabox/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	pairs := []exchange.Pair{
		{Giver: "Ariel", Receiver: "Scott"},
		{Giver: "Scott", Receiver: "Ariel"},
	}

	want := "# Secret Santa Assignments\n\n- Ariel → Scott\n- Scott → Ariel\n"
	assert.Equal(t, want, string(renderMarkdown(defaultTitle, pairs)))
}

func TestRenderMarkdownEscapesNames(t *testing.T) {
	pairs := []exchange.Pair{{Giver: "*Star*", Receiver: "<b>Bold</b>"}}

	got := string(renderMarkdown("Santa #1", pairs))
	assert.Contains(t, got, `# Santa \#1`)
	assert.Contains(t, got, `- \*Star\* → \<b\>Bold\</b\>`)
}

func TestRenderMarkdownEscapesListMarkers(t *testing.T) {
	for name, want := range map[string]string{
		"1. Bob":       `1\. Bob`,
		"2) Eve":       `2\) Eve`,
		"+ Cy":         `\+ Cy`,
		"- Dee":        `\- Dee`,
		"Tom &amp; Jo": `Tom \&amp; Jo`,
		"Hi! (Al)":     `Hi\! \(Al\)`,
		"Route 66":     `Route 66`,
	} {
		assert.Equal(t, want, escapeMarkdown(name), name)
	}
}

func TestRenderHTML(t *testing.T) {
	cfg := validConfig()
	pairs := []exchange.Pair{
		{Giver: "Ariel", Receiver: "Scott"},
		{Giver: "<script>", Receiver: "Ariel"},
	}

	page, err := renderHTML(cfg, "Family & Friends", pairs)
	require.NoError(t, err)

	got := string(page)
	assert.Contains(t, got, "<title>Family &amp; Friends</title>")
	assert.Contains(t, got, "<h1>Family &amp; Friends</h1>")
	assert.Contains(t, got, "<li>Ariel → Scott</li>")
	assert.Contains(t, got, "<li>&lt;script&gt; → Ariel</li>")
	assert.NotContains(t, got, "<script>")
}

func TestRenderHTMLKeepsNamesVerbatim(t *testing.T) {
	cfg := validConfig()
	pairs := []exchange.Pair{
		{Giver: "1. Bob", Receiver: "Ann"},
		{Giver: "+ Cy", Receiver: "Tom &amp; Jo"},
		{Giver: "- Dee", Receiver: "2) Eve"},
	}

	page, err := renderHTML(cfg, defaultTitle, pairs)
	require.NoError(t, err)

	got := string(page)
	assert.Contains(t, got, "<li>1. Bob → Ann</li>")
	assert.Contains(t, got, "<li>+ Cy → Tom &amp;amp; Jo</li>")
	assert.Contains(t, got, "<li>- Dee → 2) Eve</li>")
	assert.NotContains(t, got, "<ol>")
	assert.Equal(t, 1, strings.Count(got, "<ul>"), "names must not open nested lists")
}
