// Package render converts the engine's markdown-ish content into safe
// display markup. The transformation is a staged pipeline of pure text
// transforms; stage order is load-bearing (later rules must never re-match
// text produced by earlier ones) and is exposed via Pipeline so each stage
// can be tested in isolation.
package render

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
)

// Stage is one named text transform in the pipeline.
type Stage struct {
	Name  string
	Apply func(string) string
}

var (
	reImage        = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)
	reLink         = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reBracketLabel = regexp.MustCompile(`\[#{1,4}\s*([^\]]*)\]`)
	reH4           = regexp.MustCompile(`(?m)^####\s+(.+)$`)
	reH3           = regexp.MustCompile(`(?m)^###\s+(.+)$`)
	reH2           = regexp.MustCompile(`(?m)^##\s+(.+)$`)
	reH1           = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	reFencedCode   = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\\n?([\\s\\S]*?)```")
	reInlineCode   = regexp.MustCompile("`([^`\\n]+)`")
	reBoldItalic   = regexp.MustCompile(`\*\*\*([^*]+)\*\*\*`)
	reBold         = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalic       = regexp.MustCompile(`\*([^*]+)\*`)
	reUnorderedLi  = regexp.MustCompile(`(?m)^-\s+(.+)$`)
	reOrderedLi    = regexp.MustCompile(`(?m)^\d+\.\s+(.+)$`)
	reListRun      = regexp.MustCompile(`(?:<li>.*</li>\n?)+`)
	reBlockquote   = regexp.MustCompile(`(?m)^&gt;\s+(.+)$`)
	reHRule        = regexp.MustCompile(`(?m)^---\s*$`)
	reBareURL      = regexp.MustCompile(`(^|[\s])(https?://[^\s<]+)`)
	reFirstOrigin  = regexp.MustCompile(`https?://[^/\s"<)]+`)
	reBlankSplit   = regexp.MustCompile(`\n\s*\n`)
)

// blockPrefixes mark chunks that are already block-level after the earlier
// stages; paragraph assembly passes them through untouched.
var blockPrefixes = []string{
	"<h1>", "<h2>", "<h3>", "<h4>",
	"<ul>", "<ol>", "<li>",
	"<pre>", "<blockquote>", "<hr>", "<p>",
}

// Render transforms markdown-ish text into safe markup. baseURL, when
// non-empty, supplies the origin for resolving root-relative image URLs;
// otherwise the first absolute URL in the text is used, and failing that the
// relative URL is left as-is. Pure: URLs are computed, never fetched.
func Render(text, baseURL string) string {
	out := html.EscapeString(text)
	for _, st := range Pipeline(baseURL) {
		out = st.Apply(out)
	}
	return out
}

// RenderRaw escapes the original text verbatim, preserving whitespace.
// Callers toggling between raw and formatted views must always re-render
// from the stored original, never from previously rendered markup.
func RenderRaw(text string) string {
	return `<pre class="raw-content">` + html.EscapeString(text) + `</pre>`
}

// Pipeline returns the ordered stages applied by Render. The order is part
// of the contract.
func Pipeline(baseURL string) []Stage {
	return []Stage{
		{"normalize_eol", normalizeEOL},
		{"images", func(s string) string { return renderImages(s, baseURL) }},
		{"links", renderLinks},
		{"bracket_labels", renderBracketLabels},
		{"headings", renderHeadings},
		{"fenced_code", renderFencedCode},
		{"inline_code", renderInlineCode},
		{"emphasis", renderEmphasis},
		{"lists", renderLists},
		{"blockquotes", renderBlockquotes},
		{"horizontal_rules", renderHorizontalRules},
		{"autolink", autoLink},
		{"paragraphs", assembleParagraphs},
	}
}

func normalizeEOL(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// renderImages emits an img element with a hidden textual fallback revealed
// on load failure. Root-relative URLs are resolved against the base URL's
// origin when available, else against an origin inferred from the first
// absolute URL already in the text.
func renderImages(s, baseURL string) string {
	origin := originOf(baseURL)
	if origin == "" {
		origin = reFirstOrigin.FindString(s)
	}
	return reImage.ReplaceAllStringFunc(s, func(m string) string {
		parts := reImage.FindStringSubmatch(m)
		alt, src := parts[1], parts[2]
		if strings.HasPrefix(src, "/") && origin != "" {
			src = origin + src
		}
		return fmt.Sprintf(
			`<img src="%s" alt="%s" onerror="this.style.display='none';this.nextElementSibling.style.display='inline';" />`+
				`<span class="img-fallback" style="display:none">[image: %s (%s)]</span>`,
			src, alt, alt, src)
	})
}

func originOf(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func renderLinks(s string) string {
	return reLink.ReplaceAllString(s, `<a href="$2" target="_blank" rel="noopener noreferrer">$1</a>`)
}

// renderBracketLabels styles heading-like fragments such as [# Label] that
// carry no URL. Runs after links, so anything still bracketed here is not a
// link.
func renderBracketLabels(s string) string {
	return reBracketLabel.ReplaceAllString(s, `<span class="section-label">$1</span>`)
}

// renderHeadings matches most-specific first so #### lines are not consumed
// as partial # matches.
func renderHeadings(s string) string {
	s = reH4.ReplaceAllString(s, "<h4>$1</h4>")
	s = reH3.ReplaceAllString(s, "<h3>$1</h3>")
	s = reH2.ReplaceAllString(s, "<h2>$1</h2>")
	return reH1.ReplaceAllString(s, "<h1>$1</h1>")
}

// renderFencedCode converts triple-backtick blocks. The language tag is
// decorative only.
func renderFencedCode(s string) string {
	return reFencedCode.ReplaceAllStringFunc(s, func(m string) string {
		parts := reFencedCode.FindStringSubmatch(m)
		lang, body := parts[1], parts[2]
		if lang != "" {
			return fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, lang, body)
		}
		return fmt.Sprintf("<pre><code>%s</code></pre>", body)
	})
}

func renderInlineCode(s string) string {
	return reInlineCode.ReplaceAllString(s, "<code>$1</code>")
}

// renderEmphasis handles *** before ** before * so nested markers are not
// double-processed.
func renderEmphasis(s string) string {
	s = reBoldItalic.ReplaceAllString(s, "<strong><em>$1</em></strong>")
	s = reBold.ReplaceAllString(s, "<strong>$1</strong>")
	return reItalic.ReplaceAllString(s, "<em>$1</em>")
}

// renderLists converts list lines to items, then wraps each run of
// consecutive items in a single container.
func renderLists(s string) string {
	s = reUnorderedLi.ReplaceAllString(s, "<li>$1</li>")
	s = reOrderedLi.ReplaceAllString(s, "<li>$1</li>")
	return reListRun.ReplaceAllStringFunc(s, func(run string) string {
		trailing := ""
		if strings.HasSuffix(run, "\n") {
			run = strings.TrimSuffix(run, "\n")
			trailing = "\n"
		}
		return "<ul>" + run + "</ul>" + trailing
	})
}

// renderBlockquotes matches the escaped form of "> " since the input was
// HTML-escaped before the pipeline ran.
func renderBlockquotes(s string) string {
	return reBlockquote.ReplaceAllString(s, "<blockquote>$1</blockquote>")
}

func renderHorizontalRules(s string) string {
	return reHRule.ReplaceAllString(s, "<hr>")
}

// autoLink wraps bare URLs that are not already inside a generated element.
// Generated hrefs and srcs are preceded by a quote, never whitespace, so
// requiring a leading boundary keeps them untouched.
func autoLink(s string) string {
	return reBareURL.ReplaceAllString(s, `$1<a href="$2" target="_blank" rel="noopener noreferrer">$2</a>`)
}

// assembleParagraphs splits on blank lines and wraps non-block chunks in
// paragraphs, converting interior newlines to line breaks. Chunks that are
// already block-level pass through untouched, which makes this stage
// idempotent for block content.
func assembleParagraphs(s string) string {
	chunks := reBlankSplit.Split(s, -1)
	var out []string
	for _, chunk := range chunks {
		trimmed := strings.TrimSpace(chunk)
		if trimmed == "" {
			continue
		}
		if isBlock(trimmed) {
			out = append(out, trimmed)
			continue
		}
		out = append(out, "<p>"+strings.ReplaceAll(trimmed, "\n", "<br>\n")+"</p>")
	}
	return strings.Join(out, "\n")
}

func isBlock(chunk string) bool {
	for _, prefix := range blockPrefixes {
		if strings.HasPrefix(chunk, prefix) {
			return true
		}
	}
	return false
}
