package vision

import "strings"

// BuildEmbeddingText synthesizes the text that gets embedded for a page.
//
// The segment order is fixed so identical metadata always yields identical
// text: fallback filename, caption, content-type tokens, color tokens, chart
// topics, text summary. The fallback filename anchors the text, guaranteeing
// the embedding is never computed from an empty string when extraction comes
// back sparse. Absent fields contribute nothing; empty segments collapse so
// no stray separators bias the embedding.
func BuildEmbeddingText(meta *PageMetadata, fallbackName string) string {
	segments := make([]string, 0, 6)

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			segments = append(segments, s)
		}
	}

	add(fallbackName)
	if meta != nil {
		add(meta.Caption)
		add(strings.Join(meta.Keywords(), " "))

		colors := append([]string{}, meta.ColorNames()...)
		if bg := meta.PrimaryBackground(); bg != "" {
			colors = append(colors, bg)
		}
		add(strings.Join(colors, " "))

		add(strings.Join(meta.ChartTopics(), " "))
		add(meta.TextSummary())
	}

	return strings.TrimSpace(strings.Join(segments, "\n"))
}
