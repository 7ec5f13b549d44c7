package vision

// PageMetadata is the structured description the vision model returns for one
// rendered page. Every nested object is optional and explicitly nullable, so
// absent-field defaulting is enforced by the accessors rather than by ad-hoc
// map lookups downstream.
type PageMetadata struct {
	Caption      string     `json:"caption"`
	ContentTypes []string   `json:"content_types"`
	Colors       *ColorInfo `json:"colors,omitempty"`
	Chart        *ChartInfo `json:"chart,omitempty"`
	Text         *TextInfo  `json:"text,omitempty"`
}

// ColorInfo describes the dominant colors of the page.
type ColorInfo struct {
	ColorNames        []string `json:"color_names"`
	DominantHex       []string `json:"dominant_hex"`
	PrimaryBackground string   `json:"primary_background"`
}

// ChartInfo describes any chart detected on the page.
type ChartInfo struct {
	HasChart      bool     `json:"has_chart"`
	Type          string   `json:"type"`
	TopicKeywords []string `json:"topic_keywords"`
}

// TextInfo summarizes the readable text on the page.
type TextInfo struct {
	Summary   string     `json:"summary"`
	KeyFields *KeyFields `json:"key_fields,omitempty"`
}

// KeyFields holds product-style fields extracted from page text.
type KeyFields struct {
	Brand   string   `json:"brand"`
	Product string   `json:"product"`
	Variant string   `json:"variant"`
	Claims  []string `json:"claims"`
}

// Keywords returns the content-type tokens, never nil.
func (m *PageMetadata) Keywords() []string {
	if m == nil || m.ContentTypes == nil {
		return []string{}
	}
	return m.ContentTypes
}

// ColorNames returns the detected color names, or empty when absent.
func (m *PageMetadata) ColorNames() []string {
	if m == nil || m.Colors == nil {
		return nil
	}
	return m.Colors.ColorNames
}

// PrimaryBackground returns the background color name, or empty when absent.
func (m *PageMetadata) PrimaryBackground() string {
	if m == nil || m.Colors == nil {
		return ""
	}
	return m.Colors.PrimaryBackground
}

// ChartTopics returns the chart topic keywords when a chart was detected.
func (m *PageMetadata) ChartTopics() []string {
	if m == nil || m.Chart == nil || !m.Chart.HasChart {
		return nil
	}
	return m.Chart.TopicKeywords
}

// TextSummary returns the free-text summary, or empty when absent.
func (m *PageMetadata) TextSummary() string {
	if m == nil || m.Text == nil {
		return ""
	}
	return m.Text.Summary
}
