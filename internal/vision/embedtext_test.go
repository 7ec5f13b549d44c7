package vision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEmbeddingText(t *testing.T) {
	tests := []struct {
		name     string
		meta     *PageMetadata
		fallback string
		want     string
	}{
		{
			name:     "nil metadata still anchored by filename",
			meta:     nil,
			fallback: "sample.pdf",
			want:     "sample.pdf",
		},
		{
			name:     "empty metadata still anchored by filename",
			meta:     &PageMetadata{},
			fallback: "sample.pdf",
			want:     "sample.pdf",
		},
		{
			name: "all fields present in fixed order",
			meta: &PageMetadata{
				Caption:      "sunglasses on a beach towel",
				ContentTypes: []string{"product", "photo"},
				Colors: &ColorInfo{
					ColorNames:        []string{"blue", "sand"},
					PrimaryBackground: "white",
				},
				Chart: &ChartInfo{
					HasChart:      true,
					Type:          "bar",
					TopicKeywords: []string{"sales", "q3"},
				},
				Text: &TextInfo{Summary: "promo flyer for summer range"},
			},
			fallback: "flyer.pdf",
			want: "flyer.pdf\nsunglasses on a beach towel\nproduct photo\n" +
				"blue sand white\nsales q3\npromo flyer for summer range",
		},
		{
			name: "absent sub-objects collapse without stray separators",
			meta: &PageMetadata{
				Caption: "a red flower",
				Text:    &TextInfo{Summary: "botanical print"},
			},
			fallback: "flower.pdf",
			want:     "flower.pdf\na red flower\nbotanical print",
		},
		{
			name: "chart topics ignored when has_chart is false",
			meta: &PageMetadata{
				Chart: &ChartInfo{HasChart: false, TopicKeywords: []string{"noise"}},
			},
			fallback: "doc.pdf",
			want:     "doc.pdf",
		},
		{
			name:     "whitespace-only fields are dropped",
			meta:     &PageMetadata{Caption: "   "},
			fallback: "  doc.pdf  ",
			want:     "doc.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildEmbeddingText(tt.meta, tt.fallback)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "\n\n", "empty segments must collapse")
		})
	}
}

func TestBuildEmbeddingTextTotality(t *testing.T) {
	// For any combination of present/absent sub-fields, the result is never
	// empty given a non-empty fallback filename.
	metas := []*PageMetadata{
		nil,
		{},
		{Colors: &ColorInfo{}},
		{Chart: &ChartInfo{}},
		{Text: &TextInfo{}},
		{Text: &TextInfo{KeyFields: &KeyFields{}}},
		{Colors: &ColorInfo{}, Chart: &ChartInfo{}, Text: &TextInfo{}},
	}

	for _, meta := range metas {
		got := BuildEmbeddingText(meta, "anchor.pdf")
		assert.True(t, strings.HasPrefix(got, "anchor.pdf"))
		assert.NotEmpty(t, got)
	}
}
