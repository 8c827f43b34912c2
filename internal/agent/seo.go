package agent

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/yolodolo42/sitepilot/internal/llm"
)

var analyzeSEOQualityTool = llm.NewTool("analyze_seo_quality",
	"Score a block of page copy for SEO and return recommendations.",
	llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.Property{
			"content": {Type: "string", Description: "Page copy to analyze"},
		},
		Required: []string{"content"},
	})

// SEOReport is the result of the copy heuristic.
type SEOReport struct {
	Score           int      `json:"score"`
	WordCount       int      `json:"word_count"`
	Recommendations []string `json:"recommendations"`
}

var seoRecommendations = []string{
	"Use the primary keyword in the first paragraph",
	"Keep the meta description between 120 and 160 characters",
	"Add descriptive alt text to every image",
	"Link to at least one related service page",
}

// ScoreSEO starts from 50, adds 20 for more than 300 words and 10 when the
// copy mentions IV therapy.
func ScoreSEO(content string) SEOReport {
	words := len(strings.Fields(content))
	score := 50
	if words > 300 {
		score += 20
	}
	if strings.Contains(content, "IV") {
		score += 10
	}
	return SEOReport{
		Score:           score,
		WordCount:       words,
		Recommendations: append([]string(nil), seoRecommendations...),
	}
}

func analyzeSEOQuality(_ context.Context, input json.RawMessage) (string, error) {
	var params struct {
		Content string `json:"content"`
	}
	_ = json.Unmarshal(input, &params)

	b, err := json.Marshal(ScoreSEO(params.Content))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func renderSEOReport(result string) []UIBlock {
	var r SEOReport
	if err := json.Unmarshal([]byte(result), &r); err != nil {
		return nil
	}
	items := []KVItem{
		{Key: "Score", Value: strconv.Itoa(r.Score)},
		{Key: "Words", Value: strconv.Itoa(r.WordCount)},
	}
	for i, rec := range r.Recommendations {
		items = append(items, KVItem{Key: strconv.Itoa(i + 1), Value: rec})
	}
	return []UIBlock{KVBlock("SEO", items...)}
}
