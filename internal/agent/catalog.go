package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/yolodolo42/sitepilot/internal/llm"
)

// Component describes a block type the site can render.
type Component struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SectionKeys []string `json:"section_keys,omitempty"`
}

// Catalog is the fixed list of components the agent may suggest.
var Catalog = []Component{
	{Name: "Hero", Description: "Full-width banner with video background, heading and two call-to-action buttons", SectionKeys: []string{"hero"}},
	{Name: "ServicesList", Description: "Grid of treatments with image, description and price", SectionKeys: []string{"services_intro", "services_list"}},
	{Name: "AboutSummary", Description: "Short story block with image and a link to the about page", SectionKeys: []string{"about_summary"}},
	{Name: "Tabs", Description: "Tabbed panels for grouping related content", SectionKeys: []string{"tabs"}},
	{Name: "Carousel", Description: "Rotating slides with captions", SectionKeys: []string{"carousel"}},
	{Name: "Gallery", Description: "Image grid with configurable columns", SectionKeys: []string{"gallery"}},
	{Name: "CTA", Description: "Call-to-action strip with a single booking button", SectionKeys: []string{"cta"}},
	{Name: "Table", Description: "Simple data table with headers and rows", SectionKeys: []string{"table"}},
	{Name: "PricingTable", Description: "Compare treatment packages and pricing tiers side by side"},
	{Name: "Testimonials", Description: "Client quotes with names and star ratings"},
	{Name: "FAQ", Description: "Expandable questions and answers"},
	{Name: "ContactForm", Description: "Lead capture form with name, email and message fields"},
}

var findSimilarComponentsTool = llm.NewTool("find_similar_components",
	"Search the component catalog by name or description. Returns a few suggestions when nothing matches.",
	llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.Property{
			"query": {Type: "string", Description: "What the component should do, e.g. pricing or testimonials"},
		},
		Required: []string{"query"},
	})

// MatchComponents filters the catalog by a case-insensitive substring of name
// or description. With no match it returns the first three entries.
func MatchComponents(query string) []Component {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Component
	if q != "" {
		for _, c := range Catalog {
			if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Description), q) {
				out = append(out, c)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, Catalog[:3]...)
	}
	return out
}

func findSimilarComponents(_ context.Context, input json.RawMessage) (string, error) {
	var params struct {
		Query string `json:"query"`
	}
	// Malformed input degrades to the fallback list.
	_ = json.Unmarshal(input, &params)

	b, err := json.Marshal(MatchComponents(params.Query))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func renderComponents(result string) []UIBlock {
	var comps []Component
	if err := json.Unmarshal([]byte(result), &comps); err != nil {
		return nil
	}
	rows := make([][]string, 0, len(comps))
	for _, c := range comps {
		rows = append(rows, []string{c.Name, c.Description})
	}
	return []UIBlock{TableBlock("Components", []string{"Name", "Description"}, rows)}
}
