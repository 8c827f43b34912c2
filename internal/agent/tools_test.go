package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/sitepilot/internal/store"
	"github.com/yolodolo42/sitepilot/internal/testutil"
)

func newTestRegistry(t *testing.T) (*Registry, *store.MemoryStore) {
	t.Helper()
	repo := testutil.SeededRepo(t)
	return NewRegistry(Deps{Repo: repo, AgentName: "test-agent"}), repo
}

func TestNewRegistry(t *testing.T) {
	r, _ := newTestRegistry(t)

	assert.Equal(t, []string{
		"add_section",
		"analyze_seo_quality",
		"find_similar_components",
		"generate_email_marketing_sequence",
		"get_page_content",
		"get_site_context",
		"setup_whatsapp_automation",
		"update_page_seo",
		"update_section_content",
	}, r.Names())

	for _, tool := range r.Tools() {
		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.InputSchema, &schema), tool.Name)
		assert.Equal(t, "object", schema["type"], tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}

	for name, mutating := range map[string]bool{
		"update_section_content": true,
		"add_section":            true,
		"update_page_seo":        true,
		"get_page_content":       false,
		"analyze_seo_quality":    false,
	} {
		spec, ok := r.Spec(name)
		require.True(t, ok, name)
		assert.Equal(t, mutating, spec.Mutating, name)
	}
}

func TestRegistry_Only(t *testing.T) {
	r, _ := newTestRegistry(t)

	only := r.Only("update_page_seo", "does_not_exist")
	assert.Equal(t, []string{"update_page_seo"}, only.Names())
	require.Len(t, only.Tools(), 1)

	_, err := only.Execute(context.Background(), "get_page_content", json.RawMessage(`{"slug":"home"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestRegistry_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown tool", func(t *testing.T) {
		r, _ := newTestRegistry(t)
		_, err := r.Execute(ctx, "publish_blog_post", nil)
		require.Error(t, err)
		assert.Equal(t, "unknown tool: publish_blog_post", err.Error())
	})

	t.Run("invalid input", func(t *testing.T) {
		r, _ := newTestRegistry(t)
		_, err := r.Execute(ctx, "get_page_content", json.RawMessage(`{"slug":`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid input")
	})

	t.Run("empty input is an empty object", func(t *testing.T) {
		r, _ := newTestRegistry(t)
		out, err := r.Execute(ctx, "get_site_context", nil)
		require.NoError(t, err)
		assert.Contains(t, out, "Glow Clinic")
	})
}

func TestGetPageContent(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t)

	t.Run("returns page and ordered sections", func(t *testing.T) {
		out, err := r.Execute(ctx, "get_page_content", json.RawMessage(`{"slug":"home"}`))
		require.NoError(t, err)

		var pc pageContent
		require.NoError(t, json.Unmarshal([]byte(out), &pc))
		assert.Equal(t, "page-home", pc.Page.ID)
		require.Len(t, pc.Sections, 3)
		assert.Equal(t, []string{"hero", "about_summary", "cta"},
			[]string{pc.Sections[0].Key, pc.Sections[1].Key, pc.Sections[2].Key})
	})

	t.Run("missing page is a message, not an error", func(t *testing.T) {
		out, err := r.Execute(ctx, "get_page_content", json.RawMessage(`{"slug":"pricing"}`))
		require.NoError(t, err)
		assert.Equal(t, "Page not found: pricing", out)
	})

	t.Run("renders a section table", func(t *testing.T) {
		out, err := r.Execute(ctx, "get_page_content", json.RawMessage(`{"slug":"home"}`))
		require.NoError(t, err)
		blocks := renderPageContent(out)
		require.Len(t, blocks, 1)
		require.NotNil(t, blocks[0].Table)
		assert.Equal(t, "Home (/home)", blocks[0].Table.Title)
		assert.Len(t, blocks[0].Table.Rows, 3)
		assert.Equal(t, []string{"2", "cta", "cta", "sec-cta"}, blocks[0].Table.Rows[2])
	})
}

func TestUpdateSectionContent(t *testing.T) {
	ctx := context.Background()

	t.Run("writes content and appends audit", func(t *testing.T) {
		r, repo := newTestRegistry(t)
		goalCtx := WithGoal(ctx, "make the hero punchier")

		out, err := r.Execute(goalCtx, "update_section_content",
			json.RawMessage(`{"sectionId":"sec-hero","content":{"heading":"Glow from within"}}`))
		require.NoError(t, err)
		assert.Equal(t, "Section sec-hero updated", out)

		sec, err := repo.GetSection(ctx, "sec-hero")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"heading": "Glow from within"}, sec.Content)

		entries, err := repo.ListAudit(ctx, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "make the hero punchier", entries[0].Goal)
		assert.Equal(t, "test-agent", entries[0].AgentName)
		assert.Equal(t, "update_section_content sec-hero", entries[0].Action)
		assert.Equal(t, "sec-hero", entries[0].Diff["section_id"])
	})

	t.Run("missing section is an error and is not audited", func(t *testing.T) {
		r, repo := newTestRegistry(t)
		_, err := r.Execute(ctx, "update_section_content", json.RawMessage(`{"sectionId":"nope","content":"x"}`))
		require.ErrorIs(t, err, store.ErrNotFound)

		entries, err := repo.ListAudit(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("sectionId is required", func(t *testing.T) {
		r, _ := newTestRegistry(t)
		_, err := r.Execute(ctx, "update_section_content", json.RawMessage(`{"content":"x"}`))
		require.Error(t, err)
	})

	t.Run("audit failure does not change the result", func(t *testing.T) {
		repo := &faultyRepo{MemoryStore: testutil.SeededRepo(t), failAudit: true}
		r := NewRegistry(Deps{Repo: repo})

		out, err := r.Execute(ctx, "update_section_content", json.RawMessage(`{"sectionId":"sec-cta","content":"Book today"}`))
		require.NoError(t, err)
		assert.Equal(t, "Section sec-cta updated", out)

		sec, err := repo.GetSection(ctx, "sec-cta")
		require.NoError(t, err)
		assert.Equal(t, "Book today", sec.Content)
	})
}

func TestAddSection(t *testing.T) {
	ctx := context.Background()

	t.Run("appends after existing sections", func(t *testing.T) {
		r, repo := newTestRegistry(t)
		out, err := r.Execute(ctx, "add_section",
			json.RawMessage(`{"pageId":"page-home","sectionKey":"gallery","content":{"images":[]}}`))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "Section gallery added with id "), out)

		sections, err := repo.ListSections(ctx, "page-home")
		require.NoError(t, err)
		require.Len(t, sections, 4)
		assert.Equal(t, "gallery", sections[3].Key)
		assert.Equal(t, 3, sections[3].OrderIndex)
		assert.Equal(t, strings.TrimPrefix(out, "Section gallery added with id "), sections[3].ID)
	})

	t.Run("explicit order index", func(t *testing.T) {
		r, repo := newTestRegistry(t)
		_, err := r.Execute(ctx, "add_section",
			json.RawMessage(`{"pageId":"page-home","sectionKey":"tabs","content":{},"orderIndex":0}`))
		require.NoError(t, err)

		sections, err := repo.ListSections(ctx, "page-home")
		require.NoError(t, err)
		keys := make([]string, len(sections))
		for i, s := range sections {
			keys[i] = s.Key
		}
		assert.Equal(t, []string{"hero", "tabs", "about_summary", "cta"}, keys)
	})

	t.Run("validation", func(t *testing.T) {
		r, _ := newTestRegistry(t)
		tests := []struct {
			name  string
			input string
		}{
			{"missing page", `{"sectionKey":"cta","content":{}}`},
			{"missing key", `{"pageId":"page-home","content":{}}`},
			{"reserved key", `{"pageId":"page-home","sectionKey":"puck_data","content":{}}`},
			{"unknown page", `{"pageId":"page-nope","sectionKey":"cta","content":{}}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := r.Execute(ctx, "add_section", json.RawMessage(tt.input))
				assert.Error(t, err)
			})
		}
	})
}

func TestGetSiteContext(t *testing.T) {
	ctx := context.Background()

	t.Run("seeded", func(t *testing.T) {
		r, _ := newTestRegistry(t)
		out, err := r.Execute(ctx, "get_site_context", nil)
		require.NoError(t, err)

		var sc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &sc))
		assert.Equal(t, "warm and expert", sc["tone"])
	})

	t.Run("absent", func(t *testing.T) {
		r := NewRegistry(Deps{Repo: store.NewMemory()})
		out, err := r.Execute(ctx, "get_site_context", nil)
		require.NoError(t, err)
		assert.Equal(t, "{}", out)
	})
}

func TestUpdatePageSEO(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps keywords when omitted", func(t *testing.T) {
		r, repo := newTestRegistry(t)
		out, err := r.Execute(ctx, "update_page_seo",
			json.RawMessage(`{"pageId":"page-home","title":"Spring Sale","description":"20% off all drips"}`))
		require.NoError(t, err)
		assert.Contains(t, out, "Spring Sale")

		page, err := repo.GetPage(ctx, "page-home")
		require.NoError(t, err)
		assert.Equal(t, "Spring Sale", page.Title)
		assert.Equal(t, "20% off all drips", page.MetaDescription)
		assert.Equal(t, []string{"iv therapy"}, page.Keywords)

		entries, err := repo.ListAudit(ctx, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "update_page_seo page-home", entries[0].Action)
		assert.NotContains(t, entries[0].Diff, "keywords")
	})

	t.Run("replaces keywords", func(t *testing.T) {
		r, repo := newTestRegistry(t)
		_, err := r.Execute(ctx, "update_page_seo",
			json.RawMessage(`{"pageId":"page-services","title":"Services","description":"d","keywords":["nad+","hydration"]}`))
		require.NoError(t, err)

		page, err := repo.GetPage(ctx, "page-services")
		require.NoError(t, err)
		assert.Equal(t, []string{"nad+", "hydration"}, page.Keywords)
	})

	t.Run("unknown page", func(t *testing.T) {
		r, _ := newTestRegistry(t)
		_, err := r.Execute(ctx, "update_page_seo", json.RawMessage(`{"pageId":"nope","title":"x","description":"y"}`))
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("title is required", func(t *testing.T) {
		r, _ := newTestRegistry(t)
		_, err := r.Execute(ctx, "update_page_seo", json.RawMessage(`{"pageId":"page-home","title":"  "}`))
		require.Error(t, err)
	})
}

func TestFindSimilarComponents(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t)

	search := func(t *testing.T, query string) []Component {
		t.Helper()
		in, _ := json.Marshal(map[string]string{"query": query})
		out, err := r.Execute(ctx, "find_similar_components", in)
		require.NoError(t, err)
		var comps []Component
		require.NoError(t, json.Unmarshal([]byte(out), &comps))
		return comps
	}

	t.Run("pricing matches only the pricing table", func(t *testing.T) {
		comps := search(t, "pricing")
		require.Len(t, comps, 1)
		assert.Equal(t, "PricingTable", comps[0].Name)
	})

	t.Run("case insensitive", func(t *testing.T) {
		comps := search(t, "GALLERY")
		require.Len(t, comps, 1)
		assert.Equal(t, "Gallery", comps[0].Name)
	})

	t.Run("no match falls back to the first three", func(t *testing.T) {
		comps := search(t, "zzz-no-match")
		assert.Equal(t, Catalog[:3], comps)
	})

	t.Run("empty query falls back", func(t *testing.T) {
		assert.Len(t, search(t, ""), 3)
	})

	t.Run("render", func(t *testing.T) {
		blocks := renderComponents(`[{"name":"FAQ","description":"Q and A"}]`)
		require.Len(t, blocks, 1)
		assert.Equal(t, [][]string{{"FAQ", "Q and A"}}, blocks[0].Table.Rows)
	})
}

func TestAnalyzeSEOQuality(t *testing.T) {
	words := func(n int) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = "word" + strings.Repeat("x", i%7)
		}
		return strings.Join(parts, " ")
	}

	tests := []struct {
		name    string
		content string
		score   int
	}{
		{"baseline", "Short copy about hydration.", 50},
		{"exactly 300 words", words(300), 50},
		{"long copy", words(301), 70},
		{"mentions IV", "Book an IV drip today.", 60},
		{"lowercase iv does not count", "book an iv drip today", 50},
		{"long copy with IV", words(300) + " IV", 80},
		{"empty", "", 50},
	}

	ctx := context.Background()
	r, _ := newTestRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, _ := json.Marshal(map[string]string{"content": tt.content})
			out, err := r.Execute(ctx, "analyze_seo_quality", in)
			require.NoError(t, err)

			var report SEOReport
			require.NoError(t, json.Unmarshal([]byte(out), &report))
			assert.Equal(t, tt.score, report.Score)
			assert.NotEmpty(t, report.Recommendations)
		})
	}

	t.Run("render", func(t *testing.T) {
		blocks := renderSEOReport(`{"score":70,"word_count":301,"recommendations":["a"]}`)
		require.Len(t, blocks, 1)
		require.NotNil(t, blocks[0].KV)
		assert.Equal(t, KVItem{Key: "Score", Value: "70"}, blocks[0].KV.Items[0])
		assert.Len(t, blocks[0].KV.Items, 3)
	})
}

func TestAutomationStubs(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t)

	out, err := r.Execute(ctx, "setup_whatsapp_automation",
		json.RawMessage(`{"phoneNumber":"+15550100","messageTemplate":"Hi {{name}}"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "+15550100")

	out, err = r.Execute(ctx, "generate_email_marketing_sequence",
		json.RawMessage(`{"campaignName":"Spring","steps":["welcome","offer","reminder"]}`))
	require.NoError(t, err)
	assert.Contains(t, out, "3 steps")

	out, err = r.Execute(ctx, "generate_email_marketing_sequence", json.RawMessage(`not json`))
	require.NoError(t, err)
	assert.Contains(t, out, "0 steps")
}
