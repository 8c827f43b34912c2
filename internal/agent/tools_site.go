package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yolodolo42/sitepilot/internal/domain"
	"github.com/yolodolo42/sitepilot/internal/llm"
	"github.com/yolodolo42/sitepilot/internal/store"
)

var (
	getPageContentTool = llm.NewTool("get_page_content",
		"Read a page and its ordered sections by slug. Use this before editing a page.",
		llm.JSONSchema{
			Type: "object",
			Properties: map[string]llm.Property{
				"slug": {Type: "string", Description: "Page slug, e.g. home or about"},
			},
			Required: []string{"slug"},
		})

	updateSectionContentTool = llm.NewTool("update_section_content",
		"Replace the content of an existing section. The content shape depends on the section key.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"sectionId": {"type": "string", "description": "ID of the section to update"},
				"content": {"description": "New content payload (object, array or string)"}
			},
			"required": ["sectionId", "content"]
		}`))

	addSectionTool = llm.NewTool("add_section",
		"Insert a new section into a page.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"pageId": {"type": "string", "description": "ID of the page"},
				"sectionKey": {"type": "string", "description": "Section key such as hero, cta, gallery or tabs"},
				"content": {"description": "Content payload for the section"},
				"orderIndex": {"type": "integer", "description": "Position of the section on the page"}
			},
			"required": ["pageId", "sectionKey", "content"]
		}`))

	getSiteContextTool = llm.NewTool("get_site_context",
		"Read the brand name, tone, audience and keywords of the site.",
		llm.JSONSchema{Type: "object", Properties: map[string]llm.Property{}})

	updatePageSEOTool = llm.NewTool("update_page_seo",
		"Set a page's title, meta description and optionally its keywords.",
		llm.JSONSchema{
			Type: "object",
			Properties: map[string]llm.Property{
				"pageId":      {Type: "string", Description: "ID of the page"},
				"title":       {Type: "string", Description: "New page title"},
				"description": {Type: "string", Description: "New meta description"},
				"keywords":    {Type: "array", Description: "SEO keywords", Items: &llm.Property{Type: "string"}},
			},
			Required: []string{"pageId", "title", "description"},
		})
)

type siteTools struct {
	repo store.Repository
}

type pageContent struct {
	Page     domain.Page      `json:"page"`
	Sections []domain.Section `json:"sections"`
}

func (t *siteTools) getPageContent(ctx context.Context, input json.RawMessage) (string, error) {
	var params struct {
		Slug string `json:"slug"`
	}
	if err := decodeInput(input, &params); err != nil {
		return "", err
	}

	page, err := t.repo.GetPageBySlug(ctx, params.Slug)
	if errors.Is(err, store.ErrNotFound) {
		return "Page not found: " + params.Slug, nil
	}
	if err != nil {
		return "", err
	}
	sections, err := t.repo.ListSections(ctx, page.ID)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(pageContent{Page: *page, Sections: sections})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type updateSectionInput struct {
	SectionID string `json:"sectionId"`
	Content   any    `json:"content"`
}

func (t *siteTools) updateSectionContent(ctx context.Context, input json.RawMessage) (string, error) {
	var params updateSectionInput
	if err := decodeInput(input, &params); err != nil {
		return "", err
	}
	if params.SectionID == "" {
		return "", fmt.Errorf("sectionId is required")
	}

	if err := t.repo.UpdateSectionContent(ctx, params.SectionID, params.Content); err != nil {
		return "", err
	}
	return fmt.Sprintf("Section %s updated", params.SectionID), nil
}

func describeSectionUpdate(input json.RawMessage) (string, map[string]any) {
	var params updateSectionInput
	_ = json.Unmarshal(input, &params)
	return "update_section_content " + params.SectionID, map[string]any{
		"section_id": params.SectionID,
		"content":    params.Content,
	}
}

func (t *siteTools) addSection(ctx context.Context, input json.RawMessage) (string, error) {
	var params struct {
		PageID     string `json:"pageId"`
		SectionKey string `json:"sectionKey"`
		Content    any    `json:"content"`
		OrderIndex *int   `json:"orderIndex"`
	}
	if err := decodeInput(input, &params); err != nil {
		return "", err
	}
	if params.PageID == "" || params.SectionKey == "" {
		return "", fmt.Errorf("pageId and sectionKey are required")
	}
	if params.SectionKey == domain.PuckDataKey {
		return "", fmt.Errorf("section key %q is reserved for the visual editor", domain.PuckDataKey)
	}

	section := &domain.Section{
		PageID:  params.PageID,
		Key:     params.SectionKey,
		Content: params.Content,
	}
	if params.OrderIndex != nil {
		section.OrderIndex = *params.OrderIndex
	} else {
		existing, err := t.repo.ListSections(ctx, params.PageID)
		if err != nil {
			return "", err
		}
		section.OrderIndex = len(existing)
	}

	if err := t.repo.UpsertSection(ctx, section); err != nil {
		return "", err
	}
	return fmt.Sprintf("Section %s added with id %s", section.Key, section.ID), nil
}

func (t *siteTools) getSiteContext(ctx context.Context, _ json.RawMessage) (string, error) {
	sc, err := t.repo.GetSiteContext(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return "{}", nil
	}
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(sc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type updateSEOInput struct {
	PageID      string   `json:"pageId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

func (t *siteTools) updatePageSEO(ctx context.Context, input json.RawMessage) (string, error) {
	var params updateSEOInput
	if err := decodeInput(input, &params); err != nil {
		return "", err
	}
	if params.PageID == "" || strings.TrimSpace(params.Title) == "" {
		return "", fmt.Errorf("pageId and title are required")
	}

	keywords := params.Keywords
	if keywords == nil {
		page, err := t.repo.GetPage(ctx, params.PageID)
		if err != nil {
			return "", err
		}
		keywords = page.Keywords
	}

	if err := t.repo.UpdatePageSEO(ctx, params.PageID, params.Title, params.Description, keywords); err != nil {
		return "", err
	}
	return fmt.Sprintf("SEO updated for page %s: title %s", params.PageID, strconv.Quote(params.Title)), nil
}

func describeSEOUpdate(input json.RawMessage) (string, map[string]any) {
	var params updateSEOInput
	_ = json.Unmarshal(input, &params)
	diff := map[string]any{
		"page_id":     params.PageID,
		"title":       params.Title,
		"description": params.Description,
	}
	if params.Keywords != nil {
		diff["keywords"] = params.Keywords
	}
	return "update_page_seo " + params.PageID, diff
}

func renderPageContent(result string) []UIBlock {
	var pc pageContent
	if err := json.Unmarshal([]byte(result), &pc); err != nil {
		return nil
	}
	rows := make([][]string, 0, len(pc.Sections))
	for _, s := range pc.Sections {
		rows = append(rows, []string{strconv.Itoa(s.OrderIndex), s.Key, s.DisplayTitle(), s.ID})
	}
	title := fmt.Sprintf("%s (/%s)", pc.Page.Title, pc.Page.Slug)
	return []UIBlock{TableBlock(title, []string{"#", "Key", "Title", "ID"}, rows)}
}
