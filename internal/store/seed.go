package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/yolodolo42/sitepilot/internal/domain"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML shape accepted by Seed:
//
//	site:
//	  brand_name: Glow Clinic
//	  tone: warm
//	pages:
//	  - slug: home
//	    title: Home
//	    sections:
//	      - key: hero
//	        content: {heading: Welcome}
type Fixture struct {
	Site  *domain.SiteContext `yaml:"site"`
	Pages []FixturePage       `yaml:"pages"`
}

type FixturePage struct {
	ID              string           `yaml:"id"`
	Slug            string           `yaml:"slug"`
	Title           string           `yaml:"title"`
	MetaDescription string           `yaml:"meta_description"`
	Keywords        []string         `yaml:"keywords"`
	Sections        []FixtureSection `yaml:"sections"`
}

type FixtureSection struct {
	ID         string `yaml:"id"`
	Key        string `yaml:"key"`
	Title      string `yaml:"title"`
	OrderIndex *int   `yaml:"order_index"`
	Content    any    `yaml:"content"`
}

// SeedStats reports what Seed wrote.
type SeedStats struct {
	Pages    int
	Sections int
	Site     bool
}

// Seed loads a YAML fixture into repo. Pages are matched by slug so seeding
// twice updates rather than duplicates.
func Seed(ctx context.Context, repo Repository, r io.Reader) (*SeedStats, error) {
	var fx Fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return &SeedStats{}, nil
		}
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	stats := &SeedStats{}
	if fx.Site != nil {
		if err := repo.UpsertSiteContext(ctx, fx.Site); err != nil {
			return nil, fmt.Errorf("seed site context: %w", err)
		}
		stats.Site = true
	}

	for i, fp := range fx.Pages {
		if fp.Slug == "" {
			return nil, fmt.Errorf("fixture page %d: slug is required", i)
		}

		page := &domain.Page{
			ID:              fp.ID,
			Slug:            fp.Slug,
			Title:           fp.Title,
			MetaDescription: fp.MetaDescription,
			Keywords:        fp.Keywords,
		}
		if page.ID == "" {
			existing, err := repo.GetPageBySlug(ctx, fp.Slug)
			switch {
			case err == nil:
				page.ID = existing.ID
				page.CreatedAt = existing.CreatedAt
			case !errors.Is(err, ErrNotFound):
				return nil, fmt.Errorf("seed page %q: %w", fp.Slug, err)
			}
		}
		if err := repo.UpsertPage(ctx, page); err != nil {
			return nil, fmt.Errorf("seed page %q: %w", fp.Slug, err)
		}
		stats.Pages++

		existing, err := repo.ListSections(ctx, page.ID)
		if err != nil {
			return nil, fmt.Errorf("seed page %q: %w", fp.Slug, err)
		}

		for j, fs := range fp.Sections {
			if fs.Key == "" {
				return nil, fmt.Errorf("fixture page %q section %d: key is required", fp.Slug, j)
			}
			order := j
			if fs.OrderIndex != nil {
				order = *fs.OrderIndex
			}
			section := &domain.Section{
				ID:         fs.ID,
				PageID:     page.ID,
				Key:        fs.Key,
				Title:      fs.Title,
				Content:    yamlToJSON(fs.Content),
				OrderIndex: order,
			}
			if section.ID == "" {
				if prev, ok := domain.FindSection(existing, fs.Key); ok {
					section.ID = prev.ID
				}
			}
			if err := repo.UpsertSection(ctx, section); err != nil {
				return nil, fmt.Errorf("seed section %q/%q: %w", fp.Slug, fs.Key, err)
			}
			stats.Sections++
		}
	}
	return stats, nil
}

// yamlToJSON converts decoded YAML into JSON-compatible values. yaml.v3
// yields map[string]interface{} for mappings with string keys, but
// non-string keys produce map[interface{}]interface{}.
func yamlToJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = yamlToJSON(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = yamlToJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = yamlToJSON(val)
		}
		return out
	default:
		return v
	}
}
