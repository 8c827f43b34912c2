package editor

import (
	"context"
	"fmt"

	"github.com/yolodolo42/sitepilot/internal/domain"
	"github.com/yolodolo42/sitepilot/internal/store"
)

// Adapter loads and saves editor documents through the repository.
type Adapter struct {
	repo store.Repository
	tr   *Transformer
}

func NewAdapter(repo store.Repository, tr *Transformer) *Adapter {
	if tr == nil {
		tr = NewTransformer()
	}
	return &Adapter{repo: repo, tr: tr}
}

// Load returns the editor document for the page at slug.
func (a *Adapter) Load(ctx context.Context, slug string) (*Document, error) {
	page, err := a.repo.GetPageBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load editor document: %w", err)
	}
	sections, err := a.repo.ListSections(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("load editor document: %w", err)
	}
	doc := a.tr.Transform(*page, sections)
	return &doc, nil
}

// Save stores doc as the page's puck_data section, replacing the previous
// one if present. Later saves win.
func (a *Adapter) Save(ctx context.Context, slug string, doc Document) (*domain.Section, error) {
	page, err := a.repo.GetPageBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("save editor document: %w", err)
	}
	sections, err := a.repo.ListSections(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("save editor document: %w", err)
	}

	section, err := a.tr.ToSection(page.ID, doc)
	if err != nil {
		return nil, fmt.Errorf("save editor document: %w", err)
	}
	if existing, ok := domain.FindSection(sections, domain.PuckDataKey); ok {
		section.ID = existing.ID
		section.OrderIndex = existing.OrderIndex
		section.CreatedAt = existing.CreatedAt
	} else {
		section.OrderIndex = len(sections)
	}

	if err := a.repo.UpsertSection(ctx, &section); err != nil {
		return nil, fmt.Errorf("save editor document: %w", err)
	}
	return &section, nil
}
