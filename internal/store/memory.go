package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yolodolo42/sitepilot/internal/domain"
)

// MemoryStore implements Repository in process memory. Used by tests and the
// "memory" driver.
type MemoryStore struct {
	mu       sync.RWMutex
	pages    map[string]domain.Page
	sections map[string]domain.Section
	seq      map[string]int64 // section ID -> insertion sequence
	nextSeq  int64
	site     *domain.SiteContext
	audit    []domain.AuditEntry
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		pages:    make(map[string]domain.Page),
		sections: make(map[string]domain.Section),
		seq:      make(map[string]int64),
	}
}

func (m *MemoryStore) GetPage(_ context.Context, id string) (*domain.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pages[id]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (m *MemoryStore) GetPageBySlug(_ context.Context, slug string) (*domain.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.pages {
		if p.Slug == slug {
			p := p
			return &p, nil
		}
	}
	return nil, fmt.Errorf("page %q: %w", slug, ErrNotFound)
}

func (m *MemoryStore) ListPages(_ context.Context) ([]domain.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Page, 0, len(m.pages))
	for _, p := range m.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (m *MemoryStore) UpsertPage(_ context.Context, page *domain.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, p := range m.pages {
		if p.Slug == page.Slug && id != page.ID {
			return fmt.Errorf("upsert page: slug %q already used by page %s", page.Slug, id)
		}
	}
	stampPage(page)
	m.pages[page.ID] = *page
	return nil
}

func (m *MemoryStore) DeletePage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pages[id]; !ok {
		return fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	delete(m.pages, id)
	for sid, s := range m.sections {
		if s.PageID == id {
			delete(m.sections, sid)
			delete(m.seq, sid)
		}
	}
	return nil
}

func (m *MemoryStore) UpdatePageSEO(_ context.Context, id, title, description string, keywords []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pages[id]
	if !ok {
		return fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	p.Title = title
	p.MetaDescription = description
	p.Keywords = append([]string(nil), keywords...)
	p.UpdatedAt = now()
	m.pages[id] = p
	return nil
}

func (m *MemoryStore) ListSections(_ context.Context, pageID string) ([]domain.Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Section, 0)
	for _, s := range m.sections {
		if s.PageID == pageID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return m.seq[out[i].ID] < m.seq[out[j].ID]
	})
	return out, nil
}

func (m *MemoryStore) GetSection(_ context.Context, id string) (*domain.Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sections[id]
	if !ok {
		return nil, fmt.Errorf("section %s: %w", id, ErrNotFound)
	}
	return &s, nil
}

func (m *MemoryStore) UpsertSection(_ context.Context, section *domain.Section) error {
	content, err := normalizeContent(section.Content)
	if err != nil {
		return fmt.Errorf("upsert section: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pages[section.PageID]; !ok {
		return fmt.Errorf("upsert section: page %s: %w", section.PageID, ErrNotFound)
	}
	stampSection(section)
	section.Content = content
	if _, ok := m.seq[section.ID]; !ok {
		m.nextSeq++
		m.seq[section.ID] = m.nextSeq
	}
	m.sections[section.ID] = *section
	return nil
}

func (m *MemoryStore) UpdateSectionContent(_ context.Context, id string, content any) error {
	normalized, err := normalizeContent(content)
	if err != nil {
		return fmt.Errorf("update section content: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sections[id]
	if !ok {
		return fmt.Errorf("section %s: %w", id, ErrNotFound)
	}
	s.Content = normalized
	s.UpdatedAt = now()
	m.sections[id] = s
	return nil
}

func (m *MemoryStore) GetSiteContext(_ context.Context) (*domain.SiteContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.site == nil {
		return nil, fmt.Errorf("site context: %w", ErrNotFound)
	}
	sc := *m.site
	return &sc, nil
}

func (m *MemoryStore) UpsertSiteContext(_ context.Context, sc *domain.SiteContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sc.UpdatedAt = now()
	cp := *sc
	m.site = &cp
	return nil
}

func (m *MemoryStore) AppendAudit(_ context.Context, entry *domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stampAudit(entry)
	m.audit = append(m.audit, *entry)
	return nil
}

func (m *MemoryStore) ListAudit(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.AuditEntry, 0, len(m.audit))
	for i := len(m.audit) - 1; i >= 0; i-- {
		out = append(out, m.audit[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
