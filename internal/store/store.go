// Package store provides content persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yolodolo42/sitepilot/internal/domain"
)

// ErrNotFound is returned by point lookups and targeted updates when the
// record does not exist.
var ErrNotFound = errors.New("not found")

// Repository is the data store collaborator: pages, their ordered sections,
// the singleton site context and the append-only audit log.
type Repository interface {
	// GetPage retrieves a page by ID.
	GetPage(ctx context.Context, id string) (*domain.Page, error)

	// GetPageBySlug retrieves a page by its slug.
	GetPageBySlug(ctx context.Context, slug string) (*domain.Page, error)

	// ListPages returns every page ordered by slug.
	ListPages(ctx context.Context) ([]domain.Page, error)

	// UpsertPage creates or replaces a page. An empty ID is assigned.
	UpsertPage(ctx context.Context, page *domain.Page) error

	// DeletePage removes a page and all of its sections.
	DeletePage(ctx context.Context, id string) error

	// UpdatePageSEO overwrites the title, meta description and keywords of a page.
	UpdatePageSEO(ctx context.Context, id, title, description string, keywords []string) error

	// ListSections returns the sections of a page ordered by order index,
	// ties broken by insertion order.
	ListSections(ctx context.Context, pageID string) ([]domain.Section, error)

	// GetSection retrieves a section by ID.
	GetSection(ctx context.Context, id string) (*domain.Section, error)

	// UpsertSection creates or replaces a section. An empty ID is assigned.
	UpsertSection(ctx context.Context, section *domain.Section) error

	// UpdateSectionContent overwrites the content payload of a section.
	UpdateSectionContent(ctx context.Context, id string, content any) error

	// GetSiteContext returns the singleton brand record.
	GetSiteContext(ctx context.Context) (*domain.SiteContext, error)

	// UpsertSiteContext replaces the singleton brand record.
	UpsertSiteContext(ctx context.Context, sc *domain.SiteContext) error

	// AppendAudit appends an entry to the audit log.
	AppendAudit(ctx context.Context, entry *domain.AuditEntry) error

	// ListAudit returns up to limit entries, newest first. limit <= 0 means all.
	ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}

// stamp fills ID and timestamps on records about to be written.
func stampPage(p *domain.Page) {
	t := now()
	if p.ID == "" {
		p.ID = newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = t
	}
	p.UpdatedAt = t
}

func stampSection(s *domain.Section) {
	t := now()
	if s.ID == "" {
		s.ID = newID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = t
	}
	s.UpdatedAt = t
}

func stampAudit(e *domain.AuditEntry) {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
}
