package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yolodolo42/sitepilot/internal/domain"
)

// dialect captures the differences between the SQL backends. Queries are
// written with '?' placeholders and rebound for drivers that need $n.
type dialect struct {
	name     string
	schema   string
	seqCol   string // column that reflects insertion order
	numbered bool   // $1, $2... placeholders
}

// SQLStore implements Repository over database/sql.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) rebind(query string) string {
	if !s.d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.d.schema); err != nil {
		return fmt.Errorf("create %s schema: %w", s.d.name, err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

const pageColumns = `id, slug, title, meta_description, keywords, created_at, updated_at`

func scanPage(row rowScanner) (*domain.Page, error) {
	var (
		p                    domain.Page
		keywords             []byte
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.MetaDescription, &keywords, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := decodeJSONInto(keywords, &p.Keywords); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

// GetPage retrieves a page by ID.
func (s *SQLStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	p, err := scanPage(s.queryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan page row: %w", err)
	}
	return p, nil
}

// GetPageBySlug retrieves a page by slug.
func (s *SQLStore) GetPageBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	p, err := scanPage(s.queryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE slug = ?`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan page row: %w", err)
	}
	return p, nil
}

// ListPages returns all pages ordered by slug.
func (s *SQLStore) ListPages(ctx context.Context) ([]domain.Page, error) {
	rows, err := s.query(ctx, `SELECT `+pageColumns+` FROM pages ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	pages := make([]domain.Page, 0)
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page row: %w", err)
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// UpsertPage creates or updates a page record.
func (s *SQLStore) UpsertPage(ctx context.Context, page *domain.Page) error {
	stampPage(page)
	keywords, err := encodeJSON(page.Keywords)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO pages (id, slug, title, meta_description, keywords, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		slug = excluded.slug,
		title = excluded.title,
		meta_description = excluded.meta_description,
		keywords = excluded.keywords,
		updated_at = excluded.updated_at`

	_, err = s.exec(ctx, query,
		page.ID, page.Slug, page.Title, page.MetaDescription, keywords,
		toMillis(page.CreatedAt), toMillis(page.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	return nil
}

// DeletePage removes a page and its sections in one transaction.
func (s *SQLStore) DeletePage(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete page: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sections WHERE page_id = ?`), id); err != nil {
		return fmt.Errorf("delete sections: %w", err)
	}
	result, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM pages WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if err := requireRow(result, "page", id); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdatePageSEO overwrites title, meta description and keywords.
func (s *SQLStore) UpdatePageSEO(ctx context.Context, id, title, description string, keywords []string) error {
	kw, err := encodeJSON(keywords)
	if err != nil {
		return err
	}
	result, err := s.exec(ctx,
		`UPDATE pages SET title = ?, meta_description = ?, keywords = ?, updated_at = ? WHERE id = ?`,
		title, description, kw, toMillis(now()), id,
	)
	if err != nil {
		return fmt.Errorf("update page seo: %w", err)
	}
	return requireRow(result, "page", id)
}

func (s *SQLStore) sectionColumns() string {
	return `id, page_id, section_key, title, content, order_index, created_at, updated_at`
}

func scanSection(row rowScanner) (*domain.Section, error) {
	var (
		sec                  domain.Section
		content              []byte
		createdAt, updatedAt int64
	)
	if err := row.Scan(&sec.ID, &sec.PageID, &sec.Key, &sec.Title, &content, &sec.OrderIndex, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	v, err := decodeJSON(content)
	if err != nil {
		return nil, err
	}
	sec.Content = v
	sec.CreatedAt = fromMillis(createdAt)
	sec.UpdatedAt = fromMillis(updatedAt)
	return &sec, nil
}

// ListSections returns a page's sections ordered by order_index, then insertion.
func (s *SQLStore) ListSections(ctx context.Context, pageID string) ([]domain.Section, error) {
	query := `SELECT ` + s.sectionColumns() + ` FROM sections WHERE page_id = ? ORDER BY order_index, ` + s.d.seqCol
	rows, err := s.query(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	sections := make([]domain.Section, 0)
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section row: %w", err)
		}
		sections = append(sections, *sec)
	}
	return sections, rows.Err()
}

// GetSection retrieves a section by ID.
func (s *SQLStore) GetSection(ctx context.Context, id string) (*domain.Section, error) {
	sec, err := scanSection(s.queryRow(ctx, `SELECT `+s.sectionColumns()+` FROM sections WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("section %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan section row: %w", err)
	}
	return sec, nil
}

// UpsertSection creates or updates a section record.
func (s *SQLStore) UpsertSection(ctx context.Context, section *domain.Section) error {
	var exists int
	err := s.queryRow(ctx, `SELECT 1 FROM pages WHERE id = ?`, section.PageID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("upsert section: page %s: %w", section.PageID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("upsert section: %w", err)
	}

	stampSection(section)
	content, err := encodeJSON(section.Content)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO sections (id, page_id, section_key, title, content, order_index, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		page_id = excluded.page_id,
		section_key = excluded.section_key,
		title = excluded.title,
		content = excluded.content,
		order_index = excluded.order_index,
		updated_at = excluded.updated_at`

	_, err = s.exec(ctx, query,
		section.ID, section.PageID, section.Key, section.Title, content, section.OrderIndex,
		toMillis(section.CreatedAt), toMillis(section.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert section: %w", err)
	}
	return nil
}

// UpdateSectionContent overwrites a section's content.
func (s *SQLStore) UpdateSectionContent(ctx context.Context, id string, content any) error {
	encoded, err := encodeJSON(content)
	if err != nil {
		return err
	}
	result, err := s.exec(ctx, `UPDATE sections SET content = ?, updated_at = ? WHERE id = ?`,
		encoded, toMillis(now()), id)
	if err != nil {
		return fmt.Errorf("update section content: %w", err)
	}
	return requireRow(result, "section", id)
}

// GetSiteContext returns the singleton brand record.
func (s *SQLStore) GetSiteContext(ctx context.Context) (*domain.SiteContext, error) {
	var (
		data      []byte
		updatedAt int64
	)
	err := s.queryRow(ctx, `SELECT data, updated_at FROM site_context WHERE id = 1`).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("site context: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan site context: %w", err)
	}

	var sc domain.SiteContext
	if err := decodeJSONInto(data, &sc); err != nil {
		return nil, err
	}
	sc.UpdatedAt = fromMillis(updatedAt)
	return &sc, nil
}

// UpsertSiteContext replaces the singleton brand record.
func (s *SQLStore) UpsertSiteContext(ctx context.Context, sc *domain.SiteContext) error {
	sc.UpdatedAt = now()
	data, err := encodeJSON(sc)
	if err != nil {
		return err
	}
	query := `
	INSERT INTO site_context (id, data, updated_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	if _, err := s.exec(ctx, query, data, toMillis(sc.UpdatedAt)); err != nil {
		return fmt.Errorf("upsert site context: %w", err)
	}
	return nil
}

// AppendAudit inserts an audit log entry.
func (s *SQLStore) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	stampAudit(entry)
	diff, err := encodeJSON(entry.Diff)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx,
		`INSERT INTO audit_log (id, goal, agent_name, action, diff, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Goal, entry.AgentName, entry.Action, diff, toMillis(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns audit entries newest first.
func (s *SQLStore) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	query := `SELECT id, goal, agent_name, action, diff, created_at FROM audit_log ORDER BY created_at DESC, ` + s.d.seqCol + ` DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			e         domain.AuditEntry
			diff      []byte
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.Goal, &e.AgentName, &e.Action, &diff, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		if err := decodeJSONInto(diff, &e.Diff); err != nil {
			return nil, err
		}
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func requireRow(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
