package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yolodolo42/sitepilot/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore implements Repository on MongoDB collections: pages, sections,
// site_context and audit_log.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type pageDoc struct {
	ID              string   `bson:"_id"`
	Slug            string   `bson:"slug"`
	Title           string   `bson:"title"`
	MetaDescription string   `bson:"meta_description"`
	Keywords        []string `bson:"keywords,omitempty"`
	CreatedAt       int64    `bson:"created_at"`
	UpdatedAt       int64    `bson:"updated_at"`
}

// Content is stored as a native document. Reads go through fromBSON so the
// editor sees the same map[string]any/[]any shapes as the SQL backends.
type sectionDoc struct {
	ID         string `bson:"_id"`
	PageID     string `bson:"page_id"`
	Key        string `bson:"section_key"`
	Title      string `bson:"title"`
	Content    any    `bson:"content"`
	OrderIndex int    `bson:"order_index"`
	Seq        int64  `bson:"seq"`
	CreatedAt  int64  `bson:"created_at"`
	UpdatedAt  int64  `bson:"updated_at"`
}

type siteContextDoc struct {
	ID        string `bson:"_id"`
	DataJSON  string `bson:"data_json"`
	UpdatedAt int64  `bson:"updated_at"`
}

type auditDoc struct {
	ID        string `bson:"_id"`
	Goal      string `bson:"goal"`
	AgentName string `bson:"agent_name"`
	Action    string `bson:"action"`
	Diff      bson.M `bson:"diff,omitempty"`
	CreatedAt int64  `bson:"created_at"`
	Seq       int64  `bson:"seq"`
}

const siteContextID = "site"

// NewMongo connects to MongoDB and prepares indexes.
func NewMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if database == "" {
		database = "sitepilot"
	}

	// Embedded documents decode as bson.M rather than ordered bson.D.
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) pages() *mongo.Collection    { return s.db.Collection("pages") }
func (s *MongoStore) sections() *mongo.Collection { return s.db.Collection("sections") }
func (s *MongoStore) site() *mongo.Collection     { return s.db.Collection("site_context") }
func (s *MongoStore) audit() *mongo.Collection    { return s.db.Collection("audit_log") }

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.pages().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create pages index: %w", err)
	}
	_, err = s.sections().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "page_id", Value: 1}, {Key: "order_index", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create sections index: %w", err)
	}
	return nil
}

func (d pageDoc) toDomain() domain.Page {
	return domain.Page{
		ID:              d.ID,
		Slug:            d.Slug,
		Title:           d.Title,
		MetaDescription: d.MetaDescription,
		Keywords:        d.Keywords,
		CreatedAt:       fromMillis(d.CreatedAt),
		UpdatedAt:       fromMillis(d.UpdatedAt),
	}
}

func (d sectionDoc) toDomain() domain.Section {
	return domain.Section{
		ID:         d.ID,
		PageID:     d.PageID,
		Key:        d.Key,
		Title:      d.Title,
		Content:    fromBSON(d.Content),
		OrderIndex: d.OrderIndex,
		CreatedAt:  fromMillis(d.CreatedAt),
		UpdatedAt:  fromMillis(d.UpdatedAt),
	}
}

func (s *MongoStore) findPage(ctx context.Context, filter bson.M, label string) (*domain.Page, error) {
	var doc pageDoc
	err := s.pages().FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("page %s: %w", label, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find page: %w", err)
	}
	p := doc.toDomain()
	return &p, nil
}

func (s *MongoStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	return s.findPage(ctx, bson.M{"_id": id}, id)
}

func (s *MongoStore) GetPageBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	return s.findPage(ctx, bson.M{"slug": slug}, fmt.Sprintf("%q", slug))
}

func (s *MongoStore) ListPages(ctx context.Context) ([]domain.Page, error) {
	cursor, err := s.pages().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "slug", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var docs []pageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode pages: %w", err)
	}
	pages := make([]domain.Page, 0, len(docs))
	for _, d := range docs {
		pages = append(pages, d.toDomain())
	}
	return pages, nil
}

func (s *MongoStore) UpsertPage(ctx context.Context, page *domain.Page) error {
	stampPage(page)
	doc := pageDoc{
		ID:              page.ID,
		Slug:            page.Slug,
		Title:           page.Title,
		MetaDescription: page.MetaDescription,
		Keywords:        page.Keywords,
		CreatedAt:       toMillis(page.CreatedAt),
		UpdatedAt:       toMillis(page.UpdatedAt),
	}
	_, err := s.pages().ReplaceOne(ctx, bson.M{"_id": page.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	return nil
}

func (s *MongoStore) DeletePage(ctx context.Context, id string) error {
	result, err := s.pages().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	if _, err := s.sections().DeleteMany(ctx, bson.M{"page_id": id}); err != nil {
		return fmt.Errorf("delete sections: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdatePageSEO(ctx context.Context, id, title, description string, keywords []string) error {
	update := bson.M{"$set": bson.M{
		"title":            title,
		"meta_description": description,
		"keywords":         keywords,
		"updated_at":       toMillis(now()),
	}}
	result, err := s.pages().UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update page seo: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) ListSections(ctx context.Context, pageID string) ([]domain.Section, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order_index", Value: 1}, {Key: "seq", Value: 1}})
	cursor, err := s.sections().Find(ctx, bson.M{"page_id": pageID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	var docs []sectionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	sections := make([]domain.Section, 0, len(docs))
	for _, d := range docs {
		sections = append(sections, d.toDomain())
	}
	return sections, nil
}

func (s *MongoStore) GetSection(ctx context.Context, id string) (*domain.Section, error) {
	var doc sectionDoc
	err := s.sections().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("section %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find section: %w", err)
	}
	sec := doc.toDomain()
	return &sec, nil
}

func (s *MongoStore) UpsertSection(ctx context.Context, section *domain.Section) error {
	if _, err := s.GetPage(ctx, section.PageID); err != nil {
		return fmt.Errorf("upsert section: %w", err)
	}

	stampSection(section)
	content, err := normalizeContent(section.Content)
	if err != nil {
		return err
	}

	doc := sectionDoc{
		ID:         section.ID,
		PageID:     section.PageID,
		Key:        section.Key,
		Title:      section.Title,
		Content:    content,
		OrderIndex: section.OrderIndex,
		Seq:        time.Now().UnixNano(),
		CreatedAt:  toMillis(section.CreatedAt),
		UpdatedAt:  toMillis(section.UpdatedAt),
	}

	// Replacing must not move the section behind later inserts.
	var existing sectionDoc
	err = s.sections().FindOne(ctx, bson.M{"_id": section.ID}).Decode(&existing)
	switch {
	case err == nil:
		doc.Seq = existing.Seq
		doc.CreatedAt = existing.CreatedAt
	case !errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("upsert section: %w", err)
	}

	_, err = s.sections().ReplaceOne(ctx, bson.M{"_id": section.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert section: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateSectionContent(ctx context.Context, id string, content any) error {
	normalized, err := normalizeContent(content)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{"content": normalized, "updated_at": toMillis(now())}}
	result, err := s.sections().UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update section content: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("section %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) GetSiteContext(ctx context.Context) (*domain.SiteContext, error) {
	var doc siteContextDoc
	err := s.site().FindOne(ctx, bson.M{"_id": siteContextID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("site context: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find site context: %w", err)
	}
	var sc domain.SiteContext
	if err := decodeJSONInto([]byte(doc.DataJSON), &sc); err != nil {
		return nil, err
	}
	sc.UpdatedAt = fromMillis(doc.UpdatedAt)
	return &sc, nil
}

func (s *MongoStore) UpsertSiteContext(ctx context.Context, sc *domain.SiteContext) error {
	sc.UpdatedAt = now()
	data, err := encodeJSON(sc)
	if err != nil {
		return err
	}
	doc := siteContextDoc{ID: siteContextID, DataJSON: data, UpdatedAt: toMillis(sc.UpdatedAt)}
	_, err = s.site().ReplaceOne(ctx, bson.M{"_id": siteContextID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert site context: %w", err)
	}
	return nil
}

func (s *MongoStore) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	stampAudit(entry)
	diff, err := normalizeContent(entry.Diff)
	if err != nil {
		return err
	}
	doc := auditDoc{
		ID:        entry.ID,
		Goal:      entry.Goal,
		AgentName: entry.AgentName,
		Action:    entry.Action,
		Diff:      asDocument(diff),
		CreatedAt: toMillis(entry.CreatedAt),
		Seq:       time.Now().UnixNano(),
	}
	if _, err := s.audit().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (s *MongoStore) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.audit().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	var docs []auditDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode audit: %w", err)
	}
	entries := make([]domain.AuditEntry, 0, len(docs))
	for _, d := range docs {
		e := domain.AuditEntry{
			ID:        d.ID,
			Goal:      d.Goal,
			AgentName: d.AgentName,
			Action:    d.Action,
			CreatedAt: fromMillis(d.CreatedAt),
		}
		if d.Diff != nil {
			e.Diff, _ = fromBSON(d.Diff).(map[string]any)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// fromBSON converts decoded BSON values into the shapes encoding/json
// produces: documents become map[string]any, arrays []any, numbers float64.
func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		return fromBSON(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = fromBSON(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		return fromBSON([]any(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = fromBSON(item)
		}
		return out
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	}
	return v
}

// asDocument returns v as a bson.M when it is a JSON object, nil otherwise.
func asDocument(v any) bson.M {
	if m, ok := v.(map[string]any); ok {
		return bson.M(m)
	}
	return nil
}
