package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/sitepilot/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// testRepository runs the behaviour every backend must share. Slugs are
// randomized so live databases can be reused between runs.
func testRepository(t *testing.T, repo Repository) {
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	t.Run("page lifecycle", func(t *testing.T) {
		page := &domain.Page{Slug: "home-" + suffix, Title: "Home"}
		require.NoError(t, repo.UpsertPage(ctx, page))
		require.NotEmpty(t, page.ID)
		assert.False(t, page.CreatedAt.IsZero())

		got, err := repo.GetPage(ctx, page.ID)
		require.NoError(t, err)
		assert.Equal(t, "Home", got.Title)

		bySlug, err := repo.GetPageBySlug(ctx, page.Slug)
		require.NoError(t, err)
		assert.Equal(t, page.ID, bySlug.ID)

		require.NoError(t, repo.UpdatePageSEO(ctx, page.ID, "Spa Home", "Relax with us", []string{"spa", "iv"}))
		got, err = repo.GetPage(ctx, page.ID)
		require.NoError(t, err)
		assert.Equal(t, "Spa Home", got.Title)
		assert.Equal(t, "Relax with us", got.MetaDescription)
		assert.Equal(t, []string{"spa", "iv"}, got.Keywords)

		pages, err := repo.ListPages(ctx)
		require.NoError(t, err)
		var found bool
		for _, p := range pages {
			if p.ID == page.ID {
				found = true
			}
		}
		assert.True(t, found)

		require.NoError(t, repo.DeletePage(ctx, page.ID))
		_, err = repo.GetPage(ctx, page.ID)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("missing records", func(t *testing.T) {
		_, err := repo.GetPage(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.GetPageBySlug(ctx, "nope-"+suffix)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.GetSection(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)

		err = repo.UpdateSectionContent(ctx, uuid.NewString(), "x")
		assert.ErrorIs(t, err, ErrNotFound)

		err = repo.UpdatePageSEO(ctx, uuid.NewString(), "t", "d", nil)
		assert.ErrorIs(t, err, ErrNotFound)

		err = repo.DeletePage(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("section ordering and content", func(t *testing.T) {
		page := &domain.Page{Slug: "about-" + suffix, Title: "About"}
		require.NoError(t, repo.UpsertPage(ctx, page))
		t.Cleanup(func() { _ = repo.DeletePage(ctx, page.ID) })

		// Same order index: insertion order decides.
		first := &domain.Section{PageID: page.ID, Key: "cta", OrderIndex: 2, Content: map[string]any{"heading": "Go"}}
		second := &domain.Section{PageID: page.ID, Key: "table", OrderIndex: 2, Content: []any{"a", "b"}}
		top := &domain.Section{PageID: page.ID, Key: "hero", Title: "Hero", OrderIndex: 0, Content: map[string]any{
			"heading": "Welcome",
			"nested":  map[string]any{"count": 3},
		}}
		require.NoError(t, repo.UpsertSection(ctx, first))
		require.NoError(t, repo.UpsertSection(ctx, second))
		require.NoError(t, repo.UpsertSection(ctx, top))

		sections, err := repo.ListSections(ctx, page.ID)
		require.NoError(t, err)
		require.Len(t, sections, 3)
		assert.Equal(t, []string{"hero", "cta", "table"}, keysOf(sections))

		hero := sections[0].Content.(map[string]any)
		assert.Equal(t, "Welcome", hero["heading"])
		assert.Equal(t, float64(3), hero["nested"].(map[string]any)["count"])
		assert.Equal(t, []any{"a", "b"}, sections[2].Content)

		// Re-upserting keeps the insertion position.
		first.Title = "Call to action"
		require.NoError(t, repo.UpsertSection(ctx, first))
		sections, err = repo.ListSections(ctx, page.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"hero", "cta", "table"}, keysOf(sections))
		assert.Equal(t, "Call to action", sections[1].Title)

		require.NoError(t, repo.UpdateSectionContent(ctx, second.ID, "plain text"))
		got, err := repo.GetSection(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, "plain text", got.Content)
	})

	t.Run("section requires page", func(t *testing.T) {
		err := repo.UpsertSection(ctx, &domain.Section{PageID: uuid.NewString(), Key: "hero"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete cascades", func(t *testing.T) {
		page := &domain.Page{Slug: "gone-" + suffix, Title: "Gone"}
		require.NoError(t, repo.UpsertPage(ctx, page))
		sec := &domain.Section{PageID: page.ID, Key: "hero"}
		require.NoError(t, repo.UpsertSection(ctx, sec))

		require.NoError(t, repo.DeletePage(ctx, page.ID))
		_, err := repo.GetSection(ctx, sec.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("site context", func(t *testing.T) {
		sc := &domain.SiteContext{BrandName: "Glow", Tone: "warm", Keywords: []string{"iv therapy"}}
		require.NoError(t, repo.UpsertSiteContext(ctx, sc))

		got, err := repo.GetSiteContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Glow", got.BrandName)
		assert.Equal(t, "warm", got.Tone)
		assert.Equal(t, []string{"iv therapy"}, got.Keywords)
	})

	t.Run("audit newest first", func(t *testing.T) {
		goal := "goal-" + suffix
		for _, action := range []string{"a1", "a2", "a3"} {
			require.NoError(t, repo.AppendAudit(ctx, &domain.AuditEntry{
				Goal:      goal,
				AgentName: "sitepilot",
				Action:    action,
				Diff:      map[string]any{"action": action},
			}))
		}

		entries, err := repo.ListAudit(ctx, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a3", entries[0].Action)
		assert.Equal(t, "a2", entries[1].Action)
		assert.Equal(t, "a3", entries[0].Diff["action"])
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})
}

func keysOf(sections []domain.Section) []string {
	keys := make([]string, len(sections))
	for i, s := range sections {
		keys[i] = s.Key
	}
	return keys
}

func TestMemoryStore(t *testing.T) {
	testRepository(t, NewMemory())
}

func TestMemoryStore_DuplicateSlug(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	require.NoError(t, repo.UpsertPage(ctx, &domain.Page{Slug: "home"}))
	err := repo.UpsertPage(ctx, &domain.Page{Slug: "home"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used")
}

func TestSQLiteStore(t *testing.T) {
	repo, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	testRepository(t, repo)
}

func TestSQLiteStore_Pragmas(t *testing.T) {
	ctx := context.Background()
	repo, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer repo.Close()

	var mode string
	require.NoError(t, repo.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, repo.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	repo, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	page := &domain.Page{Slug: "home", Title: "Home"}
	require.NoError(t, repo.UpsertPage(ctx, page))
	require.NoError(t, repo.Close())

	repo, err = NewSQLite(ctx, path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetPageBySlug(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, page.ID, got.ID)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("SITEPILOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SITEPILOT_TEST_POSTGRES_DSN not set")
	}

	repo, err := NewPostgres(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	testRepository(t, repo)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("SITEPILOT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SITEPILOT_TEST_MONGO_URI not set")
	}

	database := "sitepilot_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	repo, err := NewMongo(context.Background(), uri, database)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = repo.db.Drop(context.Background())
		_ = repo.Close()
	})

	testRepository(t, repo)

	t.Run("content stored as a document", func(t *testing.T) {
		ctx := context.Background()
		page := &domain.Page{Slug: "native-" + uuid.NewString()[:8], Title: "Native"}
		require.NoError(t, repo.UpsertPage(ctx, page))
		sec := &domain.Section{PageID: page.ID, Key: "hero", Content: map[string]any{
			"heading": "Hello",
			"items":   []any{map[string]any{"title": "A"}},
		}}
		require.NoError(t, repo.UpsertSection(ctx, sec))

		var raw bson.M
		require.NoError(t, repo.sections().FindOne(ctx, bson.M{"_id": sec.ID}).Decode(&raw))
		assert.IsType(t, bson.M{}, raw["content"])

		got, err := repo.GetSection(ctx, sec.ID)
		require.NoError(t, err)
		assert.Equal(t, sec.Content, got.Content)
	})
}

func TestFromBSON(t *testing.T) {
	t.Run("nested documents and arrays", func(t *testing.T) {
		in := bson.M{
			"heading": "Hi",
			"count":   int32(3),
			"seq":     int64(9),
			"items":   bson.A{bson.M{"id": "a"}, bson.D{{Key: "id", Value: "b"}}},
		}
		want := map[string]any{
			"heading": "Hi",
			"count":   float64(3),
			"seq":     float64(9),
			"items":   []any{map[string]any{"id": "a"}, map[string]any{"id": "b"}},
		}
		assert.Equal(t, want, fromBSON(in))
	})

	t.Run("scalars pass through", func(t *testing.T) {
		assert.Nil(t, fromBSON(nil))
		assert.Equal(t, "x", fromBSON("x"))
		assert.Equal(t, true, fromBSON(true))
	})

	t.Run("as document", func(t *testing.T) {
		assert.Equal(t, bson.M{"a": 1.0}, asDocument(map[string]any{"a": 1.0}))
		assert.Nil(t, asDocument([]any{1.0}))
		assert.Nil(t, asDocument(nil))
	})
}
