package testutil

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/yolodolo42/sitepilot/internal/store"
)

// TempDir creates a temporary directory for testing and registers cleanup
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "sitepilot-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir) // Best-effort cleanup
	})
	return dir
}

// SetEnv sets an environment variable and restores it after the test
func SetEnv(t *testing.T, key, value string) {
	t.Helper()
	old, hadOld := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env var %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadOld {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

// UnsetEnv unsets an environment variable and restores it after the test
func UnsetEnv(t *testing.T, key string) {
	t.Helper()
	old, hadOld := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env var %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadOld {
			_ = os.Setenv(key, old)
		}
	})
}

// GetEnv returns the value of key or skips the test when it is unset.
func GetEnv(t *testing.T, key string) string {
	t.Helper()
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("%s not set", key)
	}
	return v
}

// SiteFixture is a small clinic site: a home page with hero, about and cta
// sections, an empty services page, and the brand context.
const SiteFixture = `
site:
  brand_name: Glow Clinic
  tone: warm and expert
  audience: busy professionals
  keywords: [iv therapy, wellness]
pages:
  - id: page-home
    slug: home
    title: Home
    meta_description: IV therapy and wellness in the city
    keywords: [iv therapy]
    sections:
      - id: sec-hero
        key: hero
        title: Hero
        content:
          heading: Feel better, faster
          subheading: IV drips delivered by nurses
          cta_primary:
            text: Book a drip
            link: /booking
      - id: sec-about
        key: about_summary
        title: About
        content:
          heading: Our story
          text: Founded by two ER nurses.
      - id: sec-cta
        key: cta
        content:
          heading: Ready?
          button_text: Book Now
  - id: page-services
    slug: services
    title: Services
`

// SeededRepo returns an in-memory repository loaded with SiteFixture.
func SeededRepo(t *testing.T) *store.MemoryStore {
	t.Helper()
	repo := store.NewMemory()
	if _, err := store.Seed(context.Background(), repo, strings.NewReader(SiteFixture)); err != nil {
		t.Fatalf("seed fixture: %v", err)
	}
	return repo
}
