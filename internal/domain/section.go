package domain

import "time"

// PuckDataKey is the reserved section key holding a page's raw visual editor
// document. It is never rendered as a regular section.
const PuckDataKey = "puck_data"

// Section is a named, ordered content payload belonging to one page.
// Content is decoded JSON: map[string]any, []any, string, float64, bool or nil.
type Section struct {
	ID         string    `json:"id"`
	PageID     string    `json:"page_id"`
	Key        string    `json:"section_key"`
	Title      string    `json:"title"`
	Content    any       `json:"content"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayTitle returns the title, falling back to the key
func (s Section) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Key
}

// FindSection returns the first section with the given key
func FindSection(sections []Section, key string) (Section, bool) {
	for _, s := range sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}
