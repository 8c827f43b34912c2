// Package domain holds the content records shared by the store, the editor
// and the agent.
package domain

import "time"

// Page is a routable page of the marketing site
type Page struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	MetaDescription string    `json:"meta_description,omitempty"`
	Keywords        []string  `json:"keywords,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
