// Package editor converts page sections into the block documents consumed
// by the visual editor and writes edited documents back.
package editor

import (
	"encoding/json"
	"fmt"
)

// Block is one component instance in the editor document.
type Block struct {
	Type  string         `json:"type"`
	Props map[string]any `json:"props"`
}

// ID returns props.id, or "" when unset.
func (b Block) ID() string {
	id, _ := b.Props["id"].(string)
	return id
}

// Root carries page-level metadata such as the title.
type Root struct {
	Props map[string]any `json:"props"`
}

// Document is the full editor payload: {"content": [...], "root": {"props": {...}}}.
type Document struct {
	Content []Block `json:"content"`
	Root    Root    `json:"root"`
}

// Title returns root.props.title.
func (d Document) Title() string {
	t, _ := d.Root.Props["title"].(string)
	return t
}

// toValue converts the document into plain JSON values for storage.
func (d Document) toValue() (map[string]any, error) {
	if d.Content == nil {
		d.Content = []Block{}
	}
	if d.Root.Props == nil {
		d.Root.Props = map[string]any{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return out, nil
}

// ParseDocument decodes an editor payload.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc.Content == nil {
		doc.Content = []Block{}
	}
	if doc.Root.Props == nil {
		doc.Root.Props = map[string]any{}
	}
	for i := range doc.Content {
		if doc.Content[i].Props == nil {
			doc.Content[i].Props = map[string]any{}
		}
	}
	return &doc, nil
}
