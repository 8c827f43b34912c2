package editor

import (
	"fmt"

	"github.com/yolodolo42/sitepilot/internal/domain"
)

// TransformFunc maps one section to a block. index is the section's
// position in the page and is used for the block id when the section has no
// ID yet.
type TransformFunc func(s domain.Section, index int) Block

// Transformer converts sections to editor documents using a registry keyed
// by section key. Unregistered keys go through the fallback.
type Transformer struct {
	registry map[string]TransformFunc
	fallback TransformFunc
}

// NewTransformer returns a transformer with the default marketing blocks.
func NewTransformer() *Transformer {
	t := &Transformer{
		registry: make(map[string]TransformFunc),
		fallback: HeaderBlock,
	}
	t.Register("hero", HeroBlock)
	t.Register("services_intro", ServicesBlock)
	t.Register("services_list", ServicesBlock)
	t.Register("about_summary", AboutBlock)
	t.Register("tabs", TabsBlock)
	t.Register("carousel", CarouselBlock)
	t.Register("gallery", GalleryBlock)
	t.Register("cta", CTABlock)
	t.Register("table", TableBlock)
	return t
}

// Register maps a section key to a transform, replacing any existing one.
func (t *Transformer) Register(key string, fn TransformFunc) {
	t.registry[key] = fn
}

// Keys returns the registered section keys.
func (t *Transformer) Keys() []string {
	keys := make([]string, 0, len(t.registry))
	for k := range t.registry {
		keys = append(keys, k)
	}
	return keys
}

// Transform builds the editor document for a page. A stored puck_data
// section wins over the individual sections.
func (t *Transformer) Transform(page domain.Page, sections []domain.Section) Document {
	if raw, ok := domain.FindSection(sections, domain.PuckDataKey); ok {
		return fromStored(page, raw.Content)
	}

	doc := Document{
		Content: make([]Block, 0, len(sections)),
		Root:    Root{Props: map[string]any{"title": page.Title}},
	}
	for i, s := range sections {
		if s.Key == domain.PuckDataKey {
			continue
		}
		fn, ok := t.registry[s.Key]
		if !ok {
			fn = t.fallback
		}
		doc.Content = append(doc.Content, fn(s, i))
	}
	return doc
}

// ToSection packs a document into the reserved puck_data section. The caller
// sets ID and OrderIndex when replacing an existing one.
func (t *Transformer) ToSection(pageID string, doc Document) (domain.Section, error) {
	content, err := doc.toValue()
	if err != nil {
		return domain.Section{}, err
	}
	return domain.Section{
		PageID:  pageID,
		Key:     domain.PuckDataKey,
		Title:   "Visual editor data",
		Content: content,
	}, nil
}

func fromStored(page domain.Page, content any) Document {
	stored := asMap(content)

	doc := Document{Content: []Block{}}
	for i, item := range asList(stored["content"]) {
		obj := asMap(item)
		if obj == nil {
			continue
		}
		props := make(map[string]any)
		for k, v := range asMap(obj["props"]) {
			props[k] = v
		}
		if !hasID(props["id"]) {
			if hasID(obj["id"]) {
				props["id"] = obj["id"]
			} else {
				props["id"] = fmt.Sprintf("existing-%d", i)
			}
		}
		typ, _ := obj["type"].(string)
		doc.Content = append(doc.Content, Block{Type: typ, Props: props})
	}

	rootProps := make(map[string]any)
	for k, v := range asMap(asMap(stored["root"])["props"]) {
		rootProps[k] = v
	}
	if title, _ := rootProps["title"].(string); title == "" {
		rootProps["title"] = page.Title
	}
	doc.Root = Root{Props: rootProps}
	return doc
}

func blockID(s domain.Section, index int) string {
	if s.ID != "" {
		return fmt.Sprintf("%s-%s", s.Key, s.ID)
	}
	return fmt.Sprintf("%s-%d", s.Key, index)
}

// HeroBlock renders the hero banner.
func HeroBlock(s domain.Section, index int) Block {
	c := asMap(s.Content)
	primary := asMap(c["cta_primary"])
	secondary := asMap(c["cta_secondary"])
	return Block{
		Type: "Hero",
		Props: map[string]any{
			"id":                 blockID(s, index),
			"heading":            str(c, "", "heading", "title"),
			"subheading":         str(c, "", "subheading", "subtitle"),
			"video_src":          str(c, "/bg-video.mp4", "video_src", "video"),
			"cta_primary_text":   str(primary, "Book Now", "text"),
			"cta_primary_link":   str(primary, "/booking", "link"),
			"cta_secondary_text": str(secondary, "", "text"),
			"cta_secondary_link": str(secondary, "", "link"),
		},
	}
}

// ServicesBlock maps services_intro and services_list sections to a ServicesList block.
func ServicesBlock(s domain.Section, index int) Block {
	c := asMap(s.Content)
	return Block{
		Type: "ServicesList",
		Props: map[string]any{
			"id":          blockID(s, index),
			"heading":     str(c, "", "heading", "title"),
			"description": str(c, "", "description", "text"),
			"services": objects(c, "services", func(o map[string]any) map[string]any {
				return map[string]any{
					"title":       str(o, "", "title", "name"),
					"description": str(o, "", "description"),
					"price":       cell(o["price"]),
					"image":       str(o, "", "image"),
				}
			}),
		},
	}
}

// AboutBlock maps about_summary to AboutSummary.
func AboutBlock(s domain.Section, index int) Block {
	c := asMap(s.Content)
	return Block{
		Type: "AboutSummary",
		Props: map[string]any{
			"id":        blockID(s, index),
			"heading":   str(c, "", "heading", "title"),
			"text":      str(c, "", "text", "body", "description"),
			"image":     str(c, "", "image"),
			"link_text": str(c, "Learn More", "link_text"),
			"link":      str(c, "/about", "link"),
		},
	}
}

// TabsBlock maps a tabs section; each tab keeps its label and content.
func TabsBlock(s domain.Section, index int) Block {
	c := asMap(s.Content)
	return Block{
		Type: "Tabs",
		Props: map[string]any{
			"id":      blockID(s, index),
			"heading": str(c, "", "heading", "title"),
			"tabs": objects(c, "tabs", func(o map[string]any) map[string]any {
				return map[string]any{
					"label":   str(o, "", "label", "title"),
					"content": str(o, "", "content", "text"),
				}
			}),
		},
	}
}

// CarouselBlock maps a carousel section. Autoplay defaults to true.
func CarouselBlock(s domain.Section, index int) Block {
	c := asMap(s.Content)
	return Block{
		Type: "Carousel",
		Props: map[string]any{
			"id":      blockID(s, index),
			"heading": str(c, "", "heading", "title"),
			"slides": objects(c, "slides", func(o map[string]any) map[string]any {
				return map[string]any{
					"image":   str(o, "", "image", "src"),
					"caption": str(o, "", "caption"),
				}
			}),
			"autoplay": boolean(c, "autoplay", true),
		},
	}
}

// GalleryBlock maps a gallery section, three columns unless set.
func GalleryBlock(s domain.Section, index int) Block {
	c := asMap(s.Content)
	return Block{
		Type: "Gallery",
		Props: map[string]any{
			"id":      blockID(s, index),
			"heading": str(c, "", "heading", "title"),
			"images": objects(c, "images", func(o map[string]any) map[string]any {
				return map[string]any{
					"src": str(o, "", "src", "url"),
					"alt": str(o, "", "alt"),
				}
			}),
			"columns": integer(c, "columns", 3),
		},
	}
}

// CTABlock maps a cta section to a booking call to action.
func CTABlock(s domain.Section, index int) Block {
	c := asMap(s.Content)
	button := asMap(c["button"])
	return Block{
		Type: "CTA",
		Props: map[string]any{
			"id":          blockID(s, index),
			"heading":     str(c, "", "heading", "title"),
			"text":        str(c, "", "text", "description"),
			"button_text": str(button, str(c, "Book Now", "button_text"), "text"),
			"button_link": str(button, str(c, "/booking", "button_link"), "link"),
		},
	}
}

// TableBlock maps a table section to headers and string rows.
func TableBlock(s domain.Section, index int) Block {
	c := asMap(s.Content)
	rows := []any{}
	for _, row := range asList(c["rows"]) {
		rows = append(rows, stringList(row))
	}
	return Block{
		Type: "Table",
		Props: map[string]any{
			"id":      blockID(s, index),
			"heading": str(c, "", "heading", "title"),
			"headers": stringList(c["headers"]),
			"rows":    rows,
		},
	}
}

// HeaderBlock is the fallback for unknown section keys.
func HeaderBlock(s domain.Section, index int) Block {
	return Block{
		Type: "Header",
		Props: map[string]any{
			"id":    blockID(s, index),
			"title": s.DisplayTitle(),
			"text":  preview(s.Content),
		},
	}
}
