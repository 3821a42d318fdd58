package entities

import (
	"encoding/json"
	"time"
)

// EntityKind identifies which index an entity lives in
type EntityKind string

const (
	EntityKindProduct EntityKind = "product"
	EntityKindPage    EntityKind = "page"
)

// Valid reports whether k is a known kind
func (k EntityKind) Valid() bool {
	return k == EntityKindProduct || k == EntityKindPage
}

// IndexedEntity is one denormalized row of the content index.
// (Kind, EntityID) is unique; Payload is the serialized ProductPayload or
// PagePayload and is matched as raw text.
type IndexedEntity struct {
	Kind        EntityKind `json:"kind" db:"kind"`
	EntityID    int64      `json:"entity_id" db:"entity_id"`
	Payload     string     `json:"payload" db:"payload"`
	LastUpdated time.Time  `json:"last_updated" db:"last_updated"`
}

// IndexStats summarizes one index
type IndexStats struct {
	Kind        EntityKind `json:"kind"`
	Count       int        `json:"count"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// ProductImage is an image attached to a product
type ProductImage struct {
	ID        int64  `json:"id"`
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Alt       string `json:"alt,omitempty"`
}

// Term is a category, tag or attribute value
type Term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// ProductAttribute is a named product attribute with its options
type ProductAttribute struct {
	Name    string   `json:"name"`
	Options []string `json:"options,omitempty"`
}

// ProductPayload is the serialized shape of an indexed product
type ProductPayload struct {
	ID               int64              `json:"id"`
	Name             string             `json:"name"`
	Type             string             `json:"type,omitempty"`
	Status           string             `json:"status,omitempty"`
	Featured         bool               `json:"featured,omitempty"`
	Description      string             `json:"description,omitempty"`
	ShortDescription string             `json:"short_description,omitempty"`
	SKU              string             `json:"sku,omitempty"`
	Price            string             `json:"price"`
	RegularPrice     string             `json:"regular_price,omitempty"`
	SalePrice        string             `json:"sale_price,omitempty"`
	StockStatus      string             `json:"stock_status,omitempty"`
	StockQuantity    *int               `json:"stock_quantity,omitempty"`
	Permalink        string             `json:"permalink"`
	Categories       []Term             `json:"categories,omitempty"`
	Tags             []Term             `json:"tags,omitempty"`
	Images           []ProductImage     `json:"images,omitempty"`
	Attributes       []ProductAttribute `json:"attributes,omitempty"`
	DateCreated      string             `json:"date_created,omitempty"`
	DateModified     string             `json:"date_modified,omitempty"`
}

// FeaturedImage is the thumbnail attached to a page or post
type FeaturedImage struct {
	ID        int64  `json:"id"`
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Alt       string `json:"alt,omitempty"`
}

// PagePayload is the serialized shape of an indexed page or post
type PagePayload struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Content       string         `json:"content,omitempty"`
	Excerpt       string         `json:"excerpt,omitempty"`
	Type          string         `json:"type"`
	Status        string         `json:"status,omitempty"`
	Date          string         `json:"date,omitempty"`
	Modified      string         `json:"modified,omitempty"`
	Permalink     string         `json:"permalink"`
	FeaturedImage *FeaturedImage `json:"featured_image,omitempty"`
	Categories    []Term         `json:"categories,omitempty"`
	Tags          []Term         `json:"tags,omitempty"`
}

// DecodeProductPayload parses a stored product payload. ok is false when the
// text is not valid JSON or the product has no name.
func DecodeProductPayload(raw string) (*ProductPayload, bool) {
	var p ProductPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	if p.Name == "" {
		return nil, false
	}
	return &p, true
}

// DecodePagePayload parses a stored page payload. ok is false when the text
// is not valid JSON or the page has no title.
func DecodePagePayload(raw string) (*PagePayload, bool) {
	var p PagePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	if p.Title == "" {
		return nil, false
	}
	return &p, true
}

// Thumbnail returns the thumbnail of the first image, if any
func (p *ProductPayload) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Thumbnail
}

// Thumbnail returns the featured image thumbnail, if any
func (p *PagePayload) Thumbnail() string {
	if p.FeaturedImage == nil {
		return ""
	}
	return p.FeaturedImage.Thumbnail
}
