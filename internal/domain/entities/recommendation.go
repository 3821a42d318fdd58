package entities

// Priority is the ordering applied to a matched set of recommendations
type Priority string

const (
	PriorityRelevance Priority = "relevance"
	PriorityNewest    Priority = "newest"
	PriorityPriceLow  Priority = "price_low"
	PriorityPriceHigh Priority = "price_high"
	// PrioritySales has no sales data behind it and keeps discovery order
	PrioritySales Priority = "sales"
)

// ParsePriority maps a setting value to a Priority, defaulting to relevance
func ParsePriority(value string) Priority {
	switch p := Priority(value); p {
	case PriorityRelevance, PriorityNewest, PriorityPriceLow, PriorityPriceHigh, PrioritySales:
		return p
	default:
		return PriorityRelevance
	}
}

// Recommendation is a display-ready pointer to a product or page
type Recommendation struct {
	ID    int64      `json:"id"`
	Title string     `json:"title"`
	URL   string     `json:"url"`
	Price string     `json:"price,omitempty"`
	Image string     `json:"image,omitempty"`
	Stock string     `json:"stock,omitempty"`
	Kind  EntityKind `json:"kind"`
	// Type is "product" for products and the post type ("page", "post") otherwise
	Type string `json:"type"`
}
