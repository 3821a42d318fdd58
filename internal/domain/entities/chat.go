package entities

// ChatRequest is an incoming customer message
type ChatRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"-"`
	Message   string `json:"message"`
	// ShowSuggestions asks for store search results alongside the reply
	ShowSuggestions bool `json:"show_suggestions"`
}

// ChatResponse is what the widget renders for one turn
type ChatResponse struct {
	SessionID       string           `json:"session_id"`
	Response        string           `json:"response"`
	Recommendations []Recommendation `json:"recommendations"`
	QuickReplies    []string         `json:"quick_replies,omitempty"`

	ProductSuggestions []ProductSuggestion `json:"product_suggestions"`
}

// ProductSuggestion is a store search hit shown under the reply
type ProductSuggestion struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
	URL   string `json:"url"`
	Image string `json:"image"`
}

// ConnectionTestResult reports a round trip to the chat model
type ConnectionTestResult struct {
	Success  bool   `json:"success"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Reply    string `json:"reply,omitempty"`
	Error    string `json:"error,omitempty"`
}

// IndexStatus is the state of both content indexes
type IndexStatus struct {
	Products IndexStats `json:"products"`
	Pages    IndexStats `json:"pages"`
}

// ReindexResult reports a full reindex run
type ReindexResult struct {
	Products int `json:"products_indexed"`
	Pages    int `json:"pages_indexed"`
}
