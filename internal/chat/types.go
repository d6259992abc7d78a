package chat

import (
	"time"

	"github.com/retailmind/emilyavatar/internal/playback"
)

// Product is a catalog item the assistant surfaces alongside its
// spoken answer.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	ProductURL  string  `json:"productUrl,omitempty"`
}

// Response is a decoded assistant reply: the animated message units
// plus any product recommendations.
type Response struct {
	Messages []*playback.MessageUnit
	Products []Product
}

// HistoryEntry is one turn of the stored conversation.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	StatusCode int          `json:"statusCode"`
	Message    string       `json:"message,omitempty"`
	Data       envelopeData `json:"data"`
}

type envelopeData struct {
	Messages []*playback.MessageUnit `json:"messages"`
	Products []Product               `json:"products"`
	History  []HistoryEntry          `json:"history"`
}

type queryRequest struct {
	Query    string `json:"query"`
	Language string `json:"language,omitempty"`
}
