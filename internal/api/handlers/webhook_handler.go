package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/zatekoja/storeassist/internal/infrastructure/observability"
)

const maxWebhookBody = 2 << 20

// ContentIndexer defines the single item index operations driven by webhooks.
type ContentIndexer interface {
	IndexProduct(ctx context.Context, id int64) error
	IndexPage(ctx context.Context, postType string, id int64) error
	DeleteProduct(ctx context.Context, id int64) error
	DeletePage(ctx context.Context, id int64) error
}

// WebhookHandler keeps the index in step with store change notifications.
type WebhookHandler struct {
	indexer       ContentIndexer
	signingSecret string
}

// NewWebhookHandler creates a new webhook handler. With an empty secret
// every delivery is rejected.
func NewWebhookHandler(indexer ContentIndexer, signingSecret string) *WebhookHandler {
	return &WebhookHandler{indexer: indexer, signingSecret: signingSecret}
}

// webhookPayload holds the fields common to product, page and post bodies
type webhookPayload struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// HandleWebhook handles POST /webhooks/woocommerce
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !h.verifySignature(r.Header.Get("X-WC-Webhook-Signature"), body) {
		respondWithError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	// WooCommerce pings a new webhook with a form body before sending JSON
	if bytes.HasPrefix(body, []byte("webhook_id=")) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "pong"})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.ID <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	topic := r.Header.Get("X-WC-Webhook-Topic")
	resource, action, _ := strings.Cut(topic, ".")

	switch {
	case resource == "product" && action == "deleted":
		err = h.indexer.DeleteProduct(ctx, payload.ID)
	case resource == "product":
		err = h.indexer.IndexProduct(ctx, payload.ID)
	case (resource == "page" || resource == "post") && action == "deleted":
		err = h.indexer.DeletePage(ctx, payload.ID)
	case resource == "page" || resource == "post":
		err = h.indexer.IndexPage(ctx, resource, payload.ID)
	default:
		logger.Debug().Str("topic", topic).Msg("ignoring webhook topic")
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err != nil {
		logger.Error().Err(err).Str("topic", topic).Int64("id", payload.ID).Msg("failed to apply webhook")
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

// verifySignature checks the base64 HMAC-SHA256 of the raw body.
func (h *WebhookHandler) verifySignature(signature string, body []byte) bool {
	if h.signingSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.signingSecret))
	mac.Write(body)
	expectedSignature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}
