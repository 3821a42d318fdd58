package woocommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/storeassist/internal/domain/entities"
	"github.com/zatekoja/storeassist/internal/domain/providers"
	"github.com/zatekoja/storeassist/pkg/config"
	apperrors "github.com/zatekoja/storeassist/pkg/errors"
	"github.com/zatekoja/storeassist/pkg/retry"
	"github.com/zatekoja/storeassist/pkg/utils"
)

// Client reads products from the WooCommerce REST API and pages/posts from
// the WordPress REST API.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
	retryConfig    retry.Config
}

var _ providers.ContentSource = (*Client)(nil)

// NewClient creates a store API client.
func NewClient(cfg *config.WooCommerceConfig) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("woocommerce base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryConfig: retry.FetchConfig(),
	}, nil
}

type wcTerm struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type wcImage struct {
	ID   int64  `json:"id"`
	Src  string `json:"src"`
	Name string `json:"name"`
	Alt  string `json:"alt"`
}

type wcAttribute struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

type wcProduct struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name"`
	Type             string        `json:"type"`
	Status           string        `json:"status"`
	Featured         bool          `json:"featured"`
	Description      string        `json:"description"`
	ShortDescription string        `json:"short_description"`
	SKU              string        `json:"sku"`
	Price            string        `json:"price"`
	RegularPrice     string        `json:"regular_price"`
	SalePrice        string        `json:"sale_price"`
	StockStatus      string        `json:"stock_status"`
	StockQuantity    *int          `json:"stock_quantity"`
	Permalink        string        `json:"permalink"`
	Categories       []wcTerm      `json:"categories"`
	Tags             []wcTerm      `json:"tags"`
	Images           []wcImage     `json:"images"`
	Attributes       []wcAttribute `json:"attributes"`
	DateCreated      string        `json:"date_created"`
	DateModified     string        `json:"date_modified"`
}

type wpRendered struct {
	Rendered string `json:"rendered"`
}

type wpMedia struct {
	ID           int64  `json:"id"`
	SourceURL    string `json:"source_url"`
	AltText      string `json:"alt_text"`
	MediaDetails struct {
		Sizes map[string]struct {
			SourceURL string `json:"source_url"`
		} `json:"sizes"`
	} `json:"media_details"`
}

type wpPost struct {
	ID       int64      `json:"id"`
	Date     string     `json:"date"`
	Modified string     `json:"modified"`
	Status   string     `json:"status"`
	Type     string     `json:"type"`
	Link     string     `json:"link"`
	Title    wpRendered `json:"title"`
	Content  wpRendered `json:"content"`
	Excerpt  wpRendered `json:"excerpt"`
	Embedded struct {
		FeaturedMedia []wpMedia `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

// GetProduct fetches a single product.
func (c *Client) GetProduct(ctx context.Context, id int64) (*entities.ProductPayload, error) {
	endpoint := fmt.Sprintf("%s/wp-json/wc/v3/products/%d", c.baseURL, id)
	var out wcProduct
	if err := c.getJSON(ctx, endpoint, true, &out); err != nil {
		return nil, err
	}
	return toProductPayload(&out), nil
}

// ListProducts fetches one page of published products. An empty slice marks
// the end of the catalogue.
func (c *Client) ListProducts(ctx context.Context, page, perPage int) ([]*entities.ProductPayload, error) {
	endpoint := c.listURL("/wp-json/wc/v3/products", page, perPage, url.Values{"status": {"publish"}})
	var out []wcProduct
	if err := c.getJSON(ctx, endpoint, true, &out); err != nil {
		if page > 1 && apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			return []*entities.ProductPayload{}, nil
		}
		return nil, err
	}
	products := make([]*entities.ProductPayload, 0, len(out))
	for i := range out {
		products = append(products, toProductPayload(&out[i]))
	}
	return products, nil
}

// GetPage fetches a page or post with its featured image embedded.
func (c *Client) GetPage(ctx context.Context, postType string, id int64) (*entities.PagePayload, error) {
	collection, err := collectionFor(postType)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/wp-json/wp/v2/%s/%d?_embed=wp:featuredmedia", c.baseURL, collection, id)
	var out wpPost
	if err := c.getJSON(ctx, endpoint, false, &out); err != nil {
		return nil, err
	}
	return toPagePayload(&out, postType), nil
}

// ListPages fetches one page of published pages or posts. WordPress answers
// 400 past the last page, which is reported as an empty slice.
func (c *Client) ListPages(ctx context.Context, postType string, page, perPage int) ([]*entities.PagePayload, error) {
	collection, err := collectionFor(postType)
	if err != nil {
		return nil, err
	}
	endpoint := c.listURL("/wp-json/wp/v2/"+collection, page, perPage, url.Values{"_embed": {"wp:featuredmedia"}})
	var out []wpPost
	if err := c.getJSON(ctx, endpoint, false, &out); err != nil {
		if page > 1 && apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			return []*entities.PagePayload{}, nil
		}
		return nil, err
	}
	pages := make([]*entities.PagePayload, 0, len(out))
	for i := range out {
		pages = append(pages, toPagePayload(&out[i], postType))
	}
	return pages, nil
}

// SearchProducts runs the store's own product search over published products.
func (c *Client) SearchProducts(ctx context.Context, query string, perPage int) ([]*entities.ProductPayload, error) {
	endpoint := c.listURL("/wp-json/wc/v3/products", 0, perPage, url.Values{
		"search": {query},
		"status": {"publish"},
	})
	var out []wcProduct
	if err := c.getJSON(ctx, endpoint, true, &out); err != nil {
		return nil, err
	}
	products := make([]*entities.ProductPayload, 0, len(out))
	for i := range out {
		products = append(products, toProductPayload(&out[i]))
	}
	return products, nil
}

func collectionFor(postType string) (string, error) {
	switch postType {
	case "page":
		return "pages", nil
	case "post":
		return "posts", nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("unsupported post type %q", postType))
	}
}

func (c *Client) listURL(path string, page, perPage int, extra url.Values) string {
	query := url.Values{}
	for k, v := range extra {
		query[k] = v
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("per_page", strconv.Itoa(perPage))
	}
	return c.baseURL + path + "?" + query.Encode()
}

// getJSON GETs endpoint with retry. 4xx responses are not retried: 404 maps to
// NotFound, 401/403 to Unauthorized, other 4xx to Validation.
func (c *Client) getJSON(ctx context.Context, endpoint string, authenticated bool, out interface{}) error {
	return retry.DoWithLog(ctx, c.retryConfig, "woocommerce", func() error {
		return c.doJSON(ctx, endpoint, authenticated, out)
	}, func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Str("endpoint", endpoint).Msg("store API request failed")
	})
}

func (c *Client) doJSON(ctx context.Context, endpoint string, authenticated bool, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if authenticated && c.consumerKey != "" {
		httpReq.SetBasicAuth(c.consumerKey, c.consumerSecret)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.NewExternalError("store API request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(apperrors.NewNotFoundError("store item not found"))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return retry.Permanent(apperrors.NewUnauthorizedError(fmt.Sprintf("store API rejected credentials with status %d", resp.StatusCode)))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return retry.Permanent(apperrors.NewValidationError(fmt.Sprintf("store API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return apperrors.NewExternalError(fmt.Sprintf("store API returned status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(apperrors.NewExternalError("failed to decode store API response", err))
	}
	return nil
}

func toProductPayload(p *wcProduct) *entities.ProductPayload {
	payload := &entities.ProductPayload{
		ID:               p.ID,
		Name:             p.Name,
		Type:             p.Type,
		Status:           p.Status,
		Featured:         p.Featured,
		Description:      utils.CleanContent(p.Description),
		ShortDescription: utils.CleanContent(p.ShortDescription),
		SKU:              p.SKU,
		Price:            p.Price,
		RegularPrice:     p.RegularPrice,
		SalePrice:        p.SalePrice,
		StockStatus:      p.StockStatus,
		StockQuantity:    p.StockQuantity,
		Permalink:        p.Permalink,
		Categories:       toTerms(p.Categories),
		Tags:             toTerms(p.Tags),
		DateCreated:      p.DateCreated,
		DateModified:     p.DateModified,
	}
	for _, img := range p.Images {
		// the v3 API exposes a single source URL per image
		payload.Images = append(payload.Images, entities.ProductImage{
			ID:        img.ID,
			URL:       img.Src,
			Thumbnail: img.Src,
			Alt:       img.Alt,
		})
	}
	for _, attr := range p.Attributes {
		payload.Attributes = append(payload.Attributes, entities.ProductAttribute{Name: attr.Name, Options: attr.Options})
	}
	return payload
}

func toTerms(in []wcTerm) []entities.Term {
	if len(in) == 0 {
		return nil
	}
	out := make([]entities.Term, 0, len(in))
	for _, t := range in {
		out = append(out, entities.Term{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	return out
}

func toPagePayload(p *wpPost, postType string) *entities.PagePayload {
	typ := p.Type
	if typ == "" {
		typ = postType
	}
	payload := &entities.PagePayload{
		ID:        p.ID,
		Title:     utils.CleanContent(p.Title.Rendered),
		Content:   utils.CleanContent(p.Content.Rendered),
		Excerpt:   utils.CleanContent(p.Excerpt.Rendered),
		Type:      typ,
		Status:    p.Status,
		Date:      p.Date,
		Modified:  p.Modified,
		Permalink: p.Link,
	}
	if len(p.Embedded.FeaturedMedia) > 0 {
		media := p.Embedded.FeaturedMedia[0]
		image := &entities.FeaturedImage{ID: media.ID, URL: media.SourceURL, Alt: media.AltText, Thumbnail: media.SourceURL}
		if thumb, ok := media.MediaDetails.Sizes["thumbnail"]; ok && thumb.SourceURL != "" {
			image.Thumbnail = thumb.SourceURL
		}
		payload.FeaturedImage = image
	}
	return payload
}
