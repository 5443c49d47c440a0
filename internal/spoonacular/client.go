// Package spoonacular is a small client for the Spoonacular recipe API.
//
// Only the three endpoints the app needs are covered:
//
//	GET /recipes/findByIngredients   → recipe search from pantry contents
//	GET /recipes/{id}/information    → full recipe detail
//	GET /recipes/informationBulk     → summaries for bookmarked recipes
//
// RATE LIMITING:
// The free API tier allows a few requests per second. Every call waits on a
// token bucket before going out, so a burst of app traffic queues up here
// instead of burning the daily quota on 429 responses.
package spoonacular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/metrics"
	"github.com/sakif/kitchi/internal/model"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("spoonacular: api key not configured")

// Information is the subset of /recipes/{id}/information the app uses.
// Summary and Instructions are HTML.
type Information struct {
	ID                  int                `json:"id"`
	Title               string             `json:"title"`
	Image               string             `json:"image"`
	Servings            int                `json:"servings"`
	ReadyInMinutes      int                `json:"readyInMinutes"`
	Summary             string             `json:"summary"`
	Instructions        string             `json:"instructions"`
	SourceURL           string             `json:"sourceUrl"`
	ExtendedIngredients []model.Ingredient `json:"extendedIngredients"`
}

// Client talks to the recipe API. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	metrics metrics.Recorder
}

// New creates a Client. rps <= 0 disables client-side rate limiting.
func New(baseURL, apiKey string, rps float64, timeout time.Duration, rec metrics.Recorder) *Client {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		metrics: rec,
	}
}

// FindByIngredients returns up to number recipes that use the given
// ingredients. An empty API result is an empty slice, not an error.
func (c *Client) FindByIngredients(ctx context.Context, ingredients []string, number int) ([]model.Recipe, error) {
	q := url.Values{}
	q.Set("ingredients", strings.Join(ingredients, ","))
	q.Set("number", strconv.Itoa(number))

	var recipes []model.Recipe
	if err := c.get(ctx, "findByIngredients", "/recipes/findByIngredients", q, &recipes); err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	return recipes, nil
}

// Information fetches one recipe. A 404 from the API becomes
// apperror.ErrNotFound.
func (c *Client) Information(ctx context.Context, id int) (*Information, error) {
	var info Information
	path := fmt.Sprintf("/recipes/%d/information", id)
	if err := c.get(ctx, "information", path, url.Values{}, &info); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("recipe", strconv.Itoa(id))
		}
		return nil, err
	}
	return &info, nil
}

// InformationBulk fetches summaries for several recipes in one call.
// The API silently skips unknown ids.
func (c *Client) InformationBulk(ctx context.Context, ids []int) ([]model.Recipe, error) {
	if len(ids) == 0 {
		return []model.Recipe{}, nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(parts, ","))

	var infos []Information
	if err := c.get(ctx, "informationBulk", "/recipes/informationBulk", q, &infos); err != nil {
		return nil, err
	}

	recipes := make([]model.Recipe, 0, len(infos))
	for _, info := range infos {
		recipes = append(recipes, model.Recipe{ID: info.ID, Title: info.Title, Image: info.Image})
	}
	return recipes, nil
}

// get performs a rate-limited GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: %w", ErrNotConfigured, apperror.Upstream("Recipe search is not available."))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("spoonacular %s: waiting for rate limiter: %w", endpoint, err)
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("spoonacular %s: building request: %w", endpoint, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordRecipeAPICall(endpoint, 0, time.Since(start))
		return fmt.Errorf("spoonacular %s: %w: %w", endpoint, apperror.Upstream("Could not reach the recipe service."), err)
	}
	defer resp.Body.Close()
	c.metrics.RecordRecipeAPICall(endpoint, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("spoonacular %s: %w", endpoint, apperror.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("spoonacular %s: status %d: %w", endpoint, resp.StatusCode,
			apperror.Upstream("The recipe service is unavailable. Please try again later."))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("spoonacular %s: decoding response: %w", endpoint, err)
	}
	return nil
}
