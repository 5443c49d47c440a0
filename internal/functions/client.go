// Package functions calls the serverless functions that do the AI work:
// reading ingredients off a food photo and writing a recipe from them.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/metrics"
)

const (
	analyzePath  = "/analyze-ingredients"
	generatePath = "/generate-recipe"
)

// Analysis is what the analyze function found in a photo. Raw is the text
// the model produced; Items is that text parsed into ingredient names.
type Analysis struct {
	Raw   string   `json:"ingredients"`
	Items []string `json:"items"`
}

// Client calls the functions endpoint with a bearer key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	metrics metrics.Recorder
}

func New(baseURL, apiKey string, timeout time.Duration, rec metrics.Recorder) *Client {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		metrics: rec,
	}
}

// Enabled reports whether a functions endpoint is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// AnalyzeImage uploads image as the multipart "image" field.
func (c *Client) AnalyzeImage(ctx context.Context, image io.Reader, filename, contentType string) (*Analysis, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}

	var out struct {
		Ingredients string `json:"ingredients"`
		Error       string `json:"error"`
	}
	if err := c.call(ctx, "analyze-ingredients", analyzePath, mw.FormDataContentType(), &body, "analyze image", &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, apperror.Upstream(out.Error)
	}

	return &Analysis{Raw: out.Ingredients, Items: ParseIngredients(out.Ingredients)}, nil
}

// GenerateRecipe asks the generate function for a recipe using ingredients.
func (c *Client) GenerateRecipe(ctx context.Context, ingredients string) (string, error) {
	payload, err := json.Marshal(map[string]string{"ingredients": ingredients})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	var out struct {
		Recipe string `json:"recipe"`
		Error  string `json:"error"`
	}
	if err := c.call(ctx, "generate-recipe", generatePath, "application/json", bytes.NewReader(payload), "generate recipe", &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", apperror.Upstream(out.Error)
	}
	return out.Recipe, nil
}

// call POSTs body to path and decodes the JSON response into out. A non-2xx
// status becomes "Failed to <action>: <code> <status text>".
func (c *Client) call(ctx context.Context, name, path, contentType string, body io.Reader, action string, out any) error {
	if !c.Enabled() {
		return apperror.Upstream("Image analysis is not available.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", name, err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordFunctionCall(name, false, time.Since(start))
		return fmt.Errorf("%s: %w: %w", name, apperror.Upstream(fmt.Sprintf("Failed to %s", action)), err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	c.metrics.RecordFunctionCall(name, ok, time.Since(start))
	if !ok {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: %w", name, apperror.Upstream(fmt.Sprintf("Failed to %s: %s", action, resp.Status)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: decoding response: %w", name, apperror.Upstream(fmt.Sprintf("Failed to %s", action)), err)
	}
	return nil
}

// ParseIngredients splits the model's free text into ingredient names.
// Items are separated by commas or newlines; list bullets and numbering are
// dropped and duplicates removed ignoring case, keeping the first spelling.
func ParseIngredients(raw string) []string {
	items := []string{}
	seen := make(map[string]bool)

	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	for _, f := range fields {
		name := strings.TrimSpace(stripBullet(strings.TrimSpace(f)))
		if name == "" {
			continue
		}
		k := strings.ToLower(name)
		if seen[k] {
			continue
		}
		seen[k] = true
		items = append(items, name)
	}
	return items
}

// stripBullet removes a leading "-", "*", "•" or "1." / "1)" marker.
func stripBullet(s string) string {
	s = strings.TrimLeft(s, "-*• \t")
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(s) && (s[i] == '.' || s[i] == ')') && s[i+1] == ' ' {
		return s[i+1:]
	}
	return s
}
