package functions

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"

	"github.com/sakif/kitchi/internal/apperror"
)

// Image is a downloaded image ready to be forwarded to AnalyzeImage.
type Image struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ImageFetcher downloads user-supplied image URLs.
//
// The default client comes from safeurl, which resolves the host and refuses
// private, loopback, link-local and metadata addresses at dial time, so a URL
// can't be used to reach anything inside our network.
type ImageFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewImageFetcher returns a fetcher restricted to public http(s) hosts on
// ports 80 and 443.
func NewImageFetcher(timeout time.Duration, maxBytes int64) *ImageFetcher {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return NewImageFetcherWithClient(safeurl.Client(cfg).Client, maxBytes)
}

// NewImageFetcherWithClient uses client as-is. Tests pass an httptest client.
func NewImageFetcherWithClient(client *http.Client, maxBytes int64) *ImageFetcher {
	return &ImageFetcher{client: client, maxBytes: maxBytes}
}

// Fetch downloads rawURL. The response must be an image no larger than the
// configured limit.
func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperror.ValidationFailed("url", "Please enter a valid image link.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperror.ValidationFailed("url", "Please enter a valid image link.")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w: %w",
			apperror.ValidationFailed("url", "Could not download the image from that link."), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.ValidationFailed("url", fmt.Sprintf("Could not download the image: %s", resp.Status))
	}

	contentType := resp.Header.Get("Content-Type")
	if !IsImageType(contentType) {
		return nil, apperror.ValidationFailed("url", "That link does not point to an image.")
	}
	if resp.ContentLength > f.maxBytes {
		return nil, apperror.ValidationFailed("url", "The image is too large.")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, apperror.ValidationFailed("url", "The image is too large.")
	}

	name := "image"
	if i := strings.LastIndex(u.Path, "/"); i >= 0 && i < len(u.Path)-1 {
		name = u.Path[i+1:]
	}
	return &Image{Data: data, Filename: name, ContentType: contentType}, nil
}

// Reader returns the image bytes as a reader.
func (img *Image) Reader() io.Reader {
	return bytes.NewReader(img.Data)
}

// IsImageType reports whether a Content-Type header names an image.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
