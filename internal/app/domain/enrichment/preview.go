package enrichment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PreviewImage returns the og:image (or twitter:image) a website advertises,
// resolved against the page URL. An empty string means the page has none.
func (c *Client) PreviewImage(ctx context.Context, website string) (string, error) {
	ctx, span := otel.Tracer("EuropeanaClient").Start(ctx, "PreviewImage", trace.WithAttributes(
		attribute.String("website", website),
	))
	defer span.End()

	base, err := url.Parse(website)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return "", fmt.Errorf("not an http url: %q", website)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, website, nil)
	if err != nil {
		return "", fmt.Errorf("build preview request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "MuseumRadar/1.0 (+preview)")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Website unreachable")
		return "", fmt.Errorf("fetch %s: %w", website, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, "Website returned an error")
		return "", fmt.Errorf("fetch %s: status %d", website, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unparsable page")
		return "", fmt.Errorf("parse %s: %w", website, err)
	}

	var image string
	for _, sel := range []string{`meta[property="og:image"]`, `meta[property="og:image:url"]`, `meta[name="twitter:image"]`} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
			image = strings.TrimSpace(content)
			break
		}
	}
	if image == "" {
		span.SetStatus(codes.Ok, "No preview image")
		return "", nil
	}

	ref, err := url.Parse(image)
	if err != nil {
		return "", fmt.Errorf("preview image url %q: %w", image, err)
	}
	span.SetStatus(codes.Ok, "Preview image found")
	return base.ResolveReference(ref).String(), nil
}
