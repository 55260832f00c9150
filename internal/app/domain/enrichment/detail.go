package enrichment

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

// Detail assembles the detail view of museum. Catalog lookup and preview
// image run concurrently; either failing leaves its part at the placeholder.
// The preview is only fetched when websiteLive.
func (c *Client) Detail(ctx context.Context, museum models.Museum, origin *models.Coordinates, websiteLive bool) models.MuseumDetail {
	l := c.logger.With(zap.String("method", "Detail"), zap.String("museum", museum.Name))
	detail := models.MuseumDetail{
		Museum:       museum,
		Origin:       origin,
		WebsiteLive:  websiteLive,
		PreviewImage: museum.ImageURL,
	}

	var (
		catalog *models.Museum
		preview string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := c.LookupMuseum(gctx, museum.Name, museum.City)
		if err != nil {
			l.Debug("Catalog lookup failed", zap.Error(err))
			return nil
		}
		catalog = m
		return nil
	})
	if websiteLive {
		g.Go(func() error {
			img, err := c.PreviewImage(gctx, museum.Website)
			if err != nil {
				l.Debug("Preview image unavailable", zap.Error(err))
				return nil
			}
			preview = img
			return nil
		})
	}
	_ = g.Wait()

	detail.Catalog = catalog
	switch {
	case preview != "":
		detail.PreviewImage = preview
	case catalog != nil && catalog.ImageURL != "":
		detail.PreviewImage = catalog.ImageURL
	}
	return detail
}
