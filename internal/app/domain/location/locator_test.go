package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

func TestClientLocator(t *testing.T) {
	tests := []struct {
		name    string
		fix     Fix
		wantErr error
	}{
		{name: "position", fix: Fix{Position: &models.Coordinates{Lat: 52.37, Lng: 4.89}}},
		{name: "denied", fix: Fix{Denied: true}, wantErr: models.ErrGeoDenied},
		{name: "unavailable", fix: Fix{Reason: "position unavailable"}, wantErr: models.ErrGeoUnavailable},
		{name: "out of range", fix: Fix{Position: &models.Coordinates{Lat: 91, Lng: 0}}, wantErr: models.ErrGeoUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := ClientLocator{Fix: tt.fix}.CurrentPosition(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, *tt.fix.Position, pos)
		})
	}
}

func TestClientLocatorExpiredContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Static(52.37, 4.89).CurrentPosition(ctx)
	assert.ErrorIs(t, err, models.ErrGeoTimeout)
}
