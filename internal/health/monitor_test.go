package health

import (
	"context"
	"errors"
	"testing"

	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/models"
	"github.com/ncecere/holy_coop/backend/internal/providers"
)

func TestCheckNowRecordsStatus(t *testing.T) {
	lineup := []providers.Provider{
		providers.Route{Settings: models.ProviderConfig{ID: "up"}, Health: func(ctx context.Context) error { return nil }},
		providers.Route{Settings: models.ProviderConfig{ID: "down"}, Health: func(ctx context.Context) error { return errors.New("HTTP Error 503") }},
	}
	m := NewMonitor(config.HealthConfig{}, nil)
	m.getLineup = func() []providers.Provider { return lineup }
	m.CheckNow(context.Background())

	snap := m.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(snap))
	}
	if snap[0].Provider != "down" || snap[0].Healthy || snap[0].Error != "HTTP Error 503" {
		t.Fatalf("unexpected down status %+v", snap[0])
	}
	if snap[1].Provider != "up" || !snap[1].Healthy {
		t.Fatalf("unexpected up status %+v", snap[1])
	}
}
