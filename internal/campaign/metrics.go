package campaign

import (
	"context"
	"math"
	"time"

	"github.com/leadpilot/leadpilot/internal/store"
)

// Compute derives rate metrics from a campaign's raw execution counts.
// Division is guarded throughout: a zero denominator yields a zero
// rate, never NaN. Rates are percentages rounded to two decimals;
// AvgRevenuePerConversion is a currency amount, also rounded.
func Compute(c *store.Campaign) store.CampaignMetrics {
	return store.CampaignMetrics{
		CampaignID:              c.ID,
		DeliveryRate:            rate(c.Delivered, c.Sent),
		OpenRate:                rate(c.Opened, c.Delivered),
		ClickRate:               rate(c.Clicked, c.Opened),
		ReplyRate:               rate(c.Replied, c.Delivered),
		BounceRate:              rate(c.Bounced, c.Sent),
		UnsubscribeRate:         rate(c.Unsubscribed, c.Delivered),
		ConversionRate:          rate(c.Converted, c.Delivered),
		AvgRevenuePerConversion: round2(safeDiv(c.Revenue, float64(c.Converted))),
		CalculatedAt:            time.Now(),
	}
}

// Aggregator recomputes campaign metric snapshots on demand.
type Aggregator struct {
	store store.Store
}

func NewAggregator(s store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// Refresh recomputes a campaign's metrics and overwrites the cached
// snapshot.
func (a *Aggregator) Refresh(ctx context.Context, campaignName string) (*store.CampaignMetrics, error) {
	c, err := a.store.GetCampaign(ctx, campaignName)
	if err != nil {
		return nil, err
	}

	metrics := Compute(c)
	if err := a.store.UpsertCampaignMetrics(ctx, &metrics); err != nil {
		return nil, err
	}

	return &metrics, nil
}

func rate(numerator, denominator int64) float64 {
	return round2(safeDiv(float64(numerator), float64(denominator)) * 100)
}

func safeDiv(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
