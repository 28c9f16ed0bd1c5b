package gateway

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedStatus remembers bills the provider has confirmed as paid. A paid bill
// never becomes unpaid, so only that answer is cached.
type CachedStatus struct {
	Gateway
	cache *gocache.Cache
}

func NewCachedStatus(gw Gateway, ttl time.Duration) *CachedStatus {
	return &CachedStatus{
		Gateway: gw,
		cache:   gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedStatus) CheckStatus(ctx context.Context, billID string) (BillStatus, error) {
	if cached, ok := c.cache.Get(billID); ok {
		return cached.(BillStatus), nil
	}

	status, err := c.Gateway.CheckStatus(ctx, billID)
	if err != nil {
		return status, err
	}
	if status.Paid {
		c.cache.SetDefault(billID, status)
	}
	return status, nil
}
