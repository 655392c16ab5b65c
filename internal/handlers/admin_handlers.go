package handlers

import (
	"net/http"

	"github.com/01moynul/refuel-storefront/internal/apperr"
	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const recentOrdersOnDashboard = 5

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalUsers    int64          `json:"totalUsers"`
	TotalOrders   int64          `json:"totalOrders"`
	TotalProducts int64          `json:"totalProducts"`
	TotalRevenue  float64        `json:"totalRevenue"`
	RecentOrders  []models.Order `json:"recentOrders"`
}

// GetDashboard handles GET /api/admin/dashboard
func (h *Handlers) GetDashboard(c *gin.Context) {
	var stats DashboardStats
	g, ctx := errgroup.WithContext(c.Request.Context())

	g.Go(func() (err error) {
		stats.TotalUsers, err = h.Users.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalOrders, err = h.Orders.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalProducts, err = h.Products.Count(ctx)
		return err
	})
	g.Go(func() error {
		amounts, err := h.Orders.TotalAmounts(ctx)
		if err != nil {
			return err
		}
		sum := decimal.Zero
		for _, a := range amounts {
			sum = sum.Add(decimal.NewFromFloat(a))
		}
		stats.TotalRevenue = sum.Round(2).InexactFloat64()
		return nil
	})
	g.Go(func() (err error) {
		stats.RecentOrders, err = h.Orders.Recent(ctx, recentOrdersOnDashboard)
		return err
	})

	if err := g.Wait(); err != nil {
		h.respondError(c, apperr.Internal("Failed to load dashboard", err))
		return
	}
	if stats.RecentOrders == nil {
		stats.RecentOrders = []models.Order{}
	}

	c.JSON(http.StatusOK, stats)
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
