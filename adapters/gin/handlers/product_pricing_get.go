package handlers

import (
	"errors"
	"net/http"

	"github.com/PaulFidika/auditstore/adapters/ginutil"
	"github.com/PaulFidika/auditstore/catalog"
	"github.com/PaulFidika/auditstore/entitlements"
	"github.com/gin-gonic/gin"
)

func HandleProductPricingGET(products catalog.Reader, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLPricingGet) {
			ginutil.TooMany(c)
			return
		}
		p, err := products.Product(c.Request.Context(), c.Param("product_id"))
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			ginutil.NotFound(c)
			return
		case err != nil:
			ginutil.Unavailable(c, err)
			return
		}
		// Products still in development are not advertised.
		if p.Status == catalog.StatusDevelopment {
			ginutil.NotFound(c)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"productId":             p.ID,
			"status":                p.Status,
			"purchasable":           p.Status.Purchasable(),
			"priceCents":            p.PriceCents,
			"monthlyPriceCents":     p.MonthlyPriceCents,
			"yearlyPriceCents":      entitlements.YearlyPriceCents(p.MonthlyPriceCents),
			"yearlyDiscountPercent": entitlements.YearlyDiscountPercent,
		})
	}
}
