/*
Copyright 2024 CLMTE Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"net/http"

	"github.com/clmte/clmte"
	"github.com/clmte/clmte/api/middleware"
	"github.com/clmte/clmte/config"
	"github.com/clmte/clmte/internal/apierror"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	clmte  *clmte.Clmte
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/orders", a.RecordOrder)
	router.GET("/orders/:id", a.GetOrder)
	router.POST("/orders/:id/payment-complete", a.PaymentComplete)

	router.GET("/purchases", a.ListPurchases)
	router.GET("/purchases/pending", a.ListPendingPurchases)
	router.POST("/purchases/sync", a.SyncPurchases)

	router.GET("/price", a.GetPrice)
	router.POST("/price/refresh", a.RefreshPrice)

	router.GET("/receipt", a.GetReceipt)
	router.GET("/logs", a.GetLogs)

	router.PUT("/settings", a.UpdateSettings)
	router.POST("/settings/check-credentials", a.CheckCredentials)
	return a.router
}

func NewAPI(c *clmte.Clmte) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{clmte: c, router: r}
}

// respondError writes err with the status its code maps to.
func respondError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
}
