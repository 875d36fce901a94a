package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/karigai-ops/backend/internal/callcenter"
	"github.com/karigai-ops/backend/internal/config"
	"github.com/karigai-ops/backend/internal/db"
	"github.com/karigai-ops/backend/internal/http/handlers"
	"github.com/karigai-ops/backend/internal/http/middleware"
	"github.com/karigai-ops/backend/internal/nocodb"
	"github.com/karigai-ops/backend/internal/supabase"
	"github.com/karigai-ops/backend/internal/webhook"
	"github.com/karigai-ops/backend/internal/worker"

	_ "github.com/karigai-ops/backend/docs"
)

func Router(cfg config.Config, store *db.Store, webhooks webhook.Dispatcher, noco *nocodb.Client, supa *supabase.Client, refresher *worker.NDRRefresher, dialer callcenter.Dialer, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Operator-Key", "X-Operator", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:           store,
		Webhooks:        webhooks,
		Noco:            noco,
		Supa:            supa,
		NDR:             refresher,
		Dialer:          dialer,
		Validator:       validator.New(),
		Logger:          logger,
		NDRTable:        cfg.SupabaseNDRTable,
		SlipsTable:      cfg.NocoDBSlipsTable,
		FeedbackTable:   cfg.NocoDBFeedbackTable,
		SellerStateCode: cfg.SellerStateCode,
		SellerGSTIN:     cfg.SellerGSTIN,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.Use(middleware.OperatorKey(cfg.OperatorKey))
	{
		api.POST("/orders", h.CreateOrder)
		api.GET("/orders", h.ListOrders)
		api.POST("/orders/:number/tracking", h.UpdateTracking)
		api.POST("/tracking/bulk", h.BulkTracking)
		api.GET("/slips", h.Slips)
		api.POST("/manifests", h.CreateManifest)
		api.GET("/manifests/latest", h.LatestManifest)

		api.GET("/ndr", h.ListNDR)
		api.PATCH("/ndr/:awb", h.PatchNDR)
		api.POST("/ndr/:awb/mail", h.SendNDRMail)

		api.GET("/repeat/leads", h.ListLeads)
		api.POST("/repeat/assign", h.AssignLeads)
		api.POST("/repeat/call-status", h.UpdateCallStatus)
		api.POST("/repeat/allocate", h.AllocateLeads)
		api.POST("/repeat/call", h.Call)

		api.POST("/analytics/aggregate", h.Aggregate)
		api.POST("/analytics/drilldown", h.Drilldown)
		api.GET("/analytics/groupings/:field", h.GetGrouping)
		api.PUT("/analytics/groupings/:field", h.PutGrouping)
		api.DELETE("/analytics/groupings/:field", h.DeleteGrouping)
		api.PUT("/analytics/overrides/:field", h.PutLabelOverrides)

		api.POST("/batch/update", h.BatchUpdate)
		api.GET("/batch/runs/latest", h.LatestBatchRun)

		api.POST("/invoices/preview", h.InvoicePreview)

		api.GET("/session", h.GetSession)
		api.PUT("/session", h.PutSession)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
