package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/songbox/internal/server/handlers/api"
	"github.com/openmined/songbox/internal/server/handlers/upload"
	"github.com/openmined/songbox/internal/server/middlewares"
	"github.com/openmined/songbox/internal/version"
)

func SetupRoutes(cfg *Config, svc *Services) http.Handler {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	uploadH := upload.New(svc.Upload)

	r.Use(middlewares.Logger())
	r.Use(gin.Recovery())
	r.Use(middlewares.CORS())
	r.Use(middlewares.GZIP())
	r.Use(middlewares.Secure(cfg.HTTP.TLSEnabled()))

	r.GET("/", IndexHandler)
	r.GET("/healthz", HealthHandler)

	createLimit := middlewares.RateLimiter(cfg.HTTP.RateLimit)
	mount := func(g *gin.RouterGroup) {
		g.POST("/sessions", createLimit, uploadH.CreateSession)
		g.GET("/sessions/:id", uploadH.GetSession)
		g.PUT("/sessions/:id/chunk", uploadH.PutChunk)
		g.POST("/sessions/:id/complete", uploadH.Complete)
	}
	mount(&r.RouterGroup)
	mount(r.Group("/api/v1"))

	r.NoRoute(func(c *gin.Context) {
		api.AbortWithError(c, http.StatusNotFound, api.CodeNotFound, errors.New("not found"))
	})

	r.NoMethod(func(c *gin.Context) {
		api.AbortWithError(c, http.StatusMethodNotAllowed, api.CodeNotAllowed, errors.New("method not allowed"))
	})

	return r.Handler()
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
