package middlewares

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

var (
	excludedPaths = []string{
		"/healthz",
	}
	// chunk bodies are raw audio, compressing them is wasted work
	excludedPathsRegex = []string{
		`/sessions/[^/]+/chunk$`,
	}
)

func GZIP() gin.HandlerFunc {
	return gzip.Gzip(
		gzip.BestSpeed,
		gzip.WithExcludedPaths(excludedPaths),
		gzip.WithExcludedPathsRegexs(excludedPathsRegex),
	)
}
