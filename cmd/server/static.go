package main

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// setupStaticFiles serves the marketplace front-end build from dir.
// Unknown paths get index.html for client-side routing; /api misses stay JSON.
func setupStaticFiles(router *gin.Engine, dir string, l *zap.Logger) {
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		l.Warn("front-end build not found, serving API only", zap.String("dir", dir))
		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		})
		return
	}

	l.Info("serving front-end", zap.String("dir", dir))
	router.NoRoute(func(c *gin.Context) {
		urlPath := c.Request.URL.Path

		if strings.HasPrefix(urlPath, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}

		cleanPath := path.Clean("/" + urlPath)
		if cleanPath != "/" {
			file := filepath.Join(dir, filepath.FromSlash(cleanPath[1:]))
			if stat, err := os.Stat(file); err == nil && !stat.IsDir() {
				c.File(file)
				return
			}
		}

		c.File(index)
	})
}
