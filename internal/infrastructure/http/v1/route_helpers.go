// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar is implemented by every report handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// registerGroups mounts each registrar under its path prefix.
func registerGroups(rg *gin.RouterGroup, groups map[string]RouteRegistrar) {
	for prefix, registrar := range groups {
		registrar.RegisterRoutes(rg.Group(prefix))
	}
}
