package ginserver

import (
	_ "embed"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const swaggerDocPath = "/swagger/doc.json"

//go:embed swagger/openapi.json
var openAPIDocument []byte

//go:embed swagger/index.html
var swaggerPage string

// registerSwaggerRoutes serves the OpenAPI document and a swagger-ui page pointing at it.
func registerSwaggerRoutes(router gin.IRoutes) {
	page := []byte(strings.ReplaceAll(swaggerPage, "{{SPEC_URL}}", swaggerDocPath))
	router.GET(swaggerDocPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPIDocument)
	})
	router.GET("/swagger", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	})
	router.GET("/swagger/index.html", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger")
	})
}
