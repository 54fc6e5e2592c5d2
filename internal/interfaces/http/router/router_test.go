package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/checkout/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewAPI(t *testing.T) {
	assert.Equal(t, "/api/v1", NewAPI("").Prefix())
	assert.Equal(t, "/api/v2", NewAPI("v2").Prefix())
}

func TestAPI_Install(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	routes := NewAPI("v1").Add(group).Install(engine)

	assert.Equal(t, []Route{{Method: http.MethodGet, Path: "/api/v1/test/ping"}}, routes)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestAPI_GuardOnlyCoversAPI(t *testing.T) {
	engine := gin.New()
	engine.GET("/open", func(c *gin.Context) { c.String(http.StatusOK, "open") })

	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	group := NewDomainGroup("/test")
	group.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	NewAPI("v1", deny).Add(group).Install(engine)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDomainGroup_Children(t *testing.T) {
	engine := gin.New()
	var order []string
	group := NewDomainGroup("/checkout").Use(func(c *gin.Context) {
		order = append(order, "group")
		c.Next()
	})
	group.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.Child("/dialog").POST("/open", func(c *gin.Context) {
		order = append(order, "handler")
		c.Status(http.StatusNoContent)
	})

	routes := NewAPI("v1").Add(group).Install(engine)
	assert.Equal(t, []Route{
		{Method: http.MethodGet, Path: "/api/v1/checkout"},
		{Method: http.MethodPost, Path: "/api/v1/checkout/dialog/open"},
	}, routes)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/dialog/open", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"group", "handler"}, order)
}

func TestMount(t *testing.T) {
	engine := gin.New()
	h := Handlers{
		Cart:     handler.NewCartHandler(nil, 0),
		Checkout: handler.NewCheckoutHandler(nil, nil, 0, nil),
		Session:  handler.NewSessionHandler(nil),
		Catalog:  handler.NewCatalogHandler(nil),
		Health:   handler.NewHealthHandler("test"),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	}
	routes := Mount(engine, h, func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) })
	assert.Len(t, routes, 23)

	registered := map[string]bool{}
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /metrics",
		"GET /api/v1/minicart",
		"GET /api/v1/cart",
		"PATCH /api/v1/cart/items/:index",
		"DELETE /api/v1/cart/items/:index",
		"GET /api/v1/categories",
		"GET /api/v1/checkout",
		"POST /api/v1/checkout/dialog/open",
		"POST /api/v1/checkout/dialog/select",
		"POST /api/v1/checkout/dialog/confirm",
		"POST /api/v1/checkout/dialog/cancel",
		"POST /api/v1/checkout/dialog/add",
		"POST /api/v1/checkout/dialog/edit/:id",
		"POST /api/v1/checkout/dialog/save",
		"DELETE /api/v1/checkout/addresses/:id",
		"POST /api/v1/checkout/editor/province",
		"POST /api/v1/checkout/editor/district",
		"POST /api/v1/checkout/editor/ward",
		"PUT /api/v1/checkout/editor/fields",
		"POST /api/v1/checkout/coupon",
		"DELETE /api/v1/checkout/coupon",
		"POST /api/v1/checkout/pay",
		"GET /api/v1/checkout/handoff/:token",
		"POST /api/v1/session/end",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "# metrics", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/checkout", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
