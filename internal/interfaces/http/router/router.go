package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// DefaultAPIVersion is the version segment of the shopper API prefix
const DefaultAPIVersion = "v1"

// Route is one installed endpoint, with its full path
type Route struct {
	Method string
	Path   string
}

// API is the versioned shopper API. Every group added to it is mounted under
// /api/<version> behind the guard middleware; health checks stay outside.
type API struct {
	version string
	guard   []gin.HandlerFunc
	groups  []*DomainGroup
}

// NewAPI creates an API mounted at /api/<version>. An empty version means
// DefaultAPIVersion.
func NewAPI(version string, guard ...gin.HandlerFunc) *API {
	if version == "" {
		version = DefaultAPIVersion
	}
	return &API{version: version, guard: guard}
}

// Prefix returns the mount point of the API
func (a *API) Prefix() string {
	return "/api/" + a.version
}

// Add queues groups for Install
func (a *API) Add(groups ...*DomainGroup) *API {
	a.groups = append(a.groups, groups...)
	return a
}

// Install registers every queued group on engine and returns the routes it
// created, in registration order.
func (a *API) Install(engine *gin.Engine) []Route {
	root := engine.Group(a.Prefix(), a.guard...)
	var installed []Route
	for _, g := range a.groups {
		installed = g.install(root, a.Prefix(), installed)
	}
	return installed
}

// DomainGroup collects the endpoints of one area of the shopper API (cart,
// checkout, session) so each area is declared in one place.
type DomainGroup struct {
	prefix     string
	middleware []gin.HandlerFunc
	endpoints  []endpoint
	children   []*DomainGroup
}

type endpoint struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a group mounted at prefix, relative to its parent
func NewDomainGroup(prefix string) *DomainGroup {
	return &DomainGroup{prefix: prefix}
}

// Use adds middleware that runs for this group and its children
func (g *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// Handle declares an endpoint
func (g *DomainGroup) Handle(method, relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	g.endpoints = append(g.endpoints, endpoint{method: method, path: relativePath, handlers: handlers})
	return g
}

// GET declares a GET endpoint
func (g *DomainGroup) GET(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodGet, relativePath, handlers...)
}

// POST declares a POST endpoint
func (g *DomainGroup) POST(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodPost, relativePath, handlers...)
}

// PUT declares a PUT endpoint
func (g *DomainGroup) PUT(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodPut, relativePath, handlers...)
}

// PATCH declares a PATCH endpoint
func (g *DomainGroup) PATCH(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodPatch, relativePath, handlers...)
}

// DELETE declares a DELETE endpoint
func (g *DomainGroup) DELETE(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodDelete, relativePath, handlers...)
}

// Child creates a nested group mounted under this one
func (g *DomainGroup) Child(prefix string) *DomainGroup {
	child := NewDomainGroup(prefix)
	g.children = append(g.children, child)
	return child
}

func (g *DomainGroup) install(parent *gin.RouterGroup, base string, installed []Route) []Route {
	rg := parent.Group(g.prefix, g.middleware...)
	base = joinPath(base, g.prefix)
	for _, e := range g.endpoints {
		rg.Handle(e.method, e.path, e.handlers...)
		installed = append(installed, Route{Method: e.method, Path: joinPath(base, e.path)})
	}
	for _, child := range g.children {
		installed = child.install(rg, base, installed)
	}
	return installed
}

func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	return path.Join(base, rel)
}
