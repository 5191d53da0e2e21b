// Package routes declares HTTP endpoints as data and registers them on a ServeMux.
package routes

import (
	"net/http"

	"github.com/JaimeStill/docket/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler. OpenAPI is optional.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}

// Group nests routes under a shared prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds every route of groups to mux beneath prefix.
func Register(mux *http.ServeMux, prefix string, groups ...Group) {
	for _, g := range groups {
		register(mux, prefix, g)
	}
}

// Patterns lists the method-qualified patterns a set of groups would register.
func Patterns(prefix string, groups ...Group) []string {
	var out []string
	for _, g := range groups {
		out = appendPatterns(out, prefix, g)
	}
	return out
}

// Describe adds the documented routes of groups to spec beneath prefix.
func Describe(spec *openapi.Spec, prefix string, groups ...Group) {
	for _, g := range groups {
		describe(spec, prefix, g)
	}
}

func describe(spec *openapi.Spec, parent string, g Group) {
	base := parent + g.Prefix
	for _, r := range g.Routes {
		spec.AddOperation(r.Method, base+r.Pattern, r.OpenAPI)
	}
	for _, child := range g.Children {
		describe(spec, base, child)
	}
}

func register(mux *http.ServeMux, parent string, g Group) {
	base := parent + g.Prefix
	for _, r := range g.Routes {
		mux.HandleFunc(r.Method+" "+base+r.Pattern, r.Handler)
	}
	for _, child := range g.Children {
		register(mux, base, child)
	}
}

func appendPatterns(out []string, parent string, g Group) []string {
	base := parent + g.Prefix
	for _, r := range g.Routes {
		out = append(out, r.Method+" "+base+r.Pattern)
	}
	for _, child := range g.Children {
		out = appendPatterns(out, base, child)
	}
	return out
}
