package jwtmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteTable(t *testing.T) {
	table := NewRouteTable("GET /me", "/admin/")
	table.Protect("GET /orders/{id}")

	assert.True(t, table.RequiresAuth("GET /me"))
	assert.True(t, table.RequiresAuth("GET /orders/{id}"))
	assert.False(t, table.RequiresAuth("GET /public"))
	assert.False(t, table.RequiresAuth(""))
	assert.Equal(t, []string{"/admin/", "GET /me", "GET /orders/{id}"}, table.Patterns())

	var nilTable *RouteTable
	assert.False(t, nilTable.RequiresAuth("GET /me"))
}

func TestServeMuxResolver(t *testing.T) {
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	mux := http.NewServeMux()
	mux.Handle("GET /orders/{id}", noop)
	mux.Handle("/admin/", noop)

	resolve := ServeMuxResolver(mux)

	assert.Equal(t, "GET /orders/{id}", resolve(httptest.NewRequest(http.MethodGet, "/orders/42", nil)))
	assert.Equal(t, "/admin/", resolve(httptest.NewRequest(http.MethodPost, "/admin/users", nil)))
	assert.Equal(t, "", resolve(httptest.NewRequest(http.MethodGet, "/missing", nil)))
	assert.Equal(t, "/missing", PathResolver(httptest.NewRequest(http.MethodGet, "/missing", nil)))
}
