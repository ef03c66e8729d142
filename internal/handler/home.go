package handler

import (
	"net/http"

	"github.com/a-h/templ"

	"github.com/msomdec/stylist-users/internal/view"
)

// NewHomeHandler serves the landing page.
// GET /
func NewHomeHandler(data view.HomeData) http.Handler {
	if data.Routes == nil {
		for _, rt := range apiRoutes {
			data.Routes = append(data.Routes, view.Route{
				Method:      rt.Method,
				Path:        rt.Path,
				Auth:        rt.Auth,
				Description: rt.Description,
			})
		}
	}
	return templ.Handler(view.HomePage(data))
}
