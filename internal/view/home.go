// Package view renders the service's HTML pages.
package view

import "strings"

// Route describes one API endpoint on the landing page.
type Route struct {
	Method      string
	Path        string
	Description string
	Auth        string
}

// HomeData is the landing page model.
type HomeData struct {
	Service   string
	Driver    string
	Offline   bool
	Providers []string
	Routes    []Route
}

func (d HomeData) status() string {
	if d.Offline {
		return "offline (in-memory store, data is not persisted)"
	}
	return "online"
}

func (d HomeData) providerList() string {
	if len(d.Providers) == 0 {
		return "none"
	}
	return strings.Join(d.Providers, ", ")
}
