// Package web holds the HTML views: the catalog page and the guide page.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"math"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	CatalogTemplate = "catalog.html"
	GuideTemplate   = "guide.html"
)

var funcs = template.FuncMap{
	"clock": clock,
}

// Templates parses the embedded views, named after their file names.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

// clock formats seconds as m:ss.
func clock(seconds float64) string {
	s := int(math.Round(seconds))
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
