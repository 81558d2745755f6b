package view

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var files embed.FS

//go:embed static
var static embed.FS

// Layout wraps every page; pages are inserted with {{embed}}.
const Layout = "layout"

// New returns the html engine over the embedded templates. Templates are
// named by file name without extension ("home", "inference", ...).
func New() *html.Engine {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		panic(err)
	}

	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("pct", func(v float64) string {
		return fmt.Sprintf("%.4f", v)
	})
	engine.AddFunc("conf", func(v float64) string {
		if v == 0 {
			return "-"
		}
		return fmt.Sprintf("%.2f", v)
	})
	return engine
}

// Static holds the stylesheet and other non-template assets.
func Static() http.FileSystem {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
