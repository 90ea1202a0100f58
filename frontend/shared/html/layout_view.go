package html

import (
	"fmt"
	"html"

	"fridge/frontend/shared/nav"
)

func RenderLayout(title, body string) string {
	return fmt.Sprintf("<!doctype html><html><head><meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"><title>%s</title><link rel=\"stylesheet\" href=\"/assets/app.css\"></head><body>%s%s</body></html>", html.EscapeString(title), body, CSRFFormScript())
}

// RenderPage wraps body with the top navigation and layout.
func RenderPage(title string, navData nav.TopNavData, body string) string {
	return RenderLayout(title, nav.RenderTopNav(navData)+`<main class="container">`+body+`</main>`)
}
