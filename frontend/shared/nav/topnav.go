package nav

import (
	"html"
	"strings"

	"fridge/models"
)

// TopNavData is shared with page renderers.
type TopNavData struct {
	Household string
	Active    string
}

func BuildTopNavData(household models.Household, active string) TopNavData {
	short := household.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return TopNavData{Household: short, Active: active}
}

var links = []struct{ path, label string }{
	{"/add", "Add Items"},
	{"/fridge", "My Fridge"},
}

// RenderTopNav renders the page header navigation.
func RenderTopNav(data TopNavData) string {
	var b strings.Builder
	b.WriteString(`<nav class="topnav">`)
	for _, l := range links {
		class := ""
		if l.path == data.Active {
			class = ` class="active"`
		}
		b.WriteString(`<a href="` + l.path + `"` + class + `>` + l.label + `</a>`)
	}
	if data.Household != "" {
		b.WriteString(`<span class="household">Household ` + html.EscapeString(data.Household) + `</span>`)
	}
	b.WriteString(`</nav>`)
	return b.String()
}
