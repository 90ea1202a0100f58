package inventory

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	sharedhtml "fridge/frontend/shared/html"
	"fridge/frontend/shared/nav"
)

func FridgePage(navData nav.TopNavData, data FridgePageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, sharedhtml.RenderPage("My Fridge", navData, renderFridgeBody(data)))
		return err
	})
}

func renderFridgeBody(data FridgePageData) string {
	var b strings.Builder
	b.WriteString(`<section class="card"><h2>My Fridge</h2>`)
	if data.Message != "" {
		b.WriteString(`<div class="alert alert-error">` + html.EscapeString(data.Message) + `</div>`)
	}
	if data.Status != "" {
		b.WriteString(`<div class="alert alert-success">` + html.EscapeString(data.Status) + `</div>`)
	}
	if len(data.Items) == 0 {
		b.WriteString(`<p class="muted">Your fridge is empty. <a href="/add">Add items</a>.</p></section>`)
		return b.String()
	}
	b.WriteString(`<div class="actions"><a class="btn" href="/fridge/export.csv">Export CSV</a><a class="btn" href="/fridge/labels.pdf" target="_blank">Print all labels</a></div>`)
	b.WriteString(`<table class="table"><thead><tr><th>Name</th><th>Type</th><th>Expires</th><th>Servings</th><th>Barcode</th><th></th></tr></thead><tbody>`)
	for _, item := range data.Items {
		rowClass := ""
		switch {
		case item.Expired:
			rowClass = ` class="expired"`
		case item.DaysLeft <= 2:
			rowClass = ` class="expiring"`
		}
		b.WriteString(`<tr` + rowClass + `>`)
		b.WriteString(`<td>` + html.EscapeString(item.Name) + `</td>`)
		b.WriteString(`<td>` + html.EscapeString(item.Category) + `</td>`)
		b.WriteString(`<td>` + html.EscapeString(item.ExpirationDate) + ` <span class="muted">(` + html.EscapeString(daysLabel(item)) + `)</span></td>`)
		b.WriteString(fmt.Sprintf(`<td>%d</td>`, item.Quantity))
		b.WriteString(`<td>` + html.EscapeString(item.Barcode) + `</td>`)
		b.WriteString(fmt.Sprintf(`<td><a href="/fridge/%d/label.pdf" target="_blank">Label</a></td>`, item.ID))
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table></section>`)
	return b.String()
}

func daysLabel(item ItemView) string {
	switch {
	case item.Expired:
		return "expired"
	case item.DaysLeft == 0:
		return "today"
	case item.DaysLeft == 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", item.DaysLeft)
	}
}
