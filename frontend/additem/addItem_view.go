package additem

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	sharedhtml "fridge/frontend/shared/html"
	"fridge/frontend/shared/nav"
)

// AddItemPage renders the add-item screen with the currently visible surface.
func AddItemPage(navData nav.TopNavData, data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, sharedhtml.RenderPage("Add Items", navData, renderAddItemBody(data)))
		return err
	})
}

func renderAddItemBody(data PageData) string {
	var b strings.Builder
	b.WriteString(`<section class="card"><h2>Add Items to Your Fridge</h2>`)
	if data.Message != "" {
		b.WriteString(`<div class="alert alert-error">` + html.EscapeString(data.Message) + `</div>`)
	}
	for _, n := range data.Notices {
		b.WriteString(`<div class="alert alert-` + string(n.Level) + `">` + html.EscapeString(n.Text) + `</div>`)
	}

	b.WriteString(`<div class="actions">`)
	b.WriteString(`<form id="scan-open-form" method="POST" action="/add/scan/open">` +
		`<input type="hidden" name="devices" value=""><input type="hidden" name="device_error" value="">` +
		`<button class="btn btn-primary" type="submit">Scan Barcode</button></form>`)
	b.WriteString(postButton("/add/manual/open", "Manual Entry", "btn"))
	b.WriteString(postButton("/add/upload/open", "Upload Photo/Video", "btn"))
	b.WriteString(`</div></section>`)

	switch data.Visibility {
	case VisibilityScanning:
		b.WriteString(renderScanPanel(data.Snapshot))
	case VisibilityManualEntry:
		b.WriteString(renderManualPanel(data))
	case VisibilityBulkUpload:
		b.WriteString(renderUploadPanel(data))
	}
	b.WriteString(renderScanAssets())
	return b.String()
}

func postButton(action, label, class string) string {
	return `<form method="POST" action="` + action + `"><button class="` + class + `" type="submit">` + html.EscapeString(label) + `</button></form>`
}

func renderScanPanel(snap Snapshot) string {
	var b strings.Builder
	b.WriteString(`<section id="scan-panel" class="card" data-scanning="` + strconv.FormatBool(snap.Scanning) + `" data-device-id="` + html.EscapeString(snap.DeviceID) + `">`)
	b.WriteString(`<h3>Scan Barcode</h3>`)
	b.WriteString(`<video id="scan-video" autoplay playsinline muted></video><canvas id="scan-canvas" hidden></canvas>`)
	status := "Scanner stopped"
	switch {
	case snap.LookupPending:
		status = "Looking up product..."
	case snap.Scanning:
		status = "Point the camera at a barcode"
	}
	b.WriteString(`<p id="scan-status">` + status + `</p>`)
	if snap.ScannedCode != "" {
		code := html.EscapeString(snap.ScannedCode)
		b.WriteString(`<p class="scanned">Scanned: <strong>` + code + `</strong></p>`)
		b.WriteString(`<img class="barcode" alt="` + code + `" src="/add/barcode/` + url.PathEscape(snap.ScannedCode) + `.png">`)
	}
	b.WriteString(`<div class="actions">`)
	if snap.Scanning {
		b.WriteString(postButton("/add/scan/stop", "Stop Scanner", "btn btn-warning"))
	} else if !snap.LookupPending {
		b.WriteString(`<form id="scan-start-form" method="POST" action="/add/scan/open">` +
			`<input type="hidden" name="devices" value=""><input type="hidden" name="device_error" value="">` +
			`<input type="hidden" name="device_id" value="` + html.EscapeString(snap.DeviceID) + `">` +
			`<button class="btn btn-primary" type="submit">Start Scanner</button></form>`)
	}
	b.WriteString(postButton("/add/scan/manual", "Enter manually instead", "btn"))
	b.WriteString(postButton("/add/scan/close", "Close", "btn btn-ghost"))
	b.WriteString(`</div></section>`)
	return b.String()
}

func renderManualPanel(data PageData) string {
	d := data.Draft
	errs := data.FieldErrors
	var b strings.Builder
	b.WriteString(`<section id="manual-panel" class="card"><h3>Add Item</h3>`)
	b.WriteString(`<form method="POST" action="/add/manual">`)
	b.WriteString(textField("name", "Item Name", "text", d.Name, errs))

	b.WriteString(`<label>Category<input name="type" list="category-options" required value="` + html.EscapeString(d.Category) + `"></label>`)
	b.WriteString(`<datalist id="category-options">`)
	for _, c := range data.Categories {
		b.WriteString(`<option value="` + html.EscapeString(c) + `">`)
	}
	b.WriteString(`</datalist>`)
	b.WriteString(fieldError("type", errs))

	b.WriteString(textField("expirationDate", "Expiration Date", "date", d.ExpirationDate, errs))
	quantity := ""
	if d.Quantity > 0 {
		quantity = strconv.Itoa(d.Quantity)
	}
	b.WriteString(textField("servingCount", "Quantity", "number", quantity, errs))
	servingSize := ""
	if d.ServingSize > 0 {
		servingSize = strconv.FormatFloat(d.ServingSize, 'f', -1, 64)
	}
	b.WriteString(textField("servingSize", "Serving Size", "number", servingSize, errs))

	if d.Barcode != "" {
		b.WriteString(`<p>Barcode: <strong>` + html.EscapeString(d.Barcode) + `</strong></p>`)
		b.WriteString(`<input type="hidden" name="barcode" value="` + html.EscapeString(d.Barcode) + `">`)
	}
	if len(d.NutritionFacts) > 0 {
		b.WriteString(`<table class="nutrition"><thead><tr><th>Nutrient</th><th>Amount</th></tr></thead><tbody>`)
		for _, n := range d.NutritionFacts {
			b.WriteString(fmt.Sprintf(`<tr><td>%s</td><td>%s %s</td></tr>`,
				html.EscapeString(n.NutrientName),
				strconv.FormatFloat(n.Value, 'f', -1, 64),
				html.EscapeString(n.UnitName)))
		}
		b.WriteString(`</tbody></table>`)
		if raw, err := json.Marshal(d.NutritionFacts); err == nil {
			b.WriteString(`<input type="hidden" name="nutritionFacts" value="` + html.EscapeString(string(raw)) + `">`)
		}
	}

	disabled := ""
	label := "Add to Fridge"
	if data.Busy {
		disabled = " disabled"
		label = "Adding..."
	}
	b.WriteString(`<button class="btn btn-primary" type="submit"` + disabled + `>` + label + `</button></form>`)
	b.WriteString(postButton("/add/manual/close", "Cancel", "btn btn-ghost"))
	b.WriteString(`</section>`)
	return b.String()
}

func textField(name, label, typ, value string, errs map[string]string) string {
	extra := ""
	switch typ {
	case "number":
		extra = ` min="0" step="any"`
	}
	return `<label>` + label + `<input name="` + name + `" type="` + typ + `" value="` + html.EscapeString(value) + `"` + extra + `></label>` + fieldError(name, errs)
}

func fieldError(name string, errs map[string]string) string {
	msg, ok := errs[name]
	if !ok {
		return ""
	}
	return `<p class="field-error">` + html.EscapeString(msg) + `</p>`
}

func renderUploadPanel(data PageData) string {
	var b strings.Builder
	b.WriteString(`<section id="upload-panel" class="card"><h3>Upload Photo or Video</h3>`)
	b.WriteString(`<form id="upload-form" method="POST" action="/add/upload" enctype="multipart/form-data">`)
	b.WriteString(`<div id="drop-zone" class="drop-zone">Drop a photo or video here, or <label class="link">browse<input id="upload-input" type="file" name="file" accept="` + html.EscapeString(data.Accept) + `" hidden></label></div>`)
	if data.Busy {
		b.WriteString(`<p>Processing upload...</p>`)
	}
	b.WriteString(`</form>`)
	if res := data.LastUpload; res != nil && res.Total > 0 {
		b.WriteString(fmt.Sprintf(`<p class="upload-result">Last upload: %d of %d items added.</p>`, res.Succeeded, res.Total))
	}
	b.WriteString(postButton("/add/upload/close", "Cancel", "btn btn-ghost"))
	b.WriteString(`</section>`)
	return b.String()
}

func renderScanAssets() string {
	return `<script>
(function () {
  function csrfToken() {
    var m = document.cookie.match(/(?:^|;\s*)X-CSRF-Token=([^;]+)/);
    return m ? decodeURIComponent(m[1]) : "";
  }

  async function reportDevices(form) {
    var devicesInput = form.querySelector("input[name='devices']");
    var errorInput = form.querySelector("input[name='device_error']");
    try {
      if (!navigator.mediaDevices || !navigator.mediaDevices.getUserMedia) {
        throw new Error("camera API unavailable");
      }
      var probe = await navigator.mediaDevices.getUserMedia({ video: true });
      probe.getTracks().forEach(function (t) { t.stop(); });
      var all = await navigator.mediaDevices.enumerateDevices();
      var cams = all.filter(function (d) { return d.kind === "videoinput"; })
        .map(function (d) { return { deviceId: d.deviceId, label: d.label }; });
      devicesInput.value = JSON.stringify(cams);
    } catch (err) {
      if (err && err.name === "NotFoundError") {
        devicesInput.value = "[]";
      } else {
        errorInput.value = (err && err.message) ? err.message : "camera access failed";
      }
    }
  }

  ["scan-open-form", "scan-start-form"].forEach(function (id) {
    var form = document.getElementById(id);
    if (!form) return;
    form.addEventListener("submit", async function (e) {
      if (form.dataset.ready === "1") return;
      e.preventDefault();
      await reportDevices(form);
      form.dataset.ready = "1";
      form.submit();
    });
  });

  var stream = null;
  var timer = null;

  function stopCamera() {
    if (timer) { clearInterval(timer); timer = null; }
    if (stream) { stream.getTracks().forEach(function (t) { t.stop(); }); stream = null; }
  }

  function post(url, body, contentType) {
    var headers = { "X-CSRF-Token": csrfToken(), "Accept": "application/json" };
    if (contentType) headers["Content-Type"] = contentType;
    return fetch(url, { method: "POST", headers: headers, body: body, credentials: "same-origin" });
  }

  async function startCamera(deviceId) {
    var video = document.getElementById("scan-video");
    var canvas = document.getElementById("scan-canvas");
    try {
      stream = await navigator.mediaDevices.getUserMedia({ video: { deviceId: { exact: deviceId } } });
    } catch (err) {
      await post("/add/scan/frame?ended=1&device_id=" + encodeURIComponent(deviceId));
      window.location.assign("/add");
      return;
    }
    video.srcObject = stream;
    stream.getVideoTracks().forEach(function (track) {
      track.addEventListener("ended", function () {
        post("/add/scan/frame?ended=1&device_id=" + encodeURIComponent(deviceId)).then(function () {
          window.location.assign("/add");
        });
      });
    });
    var inflight = false;
    timer = setInterval(function () {
      if (inflight || !video.videoWidth) return;
      inflight = true;
      canvas.width = video.videoWidth;
      canvas.height = video.videoHeight;
      canvas.getContext("2d").drawImage(video, 0, 0);
      canvas.toBlob(async function (blob) {
        try {
          var resp = await post("/add/scan/frame?device_id=" + encodeURIComponent(deviceId), blob, "image/jpeg");
          var snap = await resp.json();
          if (!snap.scanning) {
            stopCamera();
            if (snap.lookupPending) {
              document.getElementById("scan-status").textContent = "Looking up product...";
              pollUntilSettled();
            } else {
              window.location.assign("/add");
            }
          }
        } finally {
          inflight = false;
        }
      }, "image/jpeg", 0.8);
    }, 400);
    window.addEventListener("pagehide", stopCamera);
  }

  function pollUntilSettled() {
    var poll = setInterval(async function () {
      var resp = await fetch("/add/scan/status", { headers: { "Accept": "application/json" } });
      var snap = await resp.json();
      if (snap.visibility !== "scanning" || (!snap.lookupPending && !snap.scanning)) {
        clearInterval(poll);
        if (snap.visibility !== "scanning") window.location.assign("/add");
      }
    }, 500);
  }

  var panel = document.getElementById("scan-panel");
  if (panel && panel.dataset.scanning === "true") {
    startCamera(panel.dataset.deviceId);
  } else if (panel) {
    pollUntilSettled();
  }

  var drop = document.getElementById("drop-zone");
  var input = document.getElementById("upload-input");
  if (drop && input) {
    input.addEventListener("change", function () {
      if (input.files.length > 0) document.getElementById("upload-form").submit();
    });
    drop.addEventListener("dragover", function (e) { e.preventDefault(); drop.classList.add("over"); });
    drop.addEventListener("dragleave", function () { drop.classList.remove("over"); });
    drop.addEventListener("drop", function (e) {
      e.preventDefault();
      drop.classList.remove("over");
      if (!e.dataTransfer.files.length) return;
      var dt = new DataTransfer();
      dt.items.add(e.dataTransfer.files[0]);
      input.files = dt.files;
      document.getElementById("upload-form").submit();
    });
  }
})();
</script>`
}
