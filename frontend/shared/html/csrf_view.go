package html

// CSRFCookieName is the double-submit cookie read by forms and scripted requests.
const CSRFCookieName = "X-CSRF-Token"

// CSRFFormScript adds a hidden _csrf field to every POST form and exposes
// window.fridgeCSRFToken for fetch calls that send the header instead.
func CSRFFormScript() string {
	return `<script>
(function () {
  function readToken() {
    var prefix = "` + CSRFCookieName + `=";
    var parts = document.cookie ? document.cookie.split(";") : [];
    for (var i = 0; i < parts.length; i++) {
      var c = parts[i].trim();
      if (c.indexOf(prefix) === 0) return decodeURIComponent(c.substring(prefix.length));
    }
    return "";
  }
  window.fridgeCSRFToken = readToken;

  function inject(root) {
    var token = readToken();
    if (!token) return;
    var forms = root.querySelectorAll("form[method='POST'], form[method='post']");
    for (var i = 0; i < forms.length; i++) {
      if (forms[i].querySelector("input[name='_csrf']")) continue;
      var input = document.createElement("input");
      input.type = "hidden";
      input.name = "_csrf";
      input.value = token;
      forms[i].appendChild(input);
    }
  }

  if (document.readyState === "loading") {
    document.addEventListener("DOMContentLoaded", function () { inject(document); });
  } else {
    inject(document);
  }
})();
</script>`
}
