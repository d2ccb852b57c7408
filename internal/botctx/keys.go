package botctx

// Well-known context keys. Actions that publish results use these constants so
// downstream actions (and tests) do not depend on ad hoc strings.
const (
	KeyCurrentURL    = "current_url"
	KeyLoggedIn      = "logged_in"
	KeyFormSubmitted = "form_submitted"
	KeyFormData      = "form_data"
	KeyLastDownload  = "last_download"
	KeyDownloads     = "downloads"
	KeyLastAlert     = "last_alert"
)

// DOMKey returns the key under which an action named name stores a captured
// page source.
func DOMKey(name string) string {
	return name + "_dom"
}
