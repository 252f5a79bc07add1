package b2bsync

import "strings"

// LoginPageMarker appears in the URL or source of the portal's login page.
const LoginPageMarker = "GirisYap"

// loginSuccessMarkers are page fragments only shown to signed-in users.
var loginSuccessMarkers = []string{"Çıkış", "Home", "stok-listesi", "logout"}

// loginSuccessPath is the only success signal read from the URL.
const loginSuccessPath = "stok-listesi"

// ClassifyLogin reports whether the page reached after submitting the login
// form belongs to a signed-in session. The portal has no structured login
// response, so this inspects page markers.
func ClassifyLogin(url, html string) bool {
	if strings.Contains(url, LoginPageMarker) || strings.Contains(html, LoginPageMarker) {
		return false
	}
	if strings.Contains(url, loginSuccessPath) {
		return true
	}
	for _, m := range loginSuccessMarkers {
		if strings.Contains(html, m) {
			return true
		}
	}
	return false
}
