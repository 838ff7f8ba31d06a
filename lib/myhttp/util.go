package myhttp

import (
	"fmt"
	"net/http"
	"os"
)

// HostnameWithScheme returns the externally visible base-url of this service.
// PUBLIC_BASE_URL wins over what can be guessed from the request.
func HostnameWithScheme(r *http.Request) string {
	base := os.Getenv("PUBLIC_BASE_URL")
	if base != "" {
		return base
	}

	scheme := "https"
	if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// GuessHostnameWithScheme is used when there is no request at hand, like when subscribing at startup.
func GuessHostnameWithScheme() string {
	base := os.Getenv("PUBLIC_BASE_URL")
	if base != "" {
		return base
	}

	project := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if project != "" {
		return fmt.Sprintf("https://%s.appspot.com", project)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s", port)
}
