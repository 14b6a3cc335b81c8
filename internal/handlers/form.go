package handlers

import "net/url"

// parseForm decodes an application/x-www-form-urlencoded body. The raw bytes
// were already consumed for signature verification, so the request's own
// ParseForm cannot be used.
func parseForm(body []byte) (url.Values, error) {
	return url.ParseQuery(string(body))
}
