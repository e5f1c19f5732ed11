package httpapi

import "strings"

// SafeRedirect returns target when it is a same-site relative path and "/"
// otherwise. Protocol-relative ("//host") and backslash ("/\host") forms
// are rejected because browsers treat them as absolute URLs.
func SafeRedirect(target string) string {
	if target == "" || target[0] != '/' {
		return "/"
	}
	if len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return "/"
	}
	if strings.ContainsAny(target, "\r\n\t") || strings.Contains(target, "\\") {
		return "/"
	}
	return target
}
