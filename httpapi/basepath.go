package httpapi

import "strings"

func normalizeBasePath(value string) string {
	path := strings.TrimSpace(value)
	if path == "" || path == "/" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")
	if path == "/" {
		return ""
	}
	return path
}

// buildBaseHref returns the <base href> value the page needs when served
// below a prefix, or "" at the root.
func buildBaseHref(basePath string) string {
	path := normalizeBasePath(basePath)
	if path == "" {
		return ""
	}
	return path + "/"
}
