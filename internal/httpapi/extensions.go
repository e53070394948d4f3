package httpapi

import (
	"net/http"
	"strings"
)

// supportedExtensions mirrors helpers.py's check_extensions list.
var supportedExtensions = []string{"octvertexnormals", "watermask", "metadata"}

// parseExtensions reads the Accept header's `extensions=` media-type
// parameter, e.g. "application/vnd.quantized-mesh;extensions=octvertexnormals",
// and returns which of the supported extensions were requested.
func parseExtensions(r *http.Request) map[string]bool {
	found := make(map[string]bool, len(supportedExtensions))
	for _, ext := range supportedExtensions {
		found[ext] = false
	}

	accept := r.Header.Get("Accept")
	if accept == "" {
		return found
	}

	for _, contentType := range strings.Split(accept, ",") {
		if !strings.Contains(contentType, "extensions=") {
			continue
		}
		for _, part := range strings.Split(contentType, ";") {
			part = strings.TrimSpace(part)
			if !strings.HasPrefix(part, "extensions=") {
				continue
			}
			ext := strings.TrimPrefix(part, "extensions=")
			for _, supported := range supportedExtensions {
				if ext == supported {
					found[supported] = true
				}
			}
		}
	}

	return found
}
