package middleware

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"veridoc/pkg/requestcontext"
)

// ClientMetadata captures the originating IP and a human-readable device name
// parsed from the User-Agent header. The device name travels with each
// uploaded artifact so case audit records show what a subject uploaded from.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithClientIP(ctx, ClientIPFromRequest(r))
		if ua := r.Header.Get("User-Agent"); ua != "" {
			ctx = requestcontext.WithDeviceName(ctx, DeviceNameFromUserAgent(ua))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceNameFromUserAgent renders a User-Agent string as "Browser x.y on OS".
// Unparseable agents fall back to the raw string, truncated so it stays a
// display value rather than a payload.
func DeviceNameFromUserAgent(raw string) string {
	ua := useragent.New(raw)

	browser, version := ua.Browser()
	os := ua.OSInfo().FullName
	if os == "" {
		os = ua.Platform()
	}

	switch {
	case browser != "" && os != "":
		if version != "" {
			return browser + " " + majorVersion(version) + " on " + os
		}
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	}

	const maxRawLen = 64
	if len(raw) > maxRawLen {
		return raw[:maxRawLen]
	}
	return raw
}

func majorVersion(version string) string {
	if idx := strings.Index(version, "."); idx != -1 {
		return version[:idx]
	}
	return version
}
