package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const maxHeaderValueSize = 8192

var (
	// Logged only. Every query goes through parameterized statements.
	sqlPattern = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1)`)

	scriptPattern = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// Sanitize rejects requests whose path, headers or query string carry
// traversal sequences, null bytes, header injection or script payloads.
// Filter values such as clinicId and month end up in rendered views, so
// script payloads are refused before any handler sees them.
func Sanitize(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			raw := req.URL.RawPath
			if raw == "" {
				raw = req.URL.Path
			}

			for _, p := range []string{req.URL.Path, raw} {
				if hasTraversal(p) {
					return rejected("path traversal detected")
				}
				if hasNullByte(p) {
					return rejected("null byte in path")
				}
			}

			for name, values := range req.Header {
				for _, v := range values {
					if len(v) > maxHeaderValueSize {
						return rejected("header " + name + " exceeds maximum size")
					}
					if strings.ContainsAny(v, "\r\n") {
						return rejected("header injection detected: " + name)
					}
				}
			}

			for key, values := range req.URL.Query() {
				if hasNullByte(key) || scriptPattern.MatchString(key) {
					return rejected("invalid query parameter name")
				}
				for _, v := range values {
					if hasNullByte(v) {
						return rejected("null byte in query parameter " + key)
					}
					if scriptPattern.MatchString(v) {
						return rejected("script content in query parameter " + key)
					}
					if sqlPattern.MatchString(v) {
						logger.Warn().
							Str("param", key).
							Str("path", req.URL.Path).
							Str("remote_ip", c.RealIP()).
							Msg("suspicious query parameter")
					}
				}
			}

			return next(c)
		}
	}
}

func rejected(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

func hasTraversal(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(s, "..") ||
		strings.Contains(lower, "%2e%2e") ||
		strings.Contains(lower, "%252e")
}

func hasNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}
