package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicbill/clinicbill/internal/platform/auth"
)

// AuditEntry records who changed what, when and from where.
type AuditEntry struct {
	UserID     string
	Role       auth.Role
	ClinicID   string
	Collection string
	RecordID   string
	Action     string // create, update, delete
	IPAddress  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	Workspace  string
	StatusCode int
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every mutating request under /api/v1/ together with the
// principal that issued it. Reads are not audited. It must run after the
// principal has been placed on the request context.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			action := methodToAction(req.Method)
			if action == "" || !strings.HasPrefix(req.URL.Path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       req.URL.Path,
				Method:     req.Method,
				Action:     action,
				IPAddress:  c.RealIP(),
				StatusCode: status,
			}
			entry.Collection, entry.RecordID = splitResourcePath(req.URL.Path)
			if p, ok := auth.PrincipalFromContext(req.Context()); ok {
				entry.UserID = p.UserID
				entry.Role = p.Role
				entry.ClinicID = p.ClinicID
			}
			entry.RequestID, _ = c.Get("request_id").(string)
			entry.Workspace, _ = c.Get("workspace_id").(string)

			for _, rec := range recorders {
				if rec == nil {
					continue
				}
				if recErr := rec.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("workspace", entry.Workspace).
				Str("user_id", entry.UserID).
				Str("role", string(entry.Role)).
				Str("clinic_id", entry.ClinicID).
				Str("collection", entry.Collection).
				Str("record_id", entry.RecordID).
				Str("action", entry.Action).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("mutation")

			return err
		}
	}
}

func methodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return ""
}

// splitResourcePath turns /api/v1/invoices/abc into ("invoices", "abc").
func splitResourcePath(path string) (collection, id string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	if len(segments) > 0 {
		collection = segments[0]
	}
	if len(segments) > 1 {
		id = segments[1]
	}
	if collection == "" {
		collection = "unknown"
	}
	return collection, id
}
