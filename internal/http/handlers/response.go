// Package handlers provides HTTP handler implementations for the public API.
//
// This file holds the response helpers shared by every endpoint. Errors use
// one envelope with a stable code (see errors.go); server errors are logged
// with the request-scoped logger. List endpoints tag their results with weak
// ETags so polling clients can revalidate cheaply.
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "already_matched",
//	  "message": "request already matched"
//	}
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parts-market/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Echo of X-Request-ID, for correlating client errors with server logs.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code.
	Code string `json:"code" example:"already_matched"`
	// Human-readable and safe to show to users.
	Message string `json:"message" example:"request already matched"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is fail for callers outside this package, such as router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// weakETag joins parts into a weak entity tag, e.g. W/"offers:<id>:3:1712".
func weakETag(kind string, parts ...any) string {
	var b strings.Builder
	b.WriteString(`W/"`)
	b.WriteString(kind)
	for _, p := range parts {
		fmt.Fprintf(&b, ":%v", p)
	}
	b.WriteByte('"')
	return b.String()
}

// notModified sets ETag and, when If-None-Match lists it (or is "*"), writes
// 304 and reports true. Weak comparison is used, so a client echoing the tag
// without the W/ prefix still matches.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	inm := c.GetHeader("If-None-Match")
	if inm == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(inm, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == want {
			c.Status(http.StatusNotModified)
			return true
		}
	}
	return false
}
