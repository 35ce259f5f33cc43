package middleware

import (
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/racegraph/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"

	maxRequestIDLen = 64
)

// AttachTraceContext stamps every request with a request id and a trace id, stores them for
// the request logger and echoes both back. Ids come from the game client, so anything that
// could break a log line or grow without bound is replaced.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := requestID(c.GetHeader(headerRequestID))
		traceID := traceIDFor(c, c.GetHeader(headerTraceID))

		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

// requestID keeps a client id made of [A-Za-z0-9._:-] up to maxRequestIDLen bytes.
func requestID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxRequestIDLen {
		return uuid.NewString()
	}
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.', ch == ':':
		default:
			return uuid.NewString()
		}
	}
	return raw
}

// traceIDFor prefers the active span so logs join the exported trace. A client header is
// used only when it is a valid W3C trace id; otherwise a new one is generated in that form.
func traceIDFor(c *gin.Context, header string) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	header = strings.ToLower(strings.TrimSpace(header))
	if id, err := trace.TraceIDFromHex(header); err == nil && id.IsValid() {
		return id.String()
	}
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
