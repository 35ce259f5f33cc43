package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/racegraph/internal/platform/ctxutil"
)

func serveTraced(t *testing.T, mutate func(*http.Request)) (*httptest.ResponseRecorder, *ctxutil.TraceData) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var seen *ctxutil.TraceData
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/api/races", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/races", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if seen == nil {
		t.Fatalf("handler saw no trace data")
	}
	return rec, seen
}

func isTraceHex(s string) bool {
	id, err := trace.TraceIDFromHex(s)
	return err == nil && id.IsValid()
}

func TestAttachTraceContextGeneratesIDs(t *testing.T) {
	rec, td := serveTraced(t, nil)
	if !isTraceHex(td.TraceID) {
		t.Fatalf("generated trace id is not W3C hex: %q", td.TraceID)
	}
	if td.RequestID == "" || rec.Header().Get("X-Request-Id") != td.RequestID {
		t.Fatalf("request id not echoed: ctx=%q header=%q", td.RequestID, rec.Header().Get("X-Request-Id"))
	}
	if rec.Header().Get("X-Trace-Id") != td.TraceID {
		t.Fatalf("trace id not echoed")
	}
}

func TestAttachTraceContextReplacesUnsafeRequestIDs(t *testing.T) {
	for name, raw := range map[string]string{
		"too long":  strings.Repeat("a", maxRequestIDLen+1),
		"newline":   "req-1\nlevel=error",
		"spaces":    "req 1",
		"non ascii": "réq-1",
	} {
		_, td := serveTraced(t, func(r *http.Request) { r.Header.Set("X-Request-Id", raw) })
		if td.RequestID == raw || td.RequestID == "" {
			t.Fatalf("%s: unsafe request id kept: %q", name, td.RequestID)
		}
	}

	ok := "lobby-7:race_12." + strings.Repeat("x", maxRequestIDLen-16)
	_, td := serveTraced(t, func(r *http.Request) { r.Header.Set("X-Request-Id", " "+ok+" ") })
	if td.RequestID != ok {
		t.Fatalf("valid request id changed: %q", td.RequestID)
	}
}

func TestAttachTraceContextTraceIDSources(t *testing.T) {
	const client = "4BF92F3577B34DA6A3CE929D0E0E4736"
	_, td := serveTraced(t, func(r *http.Request) { r.Header.Set("X-Trace-Id", client) })
	if td.TraceID != strings.ToLower(client) {
		t.Fatalf("valid client trace id not kept: %q", td.TraceID)
	}

	for _, bad := range []string{"trace-1", strings.Repeat("0", 32), "zz" + strings.ToLower(client)[2:]} {
		_, td := serveTraced(t, func(r *http.Request) { r.Header.Set("X-Trace-Id", bad) })
		if td.TraceID == bad || !isTraceHex(td.TraceID) {
			t.Fatalf("bad client trace id %q gave %q", bad, td.TraceID)
		}
	}

	spanTrace, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: spanTrace, SpanID: spanID})
	_, td = serveTraced(t, func(r *http.Request) {
		r.Header.Set("X-Trace-Id", client)
		*r = *r.WithContext(trace.ContextWithSpanContext(context.Background(), sc))
	})
	if td.TraceID != spanTrace.String() {
		t.Fatalf("active span should win over the header: %q", td.TraceID)
	}
}
