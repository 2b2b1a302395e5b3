package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/linkupapp/linkup/internal/stripe"
)

// requestInfo is the per-request metadata shared by logging and metrics.
type requestInfo struct {
	ID            string
	Method        string
	Path          string
	Route         string
	ClientIP      string
	UserAgent     string
	ContentLength int64
	Signed        bool
}

func describeRequest(r *http.Request) requestInfo {
	info := requestInfo{
		ID:            strings.TrimSpace(r.Header.Get("X-Request-ID")),
		Method:        r.Method,
		Path:          r.URL.Path,
		Route:         routeLabel(r),
		ClientIP:      clientIP(r),
		UserAgent:     strings.TrimSpace(r.UserAgent()),
		ContentLength: r.ContentLength,
		Signed:        r.Header.Get(stripe.SignatureHeader) != "",
	}
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	if info.Route == "" {
		info.Route = "unknown"
	}
	return info
}

// logAttrs omits unknown values so health checks stay short.
func (i requestInfo) logAttrs() []any {
	attrs := []any{
		"request_id", i.ID,
		"method", i.Method,
		"path", i.Path,
		"route", i.Route,
		"remote_ip", i.ClientIP,
	}
	if i.UserAgent != "" {
		attrs = append(attrs, "user_agent", i.UserAgent)
	}
	if i.ContentLength >= 0 {
		attrs = append(attrs, "content_length", i.ContentLength)
	}
	if i.Signed {
		attrs = append(attrs, "signed", true)
	}
	return attrs
}

// Stripe calls from its own egress ranges, so the first forwarded hop is the
// closest thing to a caller address behind a load balancer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func routeLabel(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	if name := route.GetName(); name != "" {
		return name
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return template
}
