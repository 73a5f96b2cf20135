package monitoring

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces credentials in log output.
const MaskValue = "***REDACTED***"

var sensitiveKeys = map[string]bool{
	"authorization": true,
	"api_key":       true,
	"apikey":        true,
	"key":           true,
	"secret":        true,
	"secret_key":    true,
	"token":         true,
	"signature":     true,
	"access_id":     true,
	"password":      true,
}

// Query parameters the metrics APIs use to carry credentials.
var credentialParam = regexp.MustCompile(`(?i)\b(key|api_key|apikey|signature|accessid|cx)=([^&\s"]+)`)

// redactingHandler scrubs credentials from attributes before they reach the
// wrapped handler. Upstream endpoints carry API keys in their query strings,
// so string values are scanned as well as keys.
type redactingHandler struct {
	handler slog.Handler
}

func newRedactingHandler(h slog.Handler) *redactingHandler {
	return &redactingHandler{handler: h}
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, RedactString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redactAttr(a)
	}
	return &redactingHandler{handler: h.handler.WithAttrs(clean)}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{handler: h.handler.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		clean := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			clean[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, RedactString(a.Value.String()))
	}

	return a
}

// RedactString masks credential query parameters inside s.
func RedactString(s string) string {
	if !strings.Contains(s, "=") {
		return s
	}
	return credentialParam.ReplaceAllString(s, "${1}="+MaskValue)
}
