package middleware

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const redacted = "REDACTED"

// sensitiveParams never reach the access log.
var sensitiveParams = []string{"access_token"}

// Logger is gin's access log with the request id appended and session
// tokens masked in the logged query string.
func Logger(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    out,
		Formatter: formatAccessLog,
	})
}

func formatAccessLog(p gin.LogFormatterParams) string {
	var statusColor, methodColor, resetColor string
	if p.IsOutputColor() {
		statusColor = p.StatusCodeColor()
		methodColor = p.MethodColor()
		resetColor = p.ResetColor()
	}
	if p.Latency > time.Minute {
		p.Latency = p.Latency.Truncate(time.Second)
	}
	id, _ := p.Keys[requestIDKey].(string)

	return fmt.Sprintf("[GIN] %v |%s %3d %s| %13v | %15s |%s %-7s %s %#v %s\n%s",
		p.TimeStamp.Format("2006/01/02 - 15:04:05"),
		statusColor, p.StatusCode, resetColor,
		p.Latency,
		p.ClientIP,
		methodColor, p.Method, resetColor,
		redactQuery(p.Path),
		id,
		p.ErrorMessage,
	)
}

// redactQuery masks sensitive parameters in a path with query. A query that
// does not parse is dropped entirely.
func redactQuery(path string) string {
	base, raw, ok := strings.Cut(path, "?")
	if !ok {
		return path
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return base + "?" + redacted
	}
	masked := false
	for _, name := range sensitiveParams {
		if q.Has(name) {
			q.Set(name, redacted)
			masked = true
		}
	}
	if !masked {
		return path
	}
	return base + "?" + q.Encode()
}
