package middleware

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Tracing instruments every request with an otel server span named after
// the matched route, so capture calls for different orders share one span
// name ("POST /api/v1/orders/{orderNumber}/capture") instead of producing
// a series per order number.
func Tracing() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// The operation name depends on the request, so the otelhttp
		// handler is built per request rather than once at wrap time.
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			otelhttp.NewHandler(next, routeOperation(r)).ServeHTTP(w, r)
		})
	}
}

// routeOperation names the span after chi's route pattern when the router
// has matched one, falling back to the raw path.
func routeOperation(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return fmt.Sprintf("%s %s", r.Method, rctx.RoutePattern())
	}
	return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
}
