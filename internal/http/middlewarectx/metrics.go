package middlewarectx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/agent-dashboard/internal/metrics"
)

// MetricsMiddleware собирает счетчик и длительность HTTP-запросов.
// Путь берется из шаблона маршрута chi, чтобы не плодить метки
// по конкретным идентификаторам.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		metrics.RequestCounter.WithLabelValues(
			r.Method, path, strconv.Itoa(ww.Status())).Inc()
		metrics.RequestDurationHistogram.WithLabelValues(
			r.Method, path).Observe(time.Since(start).Seconds())
	})
}
