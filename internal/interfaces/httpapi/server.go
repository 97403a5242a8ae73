package httpapi

import (
	"net/http"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
)

func NewRouter(
	handler *Handler,
	logger *logging.Logger,
	corsAllowedOrigins []string,
	internalOpsToken string,
) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler)
	registerPublicRoutes(mux, handler)
	registerInternalOpsRoutes(mux, handler, internalOpsToken)

	return RequestTracing(RequestLogging(logger, CORS(corsAllowedOrigins, recoverPanic(logger, mux))))
}

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/live", handler.ListLive)
	mux.HandleFunc("GET /v1/live/ws", handler.ServeWS)
	mux.HandleFunc("GET /v1/fixtures/upcoming", handler.ListUpcomingFixtures)
}

func registerInternalOpsRoutes(mux *http.ServeMux, handler *Handler, internalOpsToken string) {
	mux.Handle("GET /v1/internal/poller", RequireInternalOpsToken(internalOpsToken, http.HandlerFunc(handler.GetPollerStatus)))
	mux.Handle("PUT /v1/internal/poller", RequireInternalOpsToken(internalOpsToken, http.HandlerFunc(handler.UpdatePoller)))
	mux.Handle("POST /v1/internal/poller/tick", RequireInternalOpsToken(internalOpsToken, http.HandlerFunc(handler.ForcePollTick)))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.Handler.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
