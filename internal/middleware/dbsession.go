package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/awesome-blog/internal/db"
)

// DBSession gives each request its own db.Session, carried in the request
// context, and runs the handler inside one connection scope. Every repository
// call made for the request shares one physical connection, opened on the
// first statement and closed when the handler returns. Requests that never
// touch the database never open one.
//
// WHY PER REQUEST?
// A Session belongs to one goroutine. net/http serves each request on its own
// goroutine, so the request is the natural owner.
func DBSession(engine *db.Engine, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := engine.NewSession()
			ctx := db.ContextWithSession(r.Context(), sess)

			err := sess.WithConnection(ctx, func(ctx context.Context) error {
				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
			if err != nil {
				logger.Error("releasing request connection",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
			}
		})
	}
}
