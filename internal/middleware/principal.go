package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"ptw/internal/models"
)

const principalKey ctxKey = "principal"

// Principal извлекает аутентифицированного субъекта из доверенных заголовков
// шлюза (внешний Identity-provider уже проверил учётные данные — здесь только
// разбор и валидация роли по закрытому перечислению).
func Principal(userHeader, roleHeader string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(userHeader))
			if id == "" {
				models.WriteProblem(w, http.StatusUnauthorized,
					"Unauthorized", "missing "+userHeader+" header", nil)
				return
			}
			role, err := models.ParseRole(strings.TrimSpace(r.Header.Get(roleHeader)))
			if err != nil {
				models.WriteProblem(w, http.StatusForbidden,
					"Forbidden", err.Error(), nil)
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, models.Principal{ID: id, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetPrincipal(r *http.Request) (models.Principal, bool) {
	p, ok := r.Context().Value(principalKey).(models.Principal)
	return p, ok
}
