package i18n

import "net/http"

// Middleware negotiates the response language for every request.
// A "lang" query parameter wins over Accept-Language; fallback is the bundle default.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := Match(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Language", tag.String())
		next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), tag)))
	})
}
