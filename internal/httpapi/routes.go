package httpapi

import "net/http"

func RegisterRoutes(mux *http.ServeMux, h *Handler) http.Handler {
	mux.HandleFunc("/", h.Banner)
	mux.HandleFunc("/health", requireMethod(http.MethodGet, h.Health))
	mux.HandleFunc("/getStudents", requireMethod(http.MethodGet, h.ListStudents))
	mux.HandleFunc("/addStudent", requireMethod(http.MethodPost, h.AddStudent))
	mux.HandleFunc("/result/", requireMethod(http.MethodGet, h.GetResult))
	mux.HandleFunc("/addResult", requireMethod(http.MethodPost, h.AddResult))

	// logging wraps recovery so panicking requests still produce a log line
	return Chain(
		mux,
		LoggingMiddleware(h.log),
		RecoveryMiddleware(h.log),
	)
}

func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
