package proxy

import (
	"errors"
	"net/http"
	"slices"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter"
)

// Recovery turns handler panics into an OpenAI server_error. http.ErrAbortHandler is re-raised
// so the server aborts the connection, which is how a broken stream is signalled.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			// The panic itself is logged by the Logging middleware.
			writeJSONOpenAIError(r.Context(), w, openaiadapter.NewErrorResponse(
				openaiadapter.ErrorTypeServer, "", http.StatusText(http.StatusInternalServerError)))
		}()

		next.ServeHTTP(w, r)
	})
}

// RequestSizeLimit caps request bodies at maxBytes. Reads past the cap fail with *http.MaxBytesError.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeJSONOpenAIError(r.Context(), w, openaiadapter.NewErrorResponse(
					openaiadapter.ErrorTypeInvalidRequest, "", "Request Entity Too Large"))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// applyMiddlewares wraps h so that the first middleware runs outermost.
func applyMiddlewares(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, mw := range slices.Backward(middlewares) {
		h = mw(h)
	}
	return h
}
