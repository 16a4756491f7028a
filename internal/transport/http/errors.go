package httptransport

import (
	"net/http"

	"prediction-pool/internal/pool"

	"github.com/rs/zerolog/log"
)

func statusForClass(c pool.Class) int {
	switch c {
	case pool.ClassValidation:
		return http.StatusBadRequest
	case pool.ClassState, pool.ClassReplay:
		return http.StatusConflict
	case pool.ClassAuthorization:
		return http.StatusForbidden
	case pool.ClassArithmetic:
		return http.StatusUnprocessableEntity
	case pool.ClassNotFound:
		return http.StatusNotFound
	case pool.ClassFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// writePoolError reports err with its stable code; unknown errors are logged and hidden.
func writePoolError(w http.ResponseWriter, r *http.Request, err error) {
	class := pool.Classify(err)
	if class == pool.ClassInternal {
		log.Error().Err(err).Str("route", routePattern(r)).Msg("request failed")
	}
	WriteHTTPError(w, statusForClass(class), pool.Code(err))
}
