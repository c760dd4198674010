package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// ErrMalformed marks a response that decoded but did not have the expected
// shape.
var ErrMalformed = errors.New("malformed response")

// StatusError is returned by the REST helper for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Classify folds any adapter-internal error into a *domain.FetchError.
func Classify(sourceID string, err error) *domain.FetchError {
	if err == nil {
		return nil
	}

	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return fe
	}

	kind := domain.FetchNetwork
	var (
		statusErr *StatusError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		netErr    net.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = domain.FetchTimeout
	case errors.As(err, &statusErr):
		if statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500 {
			kind = domain.FetchNetwork
		} else {
			kind = domain.FetchProtocol
		}
	case errors.Is(err, ErrMalformed), errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		kind = domain.FetchProtocol
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = domain.FetchTimeout
	}

	return &domain.FetchError{SourceID: sourceID, Kind: kind, Detail: err.Error()}
}
