package source

import (
	"net/http"

	"github.com/alanyoungcy/liquidrouter/internal/crypto"
	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// Options configures one venue adapter.
type Options struct {
	ID          string
	BaseURL     string
	Environment domain.Environment
	Credentials crypto.Credentials
	MaxLevels   int
	HTTPClient  *http.Client
}

// Endpoint returns the configured base URL, falling back to the venue's
// sandbox or live default for the environment.
func (o Options) Endpoint(live, sandbox string) string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	if o.Environment == domain.EnvSandbox && sandbox != "" {
		return sandbox
	}
	return live
}

// Levels returns MaxLevels or DefaultMaxLevels when unset.
func (o Options) Levels() int {
	if o.MaxLevels > 0 {
		return o.MaxLevels
	}
	return DefaultMaxLevels
}

// Limit picks the smallest venue-supported depth that covers want. If want
// exceeds every allowed value the largest is used.
func Limit(want int, allowed []int) int {
	for _, a := range allowed {
		if a >= want {
			return a
		}
	}
	return allowed[len(allowed)-1]
}
