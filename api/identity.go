/*
identity.go - Acting-person middleware

PURPOSE:
  Resolves who is making the request. The client sends the acting person's
  full name in the X-Acting-As header; absent that, the configured fallback
  actor applies. The name travels down to the service via the request
  context (see ledger/actor.go) where it is resolved get-or-create.

SECURITY NOTE:
  This is identification, not authentication - the deployment target is a
  trusted household/server. Anything stronger belongs in a reverse proxy.
*/
package api

import (
	"net/http"
	"strings"

	"github.com/warp/loan-ledger/ledger"
)

// ActingAsHeader names the header carrying the acting person's full name.
const ActingAsHeader = "X-Acting-As"

// ActorMiddleware injects the acting person's name into the request context.
func ActorMiddleware(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := strings.TrimSpace(r.Header.Get(ActingAsHeader))
			if name == "" {
				name = fallback
			}
			next.ServeHTTP(w, r.WithContext(ledger.WithActorName(r.Context(), name)))
		})
	}
}
