package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/V1nSky/key-bot/services/api/internal/authz"
)

// userIDHeader carries the chat user id of the caller. The bot process sets
// it after authenticating the chat update.
const userIDHeader = "X-User-ID"

// Authorizer decides whether the caller may perform an action.
type Authorizer interface {
	PrincipalFor(userID int64) authz.Principal
	Authorize(ctx context.Context, p authz.Principal, action authz.Action, r authz.Resource) authz.Decision
}

func actorID(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get(userIDHeader))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// authorize writes 401 or 403 and returns false when the caller may not
// perform action on resource.
func authorize(w http.ResponseWriter, r *http.Request, az Authorizer, action authz.Action, resource authz.Resource) (authz.Principal, bool) {
	id, ok := actorID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing or invalid "+userIDHeader)
		return authz.Principal{}, false
	}
	p := az.PrincipalFor(id)
	if !az.Authorize(r.Context(), p, action, resource).Allowed {
		writeError(w, http.StatusForbidden, codeForbidden, "forbidden")
		return authz.Principal{}, false
	}
	return p, true
}

// splitPath returns the non-empty segments of path.
func splitPath(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 1 && parts[0] == "" {
		return nil
	}
	return parts
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
