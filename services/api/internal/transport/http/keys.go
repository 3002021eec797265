package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/V1nSky/key-bot/services/api/internal/authz"
	"github.com/V1nSky/key-bot/services/api/internal/domain"
	"github.com/V1nSky/key-bot/services/api/internal/keygen"
)

type InventoryService interface {
	AddKey(ctx context.Context, value string) (domain.Key, error)
	GenerateKeys(ctx context.Context, count int, gen keygen.Generator) (int, error)
	AvailableKeyCount(ctx context.Context) (int, error)
	ListKeys(ctx context.Context) ([]domain.Key, error)
}

type addKeyRequest struct {
	Value string `json:"value"`
}

type generateKeysRequest struct {
	Count  int    `json:"count"`
	Format string `json:"format"`
}

type keyResponse struct {
	ID        int64     `json:"id"`
	Value     string    `json:"value"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func newKeyResponse(k domain.Key) keyResponse {
	return keyResponse{ID: k.ID, Value: k.Value, Used: k.Used, CreatedAt: k.CreatedAt}
}

// HandleKeys serves GET /keys (full inventory) and POST /keys (add one).
// Both are admin only since they expose key values.
func HandleKeys(inv InventoryService, az Authorizer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := authorize(w, r, az, authz.ActionManageKeys, authz.InventoryResource()); !ok {
			return
		}

		if r.Method == http.MethodGet {
			keys, err := inv.ListKeys(r.Context())
			if err != nil {
				writeServiceError(w, r, logger, err)
				return
			}
			resp := make([]keyResponse, 0, len(keys))
			for _, k := range keys {
				resp = append(resp, newKeyResponse(k))
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}

		var req addKeyRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		key, err := inv.AddKey(r.Context(), req.Value)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newKeyResponse(key))
	}
}

// HandleAvailableKeys reports how many keys are for sale. Buyers see this
// before opening an order.
func HandleAvailableKeys(inv InventoryService, az Authorizer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := authorize(w, r, az, authz.ActionReadAvailable, authz.InventoryResource()); !ok {
			return
		}
		n, err := inv.AvailableKeyCount(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"available": n})
	}
}

func HandleGenerateKeys(inv InventoryService, az Authorizer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := authorize(w, r, az, authz.ActionManageKeys, authz.InventoryResource()); !ok {
			return
		}

		var req generateKeysRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		gen, err := keygen.Lookup(req.Format)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidFormat, err.Error())
			return
		}

		added, err := inv.GenerateKeys(r.Context(), req.Count, gen)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int{"added": added})
	}
}
