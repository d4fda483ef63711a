package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// NestSource is what the handlers need from the catalog; satisfied by
// *nest.Store.
type NestSource interface {
	Active(ctx context.Context) ([]nest.Nest, error)
	All(ctx context.Context) ([]nest.Nest, error)
	Get(ctx context.Context, nestID int64) (nest.Nest, error)
}

var source NestSource

// Init wires the handlers to a catalog source.
func Init(src NestSource) {
	source = src
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// GetNests returns the active nests; ?all=1 includes discarded ones.
func GetNests(w http.ResponseWriter, r *http.Request) {
	var (
		nests []nest.Nest
		err   error
	)
	if r.URL.Query().Get("all") == "1" {
		nests, err = source.All(r.Context())
	} else {
		nests, err = source.Active(r.Context())
	}
	if err != nil {
		http.Error(w, "failed to load nests", http.StatusInternalServerError)
		return
	}
	writeJSON(w, nests)
}

// GetNest returns one nest by id.
func GetNest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid nest id", http.StatusBadRequest)
		return
	}
	n, err := source.Get(r.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "nest not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to load nest", http.StatusInternalServerError)
		return
	}
	writeJSON(w, n)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"ok": true})
}
