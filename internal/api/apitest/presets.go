package apitest

import (
	"cmp"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/drewfead/moviebuddy/internal"
)

func (b *Backend) listFilterPresets(w http.ResponseWriter, r *http.Request) {
	viewer, scope := currentUser(r.Context()), r.URL.Query().Get("scope")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []internal.FilterPreset{}
	for id, p := range b.filterSets {
		if b.filterOwner[id] == viewer && (scope == "" || p.Scope == scope) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(x, y internal.FilterPreset) int { return cmp.Compare(x.ID, y.ID) })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) saveFilterPreset(w http.ResponseWriter, r *http.Request) {
	var req internal.SavePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	viewer := currentUser(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, p := range b.filterSets {
		if b.filterOwner[id] == viewer && p.Scope == req.Scope && strings.EqualFold(p.Name, req.Name) {
			writeError(w, http.StatusConflict, "A preset with this name already exists")
			return
		}
	}
	p := internal.FilterPreset{
		ID:      b.newIDLocked(),
		Name:    strings.TrimSpace(req.Name),
		Scope:   req.Scope,
		Filters: req.Filters,
	}
	b.filterSets[p.ID] = p
	b.filterOwner[p.ID] = viewer
	if req.IsFavorite {
		p = b.setFilterFavoriteLocked(viewer, p.ID, true)
	}
	writeJSON(w, http.StatusCreated, p)
}

// setFilterFavoriteLocked keeps at most one favorite per scope.
func (b *Backend) setFilterFavoriteLocked(owner, id int, favorite bool) internal.FilterPreset {
	target := b.filterSets[id]
	for otherID, p := range b.filterSets {
		if b.filterOwner[otherID] == owner && p.Scope == target.Scope && p.IsFavorite {
			p.IsFavorite = false
			b.filterSets[otherID] = p
		}
	}
	target.IsFavorite = favorite
	b.filterSets[id] = target
	return target
}

func (b *Backend) deleteFilterPreset(w http.ResponseWriter, r *http.Request) {
	viewer, id := currentUser(r.Context()), pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.filterSets[id]; !ok || b.filterOwner[id] != viewer {
		writeError(w, http.StatusNotFound, "Preset not found")
		return
	}
	delete(b.filterSets, id)
	delete(b.filterOwner, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) favoriteFilterPreset(w http.ResponseWriter, r *http.Request) {
	viewer, id := currentUser(r.Context()), pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.filterSets[id]
	if !ok || b.filterOwner[id] != viewer {
		writeError(w, http.StatusNotFound, "Preset not found")
		return
	}
	writeJSON(w, http.StatusOK, b.setFilterFavoriteLocked(viewer, id, !p.IsFavorite))
}

func (b *Backend) listCinemaPresets(w http.ResponseWriter, r *http.Request) {
	viewer := currentUser(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []internal.CinemaPreset{}
	for id, p := range b.cinemaSets {
		if b.cinemaOwner[id] == viewer {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(x, y internal.CinemaPreset) int { return cmp.Compare(x.ID, y.ID) })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) saveCinemaPreset(w http.ResponseWriter, r *http.Request) {
	var req internal.SaveCinemaPresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	viewer := currentUser(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, p := range b.cinemaSets {
		if b.cinemaOwner[id] == viewer && strings.EqualFold(p.Name, req.Name) {
			writeError(w, http.StatusConflict, "A preset with this name already exists")
			return
		}
	}
	p := internal.CinemaPreset{ID: b.newIDLocked(), Name: strings.TrimSpace(req.Name), CinemaIDs: slices.Clone(req.CinemaIDs)}
	if p.CinemaIDs == nil {
		p.CinemaIDs = []int{}
	}
	b.cinemaSets[p.ID] = p
	b.cinemaOwner[p.ID] = viewer
	if req.IsFavorite {
		p = b.setCinemaFavoriteLocked(viewer, p.ID, true)
	}
	writeJSON(w, http.StatusCreated, p)
}

func (b *Backend) setCinemaFavoriteLocked(owner, id int, favorite bool) internal.CinemaPreset {
	for otherID, p := range b.cinemaSets {
		if b.cinemaOwner[otherID] == owner && p.IsFavorite {
			p.IsFavorite = false
			b.cinemaSets[otherID] = p
		}
	}
	target := b.cinemaSets[id]
	target.IsFavorite = favorite
	b.cinemaSets[id] = target
	return target
}

func (b *Backend) deleteCinemaPreset(w http.ResponseWriter, r *http.Request) {
	viewer, id := currentUser(r.Context()), pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cinemaSets[id]; !ok || b.cinemaOwner[id] != viewer {
		writeError(w, http.StatusNotFound, "Preset not found")
		return
	}
	delete(b.cinemaSets, id)
	delete(b.cinemaOwner, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) favoriteCinemaPreset(w http.ResponseWriter, r *http.Request) {
	viewer, id := currentUser(r.Context()), pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.cinemaSets[id]
	if !ok || b.cinemaOwner[id] != viewer {
		writeError(w, http.StatusNotFound, "Preset not found")
		return
	}
	writeJSON(w, http.StatusOK, b.setCinemaFavoriteLocked(viewer, id, !p.IsFavorite))
}
