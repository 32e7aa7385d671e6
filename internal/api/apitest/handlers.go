package apitest

import (
	"cmp"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/drewfead/moviebuddy/internal"
)

const defaultShowtimeLimit = 3

type listFilter struct {
	limit, offset int
	cinemas       map[int]bool
	days          map[string]bool
	timeMin       string
	timeMax       string
	status        internal.GoingStatus
	watchlistOnly bool
	query         string
	showtimeLimit int
}

func parseListFilter(r *http.Request) (listFilter, bool) {
	q := r.URL.Query()
	f := listFilter{limit: -1, showtimeLimit: defaultShowtimeLimit}
	atoi := func(name string, dst *int) bool {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return false
			}
			*dst = n
		}
		return true
	}
	if !atoi("limit", &f.limit) || !atoi("offset", &f.offset) || !atoi("showtime_limit", &f.showtimeLimit) {
		return f, false
	}
	if v := q.Get("snapshot_time"); v != "" {
		if _, err := time.Parse(time.RFC3339, v); err != nil {
			return f, false
		}
	}
	for _, v := range q["cinema_ids"] {
		id, err := strconv.Atoi(v)
		if err != nil {
			return f, false
		}
		if f.cinemas == nil {
			f.cinemas = make(map[int]bool)
		}
		f.cinemas[id] = true
	}
	for _, v := range q["days"] {
		if _, err := time.Parse(time.DateOnly, v); err != nil {
			return f, false
		}
		if f.days == nil {
			f.days = make(map[string]bool)
		}
		f.days[v] = true
	}
	if v := q.Get("time_ranges"); v != "" {
		f.timeMin, f.timeMax, _ = strings.Cut(v, "-")
	}
	f.status = internal.GoingStatus(q.Get("selected_status"))
	if !f.status.Valid() {
		return f, false
	}
	f.watchlistOnly = q.Get("watchlist_only") == "true"
	f.query = strings.ToLower(strings.TrimSpace(q.Get("query")))
	return f, true
}

func inTimeRange(clock, start, end string) bool {
	switch {
	case start == "" && end == "":
		return true
	case start == "":
		return clock < end
	case end == "":
		return clock >= start
	case start <= end:
		return clock >= start && clock < end
	default:
		return clock >= start || clock < end
	}
}

// matchLocked applies the filters that do not depend on whose plan is shown.
func (b *Backend) matchLocked(f listFilter, viewer int, s internal.Showtime) bool {
	if f.cinemas != nil && !f.cinemas[s.Cinema.ID] {
		return false
	}
	local := s.Datetime.In(b.loc)
	if f.days != nil && !f.days[local.Format(time.DateOnly)] {
		return false
	}
	if !inTimeRange(local.Format("15:04"), f.timeMin, f.timeMax) {
		return false
	}
	if f.watchlistOnly && !b.watchlists[viewer][s.Movie.ID] {
		return false
	}
	return true
}

func (b *Backend) sortedShowtimesLocked() []internal.Showtime {
	out := make([]internal.Showtime, 0, len(b.showtimes))
	for _, s := range b.showtimes {
		out = append(out, s)
	}
	slices.SortFunc(out, func(x, y internal.Showtime) int {
		if c := x.Datetime.Compare(y.Datetime); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	return out
}

func (b *Backend) friendsOfLocked(userID int) []int {
	var out []int
	for p := range b.friends {
		switch userID {
		case p.a:
			out = append(out, p.b)
		case p.b:
			out = append(out, p.a)
		}
	}
	slices.Sort(out)
	return out
}

// viewLocked renders a showtime as viewer sees it.
func (b *Backend) viewLocked(viewer int, s internal.Showtime) internal.Showtime {
	sel := b.selections[pair{viewer, s.ID}].update
	s.Going = sel.Going
	s.SeatRow, s.SeatNumber = sel.SeatRow, sel.SeatNumber
	s.FriendsGoing, s.FriendsInterested = []internal.User{}, []internal.User{}
	for _, id := range b.friendsOfLocked(viewer) {
		switch b.selections[pair{id, s.ID}].update.Going {
		case internal.GoingStatusGoing:
			s.FriendsGoing = append(s.FriendsGoing, b.users[id])
		case internal.GoingStatusInterested:
			s.FriendsInterested = append(s.FriendsInterested, b.users[id])
		}
	}
	if m, ok := b.movies[s.Movie.ID]; ok {
		s.Movie = &internal.MovieSummary{ID: m.ID, Title: m.Title, PosterLink: m.PosterLink}
	}
	return s
}

func page[T any](items []T, f listFilter) []T {
	if f.offset >= len(items) {
		return []T{}
	}
	items = items[f.offset:]
	if f.limit >= 0 && f.limit < len(items) {
		items = items[:f.limit]
	}
	return items
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form")
		return
	}
	b.mu.Lock()
	id, ok := b.passwords[r.PostForm.Get("username")+"\x00"+r.PostForm.Get("password")]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "Incorrect username or password")
		return
	}
	writeJSON(w, http.StatusOK, internal.Token{AccessToken: b.IssueToken(id, b.ttl), TokenType: "bearer"})
}

func (b *Backend) listCinemas(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := slices.Clone(b.cinemas)
	b.mu.Unlock()
	if out == nil {
		out = []internal.Cinema{}
	}
	w.Header().Set("Cache-Control", "max-age=300")
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) listMovies(w http.ResponseWriter, r *http.Request) {
	f, ok := parseListFilter(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid query")
		return
	}
	viewer := currentUser(r.Context())

	b.mu.Lock()
	defer b.mu.Unlock()
	var order []int
	grouped := make(map[int][]internal.Showtime)
	for _, s := range b.sortedShowtimesLocked() {
		if !b.matchLocked(f, viewer, s) {
			continue
		}
		m, ok := b.movies[s.Movie.ID]
		if !ok || (f.query != "" && !strings.Contains(strings.ToLower(m.Title), f.query)) {
			continue
		}
		if _, seen := grouped[m.ID]; !seen {
			order = append(order, m.ID)
		}
		grouped[m.ID] = append(grouped[m.ID], b.viewLocked(viewer, s))
	}
	movies := make([]internal.Movie, 0, len(order))
	for _, id := range order {
		movies = append(movies, b.movieViewLocked(b.movies[id], grouped[id], f.showtimeLimit))
	}
	writeJSON(w, http.StatusOK, page(movies, f))
}

func (b *Backend) movieViewLocked(m internal.Movie, showtimes []internal.Showtime, limit int) internal.Movie {
	friends := make(map[int]bool)
	m.Going = false
	for _, s := range showtimes {
		if s.Going == internal.GoingStatusGoing {
			m.Going = true
		}
		for _, u := range s.FriendsGoing {
			friends[u.ID] = true
		}
	}
	m.TotalShowtimes = len(showtimes)
	m.FriendsGoingCount = len(friends)
	if limit >= 0 && limit < len(showtimes) {
		showtimes = showtimes[:limit]
	}
	m.Showtimes = showtimes
	if m.Directors == nil {
		m.Directors = []string{}
	}
	return m
}

func (b *Backend) getMovie(w http.ResponseWriter, r *http.Request) {
	f, ok := parseListFilter(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid query")
		return
	}
	viewer := currentUser(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.movies[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Movie not found")
		return
	}
	var showtimes []internal.Showtime
	for _, s := range b.sortedShowtimesLocked() {
		if s.Movie.ID == m.ID && (f.cinemas == nil || f.cinemas[s.Cinema.ID]) {
			showtimes = append(showtimes, b.viewLocked(viewer, s))
		}
	}
	if showtimes == nil {
		showtimes = []internal.Showtime{}
	}
	writeJSON(w, http.StatusOK, b.movieViewLocked(m, showtimes, -1))
}

func (b *Backend) getMovieShowtimes(w http.ResponseWriter, r *http.Request) {
	f, ok := parseListFilter(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid query")
		return
	}
	viewer := currentUser(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()
	movieID := pathID(r)
	if _, ok := b.movies[movieID]; !ok {
		writeError(w, http.StatusNotFound, "Movie not found")
		return
	}
	out := []internal.Showtime{}
	for _, s := range b.sortedShowtimesLocked() {
		if s.Movie.ID == movieID && b.matchLocked(f, viewer, s) {
			out = append(out, b.viewLocked(viewer, s))
		}
	}
	writeJSON(w, http.StatusOK, page(out, f))
}

func (b *Backend) updateSelection(w http.ResponseWriter, r *http.Request) {
	var update internal.StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil || !update.Going.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "invalid going_status")
		return
	}
	viewer := currentUser(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.showtimes[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Showtime not found")
		return
	}
	if update.Going != internal.GoingStatusGoing {
		update.SeatRow, update.SeatNumber = nil, nil
	}
	if update.Going == internal.GoingStatusUnset {
		delete(b.selections, pair{viewer, s.ID})
	} else {
		b.selections[pair{viewer, s.ID}] = selection{update: update}
	}
	writeJSON(w, http.StatusOK, b.viewLocked(viewer, s))
}

// plansLocked lists the showtimes owner is going to or interested in, as viewer sees them.
func (b *Backend) plansLocked(f listFilter, viewer, owner int) []internal.Showtime {
	out := []internal.Showtime{}
	for _, s := range b.sortedShowtimesLocked() {
		status := b.selections[pair{owner, s.ID}].update.Going
		if status != internal.GoingStatusGoing && status != internal.GoingStatusInterested {
			continue
		}
		if f.status != internal.GoingStatusUnset && status != f.status {
			continue
		}
		if b.matchLocked(f, viewer, s) {
			out = append(out, b.viewLocked(viewer, s))
		}
	}
	return page(out, f)
}

func (b *Backend) listMyShowtimes(w http.ResponseWriter, r *http.Request) {
	f, ok := parseListFilter(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid query")
		return
	}
	viewer := currentUser(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.plansLocked(f, viewer, viewer))
}

func (b *Backend) listUserShowtimes(w http.ResponseWriter, r *http.Request) {
	f, ok := parseListFilter(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid query")
		return
	}
	viewer := currentUser(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()
	owner := pathID(r)
	if _, ok := b.users[owner]; !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if owner != viewer && !b.friends[key(viewer, owner)] {
		writeError(w, http.StatusForbidden, "Not friends with this user")
		return
	}
	writeJSON(w, http.StatusOK, b.plansLocked(f, viewer, owner))
}

func (b *Backend) getCinemaSelections(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.cinemaPrefs[currentUser(r.Context())]
	if out == nil {
		out = []int{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) setCinemaSelections(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CinemaIDs []int `json:"cinema_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := slices.Clone(body.CinemaIDs)
	if ids == nil {
		ids = []int{}
	}
	b.cinemaPrefs[currentUser(r.Context())] = ids
	writeJSON(w, http.StatusOK, ids)
}

func (b *Backend) syncWatchlist(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	b.watchSyncs++
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
