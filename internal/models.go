package internal

import "time"

// GoingStatus is a user's attendance choice for a showtime. The zero value means no selection.
type GoingStatus string

const (
	GoingStatusUnset      GoingStatus = ""
	GoingStatusGoing      GoingStatus = "GOING"
	GoingStatusInterested GoingStatus = "INTERESTED"
	GoingStatusNotGoing   GoingStatus = "NOT_GOING"
)

func (s GoingStatus) Valid() bool {
	switch s {
	case GoingStatusUnset, GoingStatusGoing, GoingStatusInterested, GoingStatusNotGoing:
		return true
	}
	return false
}

type City struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Cinema struct {
	ID             int     `json:"id" yaml:"id"`
	Name           string  `json:"name" yaml:"name"`
	City           City    `json:"city" yaml:"city"`
	BadgeBgColor   string  `json:"badge_bg_color" yaml:"badge_bg_color"`
	BadgeTextColor string  `json:"badge_text_color" yaml:"badge_text_color"`
	URL            *string `json:"url,omitempty" yaml:"url,omitempty"`
}

type User struct {
	ID          int    `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
}

type UserWithFriendStatus struct {
	User            `yaml:",inline"`
	IsFriend        bool `json:"is_friend" yaml:"is_friend"`
	SentRequest     bool `json:"sent_request" yaml:"sent_request"`
	ReceivedRequest bool `json:"received_request" yaml:"received_request"`
}

// MovieSummary is the slice of a movie embedded in showtime feed entries.
type MovieSummary struct {
	ID         int     `json:"id" yaml:"id"`
	Title      string  `json:"title" yaml:"title"`
	PosterLink *string `json:"poster_link,omitempty" yaml:"poster_link,omitempty"`
}

type Showtime struct {
	ID                int           `json:"id" yaml:"id"`
	Datetime          time.Time     `json:"datetime" yaml:"datetime"`
	Cinema            Cinema        `json:"cinema" yaml:"cinema"`
	TicketLink        *string       `json:"ticket_link,omitempty" yaml:"ticket_link,omitempty"`
	Going             GoingStatus   `json:"going,omitempty" yaml:"going,omitempty"`
	SeatRow           *string       `json:"seat_row,omitempty" yaml:"seat_row,omitempty"`
	SeatNumber        *string       `json:"seat_number,omitempty" yaml:"seat_number,omitempty"`
	FriendsGoing      []User        `json:"friends_going" yaml:"friends_going"`
	FriendsInterested []User        `json:"friends_interested" yaml:"friends_interested"`
	Movie             *MovieSummary `json:"movie,omitempty" yaml:"movie,omitempty"`
}

type Movie struct {
	ID                int        `json:"id" yaml:"id"`
	Title             string     `json:"title" yaml:"title"`
	OriginalTitle     *string    `json:"original_title,omitempty" yaml:"original_title,omitempty"`
	ReleaseYear       *int       `json:"release_year,omitempty" yaml:"release_year,omitempty"`
	PosterLink        *string    `json:"poster_link,omitempty" yaml:"poster_link,omitempty"`
	LetterboxdSlug    *string    `json:"letterboxd_slug,omitempty" yaml:"letterboxd_slug,omitempty"`
	Directors         []string   `json:"directors" yaml:"directors"`
	Showtimes         []Showtime `json:"showtimes" yaml:"showtimes"`
	TotalShowtimes    int        `json:"total_showtimes" yaml:"total_showtimes"`
	FriendsGoingCount int        `json:"friends_going_count" yaml:"friends_going_count"`
	Going             bool       `json:"going" yaml:"going"`
}

// FilterPayload is the serialized form of a filter selection, stored in presets.
type FilterPayload struct {
	CinemaIDs     []int       `json:"cinema_ids,omitempty" yaml:"cinema_ids,omitempty"`
	Days          []string    `json:"days,omitempty" yaml:"days,omitempty"`
	TimeRanges    []string    `json:"time_ranges,omitempty" yaml:"time_ranges,omitempty"`
	Status        GoingStatus `json:"status,omitempty" yaml:"status,omitempty"`
	WatchlistOnly bool        `json:"watchlist_only,omitempty" yaml:"watchlist_only,omitempty"`
	Query         string      `json:"query,omitempty" yaml:"query,omitempty"`
}

type FilterPreset struct {
	ID         int           `json:"id" yaml:"id"`
	Name       string        `json:"name" yaml:"name"`
	Scope      string        `json:"scope" yaml:"scope"`
	Filters    FilterPayload `json:"filters" yaml:"filters"`
	IsFavorite bool          `json:"is_favorite" yaml:"is_favorite"`
	IsDefault  bool          `json:"is_default" yaml:"is_default"`
}

type CinemaPreset struct {
	ID         int    `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	CinemaIDs  []int  `json:"cinema_ids" yaml:"cinema_ids"`
	IsFavorite bool   `json:"is_favorite" yaml:"is_favorite"`
	IsDefault  bool   `json:"is_default" yaml:"is_default"`
}

// Preset accessors let the ordering code treat both preset kinds alike.

func (p FilterPreset) PresetID() int      { return p.ID }
func (p FilterPreset) PresetName() string { return p.Name }
func (p FilterPreset) Favorite() bool     { return p.IsFavorite }
func (p FilterPreset) Default() bool      { return p.IsDefault }

func (p CinemaPreset) PresetID() int      { return p.ID }
func (p CinemaPreset) PresetName() string { return p.Name }
func (p CinemaPreset) Favorite() bool     { return p.IsFavorite }
func (p CinemaPreset) Default() bool      { return p.IsDefault }

type SavePresetRequest struct {
	Name       string        `json:"name"`
	Scope      string        `json:"scope,omitempty"`
	Filters    FilterPayload `json:"filters"`
	IsFavorite bool          `json:"is_favorite"`
}

type SaveCinemaPresetRequest struct {
	Name       string `json:"name"`
	CinemaIDs  []int  `json:"cinema_ids"`
	IsFavorite bool   `json:"is_favorite"`
}

// PageRequest is the offset window of one page. SnapshotTime pins page boundaries
// for time-ordered feeds while the underlying data changes.
type PageRequest struct {
	Limit        int       `json:"limit"`
	Offset       int       `json:"offset"`
	SnapshotTime time.Time `json:"snapshot_time"`
}

type ShowtimesQuery struct {
	Page          PageRequest `json:"page"`
	CinemaIDs     []int       `json:"cinema_ids,omitempty"`
	Days          []string    `json:"days,omitempty"`
	TimeMin       string      `json:"time_min,omitempty"`
	TimeMax       string      `json:"time_max,omitempty"`
	Status        GoingStatus `json:"status,omitempty"`
	WatchlistOnly bool        `json:"watchlist_only,omitempty"`
}

type MoviesQuery struct {
	ShowtimesQuery
	Query         string `json:"query,omitempty"`
	ShowtimeLimit int    `json:"showtime_limit,omitempty"`
}

type StatusUpdate struct {
	Going      GoingStatus `json:"going_status"`
	SeatRow    *string     `json:"seat_row,omitempty"`
	SeatNumber *string     `json:"seat_number,omitempty"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// InfiniteData is the cached shape of a paginated list: one slice per fetched page
// and the offset each page was requested with.
type InfiniteData[T any] struct {
	Pages      [][]T `json:"pages"`
	PageParams []int `json:"page_params"`
}

func (d InfiniteData[T]) Flatten() []T {
	var n int
	for _, p := range d.Pages {
		n += len(p)
	}
	out := make([]T, 0, n)
	for _, p := range d.Pages {
		out = append(out, p...)
	}
	return out
}

type EnrichedMovie struct {
	Source Movie             `json:"movie" yaml:"movie"`
	Extra  MovieInfo         `json:"extra" yaml:"extra"`
	Audits []EnrichmentAudit `json:"audits,omitempty" yaml:"audits,omitempty"`
}

type EnrichmentResult uint8

const (
	EnrichmentResultSuccess EnrichmentResult = iota
	EnrichmentResultFailure
	EnrichmentResultPartialSuccess
)

type EnrichmentAudit struct {
	Result      EnrichmentResult `json:"result" yaml:"result"`
	Details     string           `json:"details" yaml:"details"`
	At          time.Time        `json:"at" yaml:"at"`
	Annotations map[string]any   `json:"annotations" yaml:"annotations"`
}

type MovieInfo struct {
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Tagline  string `json:"tagline,omitempty" yaml:"tagline,omitempty"`
	Overview string `json:"overview,omitempty" yaml:"overview,omitempty"`
	Links    []Link `json:"links,omitempty" yaml:"links,omitempty"`
}

type Link struct {
	Href    string `json:"href" yaml:"href"`
	Display string `json:"display" yaml:"display"`
}
