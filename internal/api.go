package internal

import "context"

// The backend groups its endpoints the way the generated client does. Each group is
// consumed through its own narrow interface so callers depend only on what they use.

type MoviesService interface {
	ListMovies(ctx context.Context, query MoviesQuery) ([]Movie, error)
	GetMovie(ctx context.Context, movieID int, cinemaIDs []int) (Movie, error)
	GetMovieShowtimes(ctx context.Context, movieID int, query ShowtimesQuery) ([]Showtime, error)
}

type ShowtimesService interface {
	UpdateStatus(ctx context.Context, showtimeID int, update StatusUpdate) (Showtime, error)
}

type MeService interface {
	ListMyShowtimes(ctx context.Context, query ShowtimesQuery) ([]Showtime, error)
	GetCinemaSelections(ctx context.Context) ([]int, error)
	SetCinemaSelections(ctx context.Context, cinemaIDs []int) ([]int, error)

	ListFilterPresets(ctx context.Context, scope string) ([]FilterPreset, error)
	SaveFilterPreset(ctx context.Context, req SavePresetRequest) (FilterPreset, error)
	DeleteFilterPreset(ctx context.Context, presetID int) error
	FavoriteFilterPreset(ctx context.Context, presetID int) (FilterPreset, error)

	ListCinemaPresets(ctx context.Context) ([]CinemaPreset, error)
	SaveCinemaPreset(ctx context.Context, req SaveCinemaPresetRequest) (CinemaPreset, error)
	DeleteCinemaPreset(ctx context.Context, presetID int) error
	FavoriteCinemaPreset(ctx context.Context, presetID int) (CinemaPreset, error)

	SyncWatchlist(ctx context.Context) error
}

type FriendsService interface {
	ListFriends(ctx context.Context) ([]User, error)
	ListReceivedRequests(ctx context.Context) ([]User, error)
	ListSentRequests(ctx context.Context) ([]User, error)
	SendRequest(ctx context.Context, userID int) error
	AcceptRequest(ctx context.Context, userID int) error
	// DeclineRequest removes a pending request in either direction.
	DeclineRequest(ctx context.Context, userID int) error
	RemoveFriend(ctx context.Context, userID int) error
}

type UsersService interface {
	SearchUsers(ctx context.Context, query string) ([]UserWithFriendStatus, error)
	ListUserShowtimes(ctx context.Context, userID int, query ShowtimesQuery) ([]Showtime, error)
}

type LoginService interface {
	Login(ctx context.Context, username, password string) (Token, error)
}

type UtilsService interface {
	ListCinemas(ctx context.Context) ([]Cinema, error)
}

// Backend is every resource group together, as served by one API client.
type Backend interface {
	MoviesService
	ShowtimesService
	MeService
	FriendsService
	UsersService
	LoginService
	UtilsService
}

// Storage is a small key-value store on the local device.
type Storage interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}
