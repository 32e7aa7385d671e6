package apitest

import (
	"time"

	"github.com/drewfead/moviebuddy/internal"
)

// Seed data shared by tests across packages.
const (
	Password = "correct-horse"

	AliceID = 1
	BobID   = 2
	CarolID = 3
	DaveID  = 4

	EyeID       = 1
	KriterionID = 2
	LabID       = 3

	StalkerID     = 101
	ParisTexasID  = 102
	PlaytimeID    = 103
	PerfectDaysID = 104
)

// Now is the seeded clock: Saturday 17 October 2026, noon in Amsterdam.
var Now = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

// Seeded returns a backend holding a small fixed catalogue and social graph.
//
//	Alice is friends with Bob and Carol and has a pending request from Dave.
//	Alice is INTERESTED in showtime 1001 and GOING to 1004.
//	Bob is GOING to 1001 and 1003; Carol is INTERESTED in 1005 and GOING to 1006.
func Seeded(opts ...Option) *Backend {
	b := New(append([]Option{WithClock(func() time.Time { return Now })}, opts...)...)

	for _, u := range []struct {
		user     internal.User
		username string
	}{
		{internal.User{ID: AliceID, DisplayName: "Alice"}, "alice"},
		{internal.User{ID: BobID, DisplayName: "Bob"}, "bob"},
		{internal.User{ID: CarolID, DisplayName: "Carol"}, "carol"},
		{internal.User{ID: DaveID, DisplayName: "Dave"}, "dave"},
	} {
		b.AddUser(u.user, u.username, Password)
	}

	amsterdam := internal.City{ID: 1, Name: "Amsterdam"}
	cinemas := map[int]internal.Cinema{
		EyeID:       {ID: EyeID, Name: "Eye Filmmuseum", City: amsterdam, BadgeBgColor: "#000000", BadgeTextColor: "#ffffff", URL: strp("https://www.eyefilm.nl")},
		KriterionID: {ID: KriterionID, Name: "Kriterion", City: amsterdam, BadgeBgColor: "#c8102e", BadgeTextColor: "#ffffff"},
		LabID:       {ID: LabID, Name: "LAB111", City: amsterdam, BadgeBgColor: "#ffd100", BadgeTextColor: "#000000"},
	}
	for _, id := range []int{EyeID, KriterionID, LabID} {
		b.AddCinema(cinemas[id])
	}

	b.AddMovie(internal.Movie{ID: StalkerID, Title: "Stalker", OriginalTitle: strp("Сталкер"), ReleaseYear: intp(1979), Directors: []string{"Andrei Tarkovsky"}, LetterboxdSlug: strp("stalker")})
	b.AddMovie(internal.Movie{ID: ParisTexasID, Title: "Paris, Texas", ReleaseYear: intp(1984), Directors: []string{"Wim Wenders"}})
	b.AddMovie(internal.Movie{ID: PlaytimeID, Title: "Playtime", ReleaseYear: intp(1967), Directors: []string{"Jacques Tati"}})
	b.AddMovie(internal.Movie{ID: PerfectDaysID, Title: "Perfect Days", ReleaseYear: intp(2023), Directors: []string{"Wim Wenders"}})

	at := func(day, hour, minute int) time.Time {
		return time.Date(2026, 10, day, hour, minute, 0, 0, time.UTC)
	}
	for _, s := range []struct {
		id, movie, cinema int
		when              time.Time
	}{
		{1001, StalkerID, EyeID, at(17, 18, 30)},
		{1002, StalkerID, KriterionID, at(18, 12, 0)},
		{1003, ParisTexasID, EyeID, at(17, 20, 0)},
		{1004, ParisTexasID, LabID, at(19, 17, 0)},
		{1005, PlaytimeID, KriterionID, at(18, 8, 0)},
		{1006, PerfectDaysID, LabID, at(20, 19, 0)},
		{1007, StalkerID, LabID, at(21, 16, 0)},
	} {
		b.AddShowtime(s.movie, internal.Showtime{
			ID:         s.id,
			Datetime:   s.when,
			Cinema:     cinemas[s.cinema],
			TicketLink: strp("https://tickets.example/" + s.when.Format("20060102-1504")),
		})
	}

	b.MakeFriends(AliceID, BobID)
	b.MakeFriends(AliceID, CarolID)
	b.AddFriendRequest(DaveID, AliceID)

	b.Select(AliceID, 1001, internal.GoingStatusInterested)
	b.Select(AliceID, 1004, internal.GoingStatusGoing)
	b.Select(BobID, 1001, internal.GoingStatusGoing)
	b.Select(BobID, 1003, internal.GoingStatusGoing)
	b.Select(CarolID, 1005, internal.GoingStatusInterested)
	b.Select(CarolID, 1006, internal.GoingStatusGoing)

	b.SetWatchlist(AliceID, StalkerID, PlaytimeID)
	return b
}
