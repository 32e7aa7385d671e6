package root

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/drewfead/moviebuddy/internal/filters"
	"github.com/drewfead/moviebuddy/internal/services"
)

// friendChange is a friend mutation that takes a user id and reports what it did. call
// is a method expression because the service only exists once the root Before hook ran.
func friendChange(a *app, name, usage, done string, call func(f *services.Friends, ctx context.Context, userID int) error) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "USER_ID",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := intArg(cmd, 0, "user id")
			if err != nil {
				return err
			}
			if err := call(a.friends, ctx, id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out.errOut(), "%s %d\n", done, id)
			return err
		},
	}
}

func friendsCommand(a *app) *cli.Command {
	list := func(ctx context.Context, cmd *cli.Command) error {
		friends, err := a.friends.List(ctx)
		if err != nil {
			return err
		}
		return printList(a.out, friends, userTemplate)
	}
	return &cli.Command{
		Name:   "friends",
		Usage:  "manage friends and friend requests",
		Action: list,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list my friends",
				Action: list,
			},
			{
				Name:  "requests",
				Usage: "list pending friend requests",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "sent", Usage: "requests I sent instead of ones I received"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					direction := "received"
					if cmd.Bool("sent") {
						direction = "sent"
					}
					users, err := a.friends.Requests(ctx, direction)
					if err != nil {
						return err
					}
					return printList(a.out, users, userTemplate)
				},
			},
			{
				Name:      "search",
				Usage:     "find users by name",
				ArgsUsage: "QUERY",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
					if query == "" {
						return fmt.Errorf("missing search query")
					}
					users, err := a.friends.Search(ctx, query)
					if err != nil {
						return err
					}
					return printList(a.out, users, searchTemplate)
				},
			},
			friendChange(a, "add", "send a friend request", "sent friend request to", (*services.Friends).Send),
			friendChange(a, "accept", "accept a friend request", "accepted friend request from", (*services.Friends).Accept),
			friendChange(a, "decline", "decline a friend request", "declined friend request from", (*services.Friends).Decline),
			friendChange(a, "cancel", "cancel a friend request I sent", "cancelled friend request to", (*services.Friends).Cancel),
			friendChange(a, "remove", "unfriend someone", "removed friend", (*services.Friends).Remove),
			{
				Name:      "showtimes",
				Usage:     "list a friend's plans",
				ArgsUsage: "USER_ID",
				Flags:     append(filterFlags(filters.UserAgenda), pageFlags()...),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := intArg(cmd, 0, "user id")
					if err != nil {
						return err
					}
					p, err := a.resolveFilters(ctx, cmd, filters.UserAgenda)
					if err != nil {
						return err
					}
					list, err := loadPages(ctx, cmd, a.catalog.UserShowtimes(id, p))
					if err != nil {
						return fmt.Errorf("list showtimes of user %d: %w", id, err)
					}
					return printList(a.out, list, showtimeTemplate)
				},
			},
		},
	}
}

func watchlistCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "watchlist",
		Usage: "my Letterboxd watchlist",
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "pull my watchlist again so --watchlist filters are current",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.watchlist.Sync(ctx); err != nil {
						return err
					}
					_, err := fmt.Fprintln(a.out.errOut(), "watchlist synced")
					return err
				},
			},
		},
	}
}
