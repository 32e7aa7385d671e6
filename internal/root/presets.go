package root

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/filters"
)

// everyFilter offers every filter flag, for commands whose screen is picked by --screen.
var everyFilter = filters.Screen{
	Cinemas: true, Days: true, TimeRanges: true, Status: true, WatchlistOnly: true, Query: true,
}

// screenFlag is set on the presets command and inherited by its subcommands.
func screenFlag() cli.Flag {
	names := make([]string, 0, len(filters.Screens()))
	for _, s := range filters.Screens() {
		names = append(names, s.Name)
	}
	return &cli.StringFlag{
		Name:  "screen",
		Usage: "which screen's presets: " + strings.Join(names, ", "),
		Value: filters.MoviesList.Name,
	}
}

func screenOf(cmd *cli.Command) (filters.Screen, error) {
	s, ok := filters.Lookup(cmd.String("screen"))
	if !ok {
		return filters.Screen{}, fmt.Errorf("unknown screen %q", cmd.String("screen"))
	}
	return s, nil
}

func intArgs(cmd *cli.Command, name string) ([]int, error) {
	out := make([]int, 0, cmd.Args().Len())
	for _, raw := range cmd.Args().Slice() {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: %w", name, part, err)
			}
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("missing %s arguments", name)
	}
	return out, nil
}

func deltaArg(cmd *cli.Command) (int, error) {
	raw := cmd.Args().Get(1)
	switch raw {
	case "up":
		return -1, nil
	case "down":
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid move %q (use up, down or a signed number)", raw)
	}
	return n, nil
}

func cinemasCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "cinemas",
		Usage: "list cinemas",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "preferred", Usage: "only my preferred cinemas"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cinemas, err := a.cinemas.List(ctx)
			if err != nil {
				return err
			}
			if cmd.Bool("preferred") {
				ids, err := a.cinemas.Preferred(ctx)
				if err != nil {
					return err
				}
				if cinemas, err = a.cinemas.Lookup(ctx, ids); err != nil {
					return err
				}
			}
			return printList(a.out, cinemas, cinemaTemplate)
		},
		Commands: []*cli.Command{
			{
				Name:      "prefer",
				Usage:     "set my preferred cinemas",
				ArgsUsage: "CINEMA_ID...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					ids, err := intArgs(cmd, "cinema id")
					if err != nil {
						return err
					}
					saved, err := a.cinemas.SetPreferred(ctx, ids)
					if err != nil {
						return err
					}
					cinemas, err := a.cinemas.Lookup(ctx, saved)
					if err != nil {
						return err
					}
					return printList(a.out, cinemas, cinemaTemplate)
				},
			},
		},
	}
}

func presetsCommand(a *app) *cli.Command {
	list := func(ctx context.Context, cmd *cli.Command) error {
		screen, err := screenOf(cmd)
		if err != nil {
			return err
		}
		items, err := a.presets.Filters(ctx, screen.Scope)
		if err != nil {
			return err
		}
		return printList(a.out, items, filterPresetTemplate)
	}
	return &cli.Command{
		Name:   "presets",
		Usage:  "saved filter presets",
		Flags:  []cli.Flag{screenFlag()},
		Action: list,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list presets in display order",
				Action: list,
			},
			{
				Name:      "save",
				Usage:     "save filters as a preset",
				ArgsUsage: "NAME",
				Flags:     filterFlags(everyFilter),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					screen, err := screenOf(cmd)
					if err != nil {
						return err
					}
					f, err := a.sessionFilters(ctx, cmd, screen)
					if err != nil {
						return err
					}
					saved, err := f.SaveAsPreset(ctx, strings.Join(cmd.Args().Slice(), " "), cmd.Bool("favorite"))
					if err != nil {
						return err
					}
					return printOne(a.out, saved, filterPresetTemplate)
				},
			},
			{
				Name:      "favorite",
				Usage:     "toggle the favorite preset",
				ArgsUsage: "PRESET_ID",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					screen, err := screenOf(cmd)
					if err != nil {
						return err
					}
					id, err := intArg(cmd, 0, "preset id")
					if err != nil {
						return err
					}
					p, err := a.presets.ToggleFilterFavorite(ctx, screen.Scope, id)
					if err != nil {
						return err
					}
					return printOne(a.out, p, filterPresetTemplate)
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a preset",
				ArgsUsage: "PRESET_ID",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					screen, err := screenOf(cmd)
					if err != nil {
						return err
					}
					id, err := intArg(cmd, 0, "preset id")
					if err != nil {
						return err
					}
					if err := a.presets.DeleteFilter(ctx, screen.Scope, id); err != nil {
						return err
					}
					return list(ctx, cmd)
				},
			},
			{
				Name:      "reorder",
				Usage:     "set the display order",
				ArgsUsage: "PRESET_ID...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					screen, err := screenOf(cmd)
					if err != nil {
						return err
					}
					ids, err := intArgs(cmd, "preset id")
					if err != nil {
						return err
					}
					if err := a.presets.ReorderFilters(ctx, screen.Scope, ids); err != nil {
						return err
					}
					return list(ctx, cmd)
				},
			},
			{
				Name:      "move",
				Usage:     "move a preset up or down",
				ArgsUsage: "PRESET_ID up|down|N",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					screen, err := screenOf(cmd)
					if err != nil {
						return err
					}
					id, err := intArg(cmd, 0, "preset id")
					if err != nil {
						return err
					}
					delta, err := deltaArg(cmd)
					if err != nil {
						return err
					}
					if err := a.presets.MoveFilter(ctx, screen.Scope, id, delta); err != nil {
						return err
					}
					return list(ctx, cmd)
				},
			},
		},
	}
}

func cinemaPresetsCommand(a *app) *cli.Command {
	list := func(ctx context.Context, cmd *cli.Command) error {
		items, err := a.presets.CinemaPresets(ctx)
		if err != nil {
			return err
		}
		return printList(a.out, items, cinemaPresetTemplate)
	}
	return &cli.Command{
		Name:   "cinema-presets",
		Usage:  "saved cinema selections",
		Action: list,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list cinema presets in display order",
				Action: list,
			},
			{
				Name:      "save",
				Usage:     "save a cinema selection",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.IntSliceFlag{Name: "cinema", Aliases: []string{"c"}, Usage: "cinema id; defaults to my preferred cinemas"},
					&cli.BoolFlag{Name: "favorite", Usage: "make it my favorite"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
					if name == "" {
						return fmt.Errorf("missing preset name")
					}
					ids := cmd.IntSlice("cinema")
					if !cmd.IsSet("cinema") {
						var err error
						if ids, err = a.cinemas.Preferred(ctx); err != nil {
							return err
						}
					}
					saved, err := a.presets.SaveCinemaPreset(ctx, internal.SaveCinemaPresetRequest{
						Name:       name,
						CinemaIDs:  slices.Clone(ids),
						IsFavorite: cmd.Bool("favorite"),
					})
					if err != nil {
						return err
					}
					return printOne(a.out, saved, cinemaPresetTemplate)
				},
			},
			{
				Name:      "favorite",
				Usage:     "toggle the favorite cinema preset",
				ArgsUsage: "PRESET_ID",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := intArg(cmd, 0, "preset id")
					if err != nil {
						return err
					}
					p, err := a.presets.ToggleCinemaFavorite(ctx, id)
					if err != nil {
						return err
					}
					return printOne(a.out, p, cinemaPresetTemplate)
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a cinema preset",
				ArgsUsage: "PRESET_ID",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := intArg(cmd, 0, "preset id")
					if err != nil {
						return err
					}
					if err := a.presets.DeleteCinemaPreset(ctx, id); err != nil {
						return err
					}
					return list(ctx, cmd)
				},
			},
			{
				Name:      "reorder",
				Usage:     "set the display order",
				ArgsUsage: "PRESET_ID...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					ids, err := intArgs(cmd, "preset id")
					if err != nil {
						return err
					}
					if err := a.presets.ReorderCinemaPresets(ctx, ids); err != nil {
						return err
					}
					return list(ctx, cmd)
				},
			},
			{
				Name:      "move",
				Usage:     "move a cinema preset up or down",
				ArgsUsage: "PRESET_ID up|down|N",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := intArg(cmd, 0, "preset id")
					if err != nil {
						return err
					}
					delta, err := deltaArg(cmd)
					if err != nil {
						return err
					}
					if err := a.presets.MoveCinemaPreset(ctx, id, delta); err != nil {
						return err
					}
					return list(ctx, cmd)
				},
			},
		},
	}
}
