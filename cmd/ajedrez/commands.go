package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
	"github.com/misaelnieto/itm-2025-soa-u5/pkg/ajedrezdto"
)

func commands(out io.Writer) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "init",
			Usage: "Initialize the database",
			Action: withRuntime(func(ctx context.Context, c *cli.Command, rt *runtime) error {
				fmt.Fprintln(out, "Initializing database...")
				migrated, err := rt.backend.Migrate(ctx)
				if err != nil {
					return fmt.Errorf("initialize database: %w", err)
				}
				data := map[string]string{"Driver": rt.cfg.StoreDriver}
				if !migrated {
					fmt.Fprintln(out, rt.cat.RenderOr("init.skipped", data, "Nothing to initialize"))
					return nil
				}
				fmt.Fprintln(out, rt.cat.RenderOr("init.done", data, "Database initialized"))
				return nil
			}),
		},
		{
			Name:  "create_session",
			Usage: "Creates a new chess session",
			Flags: []cli.Flag{
				&cli.Int64Flag{Name: "white", Aliases: []string{"w"}, Value: 123, Usage: "white player id"},
				&cli.Int64Flag{Name: "black", Aliases: []string{"b"}, Value: 123, Usage: "black player id"},
			},
			Action: withRuntime(func(ctx context.Context, c *cli.Command, rt *runtime) error {
				s, err := rt.backend.Create(ctx, c.Int64("white"), c.Int64("black"))
				if err != nil {
					return fmt.Errorf("create session: %w", err)
				}
				fmt.Fprintln(out, rt.cat.RenderOr("session.created",
					map[string]any{"ID": s.ID, "White": s.WhitePlayer, "Black": s.BlackPlayer},
					fmt.Sprintf("New chess session: %d", s.ID)))
				return nil
			}),
		},
		{
			Name:  "list",
			Usage: "Lists the chess sessions",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "maximum sessions to show (default $SESSION_LIST_LIMIT)"},
			},
			Action: withRuntime(func(ctx context.Context, c *cli.Command, rt *runtime) error {
				list, err := rt.backend.List(ctx, c.Int("limit"))
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
				if len(list) == 0 {
					fmt.Fprintln(out, rt.cat.RenderOr("session.empty", nil, "No sessions found"))
					return nil
				}
				writeSessionTable(out, list)
				return nil
			}),
		},
		{
			Name:  "make_move",
			Usage: "Make a move",
			Flags: []cli.Flag{
				sessionFlag(),
				&cli.Int64Flag{Name: "player", Aliases: []string{"p"}, Usage: "id of the player making the move", Required: true},
				&cli.StringFlag{Name: "move", Aliases: []string{"m"}, Usage: "the move in algebraic notation (e4, Nf3, e2e4)", Required: true},
			},
			Action: withRuntime(func(ctx context.Context, c *cli.Command, rt *runtime) error {
				req := domain.MoveRequest{
					SessionID: c.Int64("session"),
					PlayerID:  c.Int64("player"),
					Move:      c.String("move"),
				}
				resp, err := rt.backend.Move(ctx, req)
				if err != nil {
					return fmt.Errorf("make move: %w", err)
				}
				fmt.Fprintln(out, rt.cat.Outcome(req, resp))
				if !resp.OK() {
					return errRejected
				}
				return nil
			}),
		},
		{
			Name:  "inspect",
			Usage: "Inspect the current state of a chess session",
			Flags: []cli.Flag{sessionFlag()},
			Action: withRuntime(func(ctx context.Context, c *cli.Command, rt *runtime) error {
				id := c.Int64("session")
				view, err := rt.backend.Inspect(ctx, id)
				if errors.Is(err, errSessionNotFound) {
					fmt.Fprintln(out, rt.cat.RenderOr("session.not_found", map[string]any{"ID": id}, "Session not found"))
					return errRejected
				}
				if err != nil {
					return fmt.Errorf("inspect session %d: %w", id, err)
				}
				writeSessionView(out, view)
				fmt.Fprintln(out, rt.cat.RenderOr("session.turn",
					map[string]any{"Color": view.ActiveColor, "FullMove": view.FullMove}, ""))
				return nil
			}),
		},
		{
			Name:  "board",
			Usage: "Render the board of a session as PNG",
			Flags: []cli.Flag{
				sessionFlag(),
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file", Value: "board.png"},
				&cli.BoolFlag{Name: "black", Usage: "draw the board from Black's side"},
			},
			Action: withRuntime(func(ctx context.Context, c *cli.Command, rt *runtime) error {
				id := c.Int64("session")
				img, err := rt.backend.BoardPNG(ctx, id, c.Bool("black"))
				if errors.Is(err, errSessionNotFound) {
					fmt.Fprintln(out, rt.cat.RenderOr("session.not_found", map[string]any{"ID": id}, "Session not found"))
					return errRejected
				}
				if err != nil {
					return fmt.Errorf("render board: %w", err)
				}
				path := c.String("out")
				if err := os.WriteFile(path, img, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintf(out, "Wrote %s (%d bytes)\n", path, len(img))
				return nil
			}),
		},
		{
			Name:  "dump_openapi",
			Usage: "Prints the OpenAPI document of the running server as JSON",
			Action: func(ctx context.Context, c *cli.Command) error {
				client, err := clientFor(c)
				if err != nil {
					return err
				}
				doc, err := client.OpenAPI(ctx)
				if err != nil {
					return fmt.Errorf("fetch openapi from %s: %w", client.BaseURL(), err)
				}
				fmt.Fprintln(out, strings.TrimSpace(string(doc)))
				return nil
			},
		},
		{
			Name:  "echo",
			Usage: "Send messages through the websocket echo relay",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{Name: "message", Aliases: []string{"m"}, Value: []string{"ping"}},
				&cli.StringFlag{Name: "path", Value: "/echo"},
			},
			Action: func(ctx context.Context, c *cli.Command) error {
				client, err := clientFor(c)
				if err != nil {
					return err
				}
				msgs := c.StringSlice("message")
				rtts, err := client.Echo(ctx, c.String("path"), msgs)
				for i, d := range rtts {
					fmt.Fprintf(out, "%d\t%s\t%s\n", i+1, msgs[i], d.Round(time.Microsecond))
				}
				if err != nil {
					return fmt.Errorf("echo: %w", err)
				}
				return nil
			},
		},
	}
}

func sessionFlag() cli.Flag {
	return &cli.Int64Flag{Name: "session", Aliases: []string{"s"}, Usage: "id of the chess session", Required: true}
}

func withRuntime(fn func(ctx context.Context, c *cli.Command, rt *runtime) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		rt, err := openRuntime(ctx, c)
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(ctx, c, rt)
	}
}

func writeSessionTable(out io.Writer, list []ajedrezdto.Session) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHITE\tBLACK\tSTATE\tVERSION\tUPDATED\tFEN")
	for _, s := range list {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%d\t%s\t%s\n",
			s.ID, s.WhitePlayer, s.BlackPlayer, s.State, s.Version, formatTime(s.Updated), s.FEN)
	}
	_ = tw.Flush()
}

// writeSessionView prints one field per row, then the board diagram.
func writeSessionView(out io.Writer, v *ajedrezdto.SessionView) {
	s := v.Session
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"id", strconv.FormatInt(s.ID, 10)},
		{"white_player", strconv.FormatInt(s.WhitePlayer, 10)},
		{"black_player", strconv.FormatInt(s.BlackPlayer, 10)},
		{"state", s.State},
		{"fen_state", s.FEN},
		{"version", strconv.FormatInt(s.Version, 10)},
		{"created", formatTime(s.Created)},
		{"updated", formatTime(s.Updated)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	_ = tw.Flush()
	if pgn := strings.TrimSpace(s.PGN); pgn != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, pgn)
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, v.Board)
	if !strings.HasSuffix(v.Board, "\n") {
		fmt.Fprintln(out)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
