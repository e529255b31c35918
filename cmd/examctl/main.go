// Command examctl is a terminal client for the exam platform: log in, list
// exams, take a timed exam and review or grade submissions.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanixMP/Azmooneh/internal/auth"
	"github.com/DanixMP/Azmooneh/internal/client"
	"github.com/DanixMP/Azmooneh/internal/config"
	"github.com/DanixMP/Azmooneh/internal/logger"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/response"
	"github.com/DanixMP/Azmooneh/internal/validator"
	"github.com/rs/zerolog"
)

const usage = `usage: examctl <command> [arguments]

commands:
  login [-professor] [-user name]   log in and store tokens
  logout                            forget stored tokens
  whoami                            show the logged-in user
  exams                             list visible exams
  take <exam-id>                    take an exam with a live countdown
  sessions                          list sessions
  review <session-id>               reconcile a submission (professor)
  grade [-auto] <session-id> [answer-id=marks ...]
                                    set marks on a submission (professor)
`

// app carries what every subcommand needs.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	api *client.Client
	in  *bufio.Reader
	out io.Writer
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(validator.Struct); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg: cfg,
		log: log,
		api: client.New(cfg.APIURL, client.WithTimeout(cfg.HTTPTimeout), client.WithLogger(log)),
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "login":
		err = a.login(ctx, args)
	case "logout":
		err = a.logout()
	case "whoami":
		err = a.whoami(ctx)
	case "exams":
		err = a.exams(ctx)
	case "take":
		err = a.take(ctx, args)
	case "sessions":
		err = a.sessions(ctx)
	case "review":
		err = a.review(ctx, args)
	case "grade":
		err = a.grade(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Debug().Err(err).Str("command", cmd).Msg("Command failed")
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

// authed returns a client acting as the stored user. Rotated tokens are
// written back to the token file.
func (a *app) authed() (*client.Client, model.User, error) {
	pair, err := auth.LoadFile(a.cfg.TokenFile)
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			return nil, model.User{}, errors.New("not logged in, run: examctl login")
		}
		return nil, model.User{}, err
	}

	src := auth.NewRefreshing(pair.Access, pair.Refresh, a.api, auth.OnRotate(func(access, refresh string) {
		rotated := pair
		rotated.Access, rotated.Refresh = access, refresh
		if err := auth.SaveFile(a.cfg.TokenFile, rotated); err != nil {
			a.log.Warn().Err(err).Msg("Failed to save refreshed tokens")
		}
	}))
	return a.api.As(src), pair.User, nil
}

// describe renders API errors with their field details.
func describe(err error) string {
	var apiErr *response.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	msg := apiErr.Message
	for k, v := range apiErr.Fields {
		msg += fmt.Sprintf("\n  %s: %s", k, v)
	}
	if apiErr.Retryable() {
		msg += "\n  (temporary problem, try again)"
	}
	return msg
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
