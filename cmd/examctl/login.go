package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/DanixMP/Azmooneh/internal/auth"
	"github.com/DanixMP/Azmooneh/internal/model"
	"golang.org/x/term"
)

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	professor := fs.Bool("professor", false, "log in as a professor")
	username := fs.String("user", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	if *username == "" {
		fmt.Fprint(a.out, "Username: ")
		line, _ := a.in.ReadString('\n')
		*username = strings.TrimSpace(line)
	}
	if *username == "" {
		return errors.New("username is required")
	}

	fmt.Fprint(a.out, "Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(a.out) // Newline after password input
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	req := model.LoginRequest{Username: *username, Password: string(bytePassword)}
	var pair *model.TokenPair
	if *professor {
		pair, err = a.api.ProfessorLogin(ctx, req)
	} else {
		pair, err = a.api.StudentLogin(ctx, req)
	}
	if err != nil {
		return err
	}

	if err := auth.SaveFile(a.cfg.TokenFile, *pair); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", pair.User.DisplayName(), pair.User.Role)
	return nil
}

func (a *app) logout() error {
	if err := os.Remove(a.cfg.TokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	api, _, err := a.authed()
	if err != nil {
		return err
	}
	u, err := api.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s), id %d\n", u.DisplayName(), u.Role, u.ID)
	return nil
}
