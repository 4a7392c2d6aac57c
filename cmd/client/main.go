/*
Package main is a command-line front end for the donorlink session client.

It keeps the session in a local SQLite file, so a sign-in survives between
invocations exactly as it would between app launches. Screen navigation is
printed instead of rendered.

Usage:

	donorlink <command> [flags]

Commands: status, signup, login, logout, open, set-image, recover,
leaderboard, donations.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"donorlink/internal/client/api"
	"donorlink/internal/client/clienterr"
	"donorlink/internal/client/credstore"
	"donorlink/internal/client/notice"
	"donorlink/internal/client/pending"
	"donorlink/internal/client/session"
	"donorlink/internal/configs"
	"donorlink/internal/pkg/logx"
)

const usage = `usage: donorlink <command> [flags]

commands:
  status                      show who is signed in
  signup                      create an account and sign in
  login                       sign in
  logout                      sign out
  open -path P                open a screen that needs an account
  set-image -url U | -clear   set or clear the profile image
  recover                     reset a forgotten password
  leaderboard                 show the top donors
  donations                   list your donations
`

type app struct {
	cfg     *configs.ClientConfig
	api     *api.Client
	manager *session.Manager
	sched   *notice.ManualScheduler
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := configs.LoadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logx.InitGlobalLogger(cfg.Environment == "development", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Each component tags its own log lines.
	base := *logx.Logger()

	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o700); err != nil {
		logx.Fatal(err, "Failed to create store directory", "path", cfg.StorePath)
	}
	store, err := credstore.Open(ctx, cfg.StorePath, base)
	if err != nil {
		logx.Fatal(err, "Failed to open credential store", "path", cfg.StorePath)
	}
	defer store.Close()

	client, err := api.New(cfg.APIBaseURL, api.Options{
		Timeout:              cfg.RequestTimeout,
		Logger:               base,
		LegacyRecoveryRoutes: cfg.LegacyRecoveryRoutes,
	})
	if err != nil {
		logx.Fatal(err, "Invalid API base URL", "url", cfg.APIBaseURL)
	}

	// Notices are flushed when the command finishes instead of on a wall clock.
	sched := &notice.ManualScheduler{}
	notifier := notice.New(sched, base)
	notifier.OnChange(func(n notice.Notice) {
		if n.Visible {
			fmt.Println(n.Message)
		}
	})

	manager := session.New(session.Deps{
		API:      client,
		Store:    store,
		Queue:    pending.New(store, base),
		Notifier: notifier,
		Navigator: session.NavigatorFunc(func(path string, params map[string]string) {
			if len(params) > 0 {
				fmt.Printf("-> %s %v\n", path, params)
				return
			}
			fmt.Printf("-> %s\n", path)
		}),
		Logger: base,
		Options: session.Options{
			SignInRoute:   cfg.SignInRoute,
			SignOutRoute:  cfg.SignOutRoute,
			RedirectDelay: cfg.RedirectDelay,
			SignOutDelay:  cfg.SignOutDelay,
		},
	})

	if _, err := manager.Restore(ctx); err != nil {
		logx.Warn("Could not restore session", "error", err.Error())
	}

	a := &app{cfg: cfg, api: client, manager: manager, sched: sched}
	err = a.run(ctx, os.Args[1], os.Args[2:])
	sched.Fire()
	notifier.Close()

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, userMessage(err))
		os.Exit(1)
	}
}

func userMessage(err error) string {
	var ce *clienterr.Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "status":
		return a.status()
	case "signup":
		return a.signup(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.manager.Logout(ctx)
	case "open":
		return a.open(ctx, args)
	case "set-image":
		return a.setImage(ctx, args)
	case "recover":
		return a.recoverPassword(ctx, args)
	case "leaderboard":
		return a.leaderboard(ctx, args)
	case "donations":
		return a.donations(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) status() error {
	snap := a.manager.Snapshot()
	if !snap.IsAuthenticated() {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Printf("Signed in as %s (%s), %d points.\n", snap.User.DisplayName(), snap.User.Username, snap.User.Points)
	if snap.User.ProfileImage != nil {
		fmt.Printf("Profile image: %s\n", *snap.User.ProfileImage)
	}
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	var req api.SignupRequest
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Password, "password", "", "password")
	fs.StringVar(&req.Firstname, "firstname", "", "first name")
	fs.StringVar(&req.Lastname, "lastname", "", "last name")
	fs.StringVar(&req.SecurityQuestion, "question", "", "security question")
	fs.StringVar(&req.SecurityAnswer, "answer", "", "security answer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := a.manager.SignUp(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("Welcome, %s!\n", u.DisplayName())
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := a.manager.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Welcome back, %s!\n", u.DisplayName())
	return nil
}

func (a *app) open(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	path := fs.String("path", "", "screen to open")
	message := fs.String("message", "Please sign in to continue.", "prompt shown when signed out")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("-path is required")
	}

	a.manager.RequireAuth(ctx, func() {
		fmt.Printf("-> %s\n", *path)
	}, *message, *path, nil)
	return nil
}

func (a *app) setImage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-image", flag.ContinueOnError)
	url := fs.String("url", "", "image URL or upload key")
	remove := fs.Bool("clear", false, "remove the profile image")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var image *string
	switch {
	case *remove:
	case *url != "":
		image = url
	default:
		return errors.New("either -url or -clear is required")
	}

	u, err := a.manager.UpdateProfileImage(ctx, image)
	if err != nil {
		return err
	}
	if u.ProfileImage == nil {
		fmt.Println("Profile image removed.")
	} else {
		fmt.Printf("Profile image set to %s\n", *u.ProfileImage)
	}
	return nil
}

func (a *app) recoverPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recover", flag.ContinueOnError)
	username := fs.String("username", "", "username")
	answer := fs.String("answer", "", "answer to the security question; omit to only show the question")
	newPassword := fs.String("new-password", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow := a.manager.Recovery(ctx)
	question, err := flow.RequestReset(ctx, *username)
	if err != nil {
		return err
	}
	fmt.Printf("Security question: %s\n", question)
	if *answer == "" {
		return nil
	}

	if err := flow.VerifyAnswer(ctx, *answer); err != nil {
		return err
	}
	msg, err := flow.ResetPassword(ctx, *newPassword)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func (a *app) leaderboard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("leaderboard", flag.ContinueOnError)
	limit := fs.Int("limit", 10, "number of donors to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	leaders, err := a.api.Leaderboard(ctx, *limit)
	if err != nil {
		return err
	}
	for _, l := range leaders {
		fmt.Printf("%3d. %-20s %d\n", l.Rank, l.Username, l.Points)
	}
	return nil
}

func (a *app) donations(ctx context.Context) error {
	var list []api.Donation
	var err error
	ok := a.manager.RequireAuth(ctx, func() {
		list, err = a.api.ListDonations(ctx, a.manager.Snapshot().Token)
	}, "Please sign in to see your donations.", "/donations", nil)
	if !ok || err != nil {
		return err
	}
	for _, d := range list {
		fmt.Printf("%s  %-10s %s\n", d.ID, d.Status, d.Title)
	}
	return nil
}
