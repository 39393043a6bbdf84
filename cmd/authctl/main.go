// File: cmd/authctl/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log" // Standard log for startup failures before zap is active
	"os"
	"os/signal"
	"syscall"

	"firebase_auth_session/internal/auth"
	"firebase_auth_session/internal/config"
	"firebase_auth_session/internal/oauth"
	"firebase_auth_session/internal/user"

	"go.uber.org/zap"
)

const usage = `usage: authctl <command> [flags]

commands:
  register        create an account with email and password
  login           sign in with email and password
  google-signin   sign in with an existing Google-linked account
  google-signup   sign up (or in) with Google
  update-profile  change fields of the signed-in user's profile
  logout          sign out and clear the local session
  whoami          print the cached profile
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, cmdArgs := args[0], args[1:]

	// Flags are parsed before anything is wired so typos fail fast.
	op, err := parseCommand(cmd, cmdArgs, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, cleanup, err := initializeApp(cfg, printPrompter(stderr))
	if err != nil {
		log.Printf("FATAL: Failed to initialize application: %v", err)
		return 1
	}
	defer cleanup()

	if err := application.Start(ctx); err != nil {
		application.Logger.Error("Failed to start session", zap.Error(err))
		return 1
	}
	defer application.Stop()

	opCtx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	defer cancel()

	res := op(opCtx, application.Auth)
	if err := writeResult(stdout, res); err != nil {
		application.Logger.Error("Failed to write result", zap.Error(err))
		return 1
	}
	if !res.Success {
		return 1
	}
	return 0
}

// operation runs one command against the facade.
type operation func(ctx context.Context, svc *auth.Service) *auth.Result

func parseCommand(cmd string, args []string, stderr io.Writer) (operation, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)

	switch cmd {
	case "register":
		var req user.RegisterRequest
		fs.StringVar(&req.Email, "email", "", "account email")
		fs.StringVar(&req.Password, "password", "", "account password")
		fs.StringVar(&req.FirstName, "first-name", "", "first name")
		fs.StringVar(&req.LastName, "last-name", "", "last name")
		fs.StringVar(&req.Phone, "phone", "", "phone number")
		fs.StringVar(&req.Role, "role", "", "role (defaults to user)")
		fs.StringVar(&req.Place, "place", "", "place")
		fs.StringVar(&req.District, "district", "", "district")
		fs.StringVar(&req.Pincode, "pincode", "", "pincode")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return func(ctx context.Context, svc *auth.Service) *auth.Result {
			return svc.Register(ctx, req)
		}, nil

	case "login":
		var req auth.LoginRequest
		fs.StringVar(&req.Email, "email", "", "account email")
		fs.StringVar(&req.Password, "password", "", "account password")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return func(ctx context.Context, svc *auth.Service) *auth.Result {
			return svc.Login(ctx, req)
		}, nil

	case "google-signin", "google-signup", "logout", "whoami":
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return func(ctx context.Context, svc *auth.Service) *auth.Result {
			switch cmd {
			case "google-signin":
				return svc.GoogleSignIn(ctx)
			case "google-signup":
				return svc.GoogleSignUp(ctx)
			case "logout":
				return svc.Logout(ctx)
			}
			return whoami(ctx, svc)
		}, nil

	case "update-profile":
		values := updateFlags(fs)
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		update := profileUpdate(fs, values)
		return func(ctx context.Context, svc *auth.Service) *auth.Result {
			return svc.UpdateProfile(ctx, update)
		}, nil
	}
	return nil, fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

func updateFlags(fs *flag.FlagSet) map[string]*string {
	values := map[string]*string{}
	for _, name := range []string{"first-name", "last-name", "phone", "place", "district", "pincode", "photo-url"} {
		values[name] = fs.String(name, "", "new "+name)
	}
	return values
}

// profileUpdate keeps only the flags given on the command line, so an explicit empty value
// still clears a field.
func profileUpdate(fs *flag.FlagSet, values map[string]*string) user.ProfileUpdate {
	var update user.ProfileUpdate
	fs.Visit(func(f *flag.Flag) {
		v := values[f.Name]
		switch f.Name {
		case "first-name":
			update.FirstName = v
		case "last-name":
			update.LastName = v
		case "phone":
			update.Phone = v
		case "place":
			update.Place = v
		case "district":
			update.District = v
		case "pincode":
			update.Pincode = v
		case "photo-url":
			update.PhotoURL = v
		}
	})
	return update
}

func whoami(ctx context.Context, svc *auth.Service) *auth.Result {
	p := svc.CurrentUser(ctx)
	if p == nil || svc.PlatformUser() == nil {
		return auth.Failure(auth.MsgNotAuthenticated)
	}
	return auth.Success(p, "")
}

func printPrompter(w io.Writer) oauth.Prompter {
	return func(authURL string) error {
		_, err := fmt.Fprintf(w, "Open this URL in your browser to continue:\n\n  %s\n\n", authURL)
		return err
	}
}

func writeResult(w io.Writer, res *auth.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
