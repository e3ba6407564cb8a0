package cli

import (
	"context"
	"errors"
	"log"
	"time"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getSecret     = GetSecret
)

// Login stores the access token given as the first argument, or prompts
// for it without echo. The expiry comes from the token itself when it is a
// JWT. A successful login starts background sync.
func (a *App) Login(ctx context.Context, args []string) error {
	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		var err error
		if token, err = getSecret(a.reader, "Enter access token", a.out); err != nil {
			return err
		}
	}
	if token == "" {
		return errors.New("token is required")
	}

	if err := a.authService.Login(ctx, token, time.Time{}); err != nil {
		return err
	}

	log.Printf("Login successful, token valid until %s", a.authService.Current().Expiry.Format(time.RFC3339))
	return nil
}

// Logout forgets the stored token. Queued intents stay until the next login.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	log.Printf("Logged out")
	return nil
}
