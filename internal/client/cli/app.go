package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/snapkeeper/internal/client/services"
	"github.com/dmitrijs2005/snapkeeper/internal/client/syncer"
)

// StatusSource reports library and queue counters.
type StatusSource interface {
	Status(ctx context.Context) (services.Status, error)
}

// Syncer runs a reconcile pass on demand.
type Syncer interface {
	ForcePass(ctx context.Context) (syncer.Result, error)
}

type App struct {
	authService  services.AuthService
	photoService services.PhotoService
	status       StatusSource
	syncer       Syncer
	reader       *bufio.Reader
	out          io.Writer
	now          func() time.Time
}

func NewApp(as services.AuthService, ps services.PhotoService, st StatusSource, sy Syncer) *App {
	return &App{
		authService:  as,
		photoService: ps,
		status:       st,
		syncer:       sy,
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		now:          time.Now,
	}
}

// Run blocks in the REPL until the user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	log.Println("Welcome to SnapKeeper (type 'help' for commands)")
	if !a.isLoggedIn() {
		log.Println("Not logged in, sync is paused. Use 'login' to provide an access token.")
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.authService.Current().Valid(a.now())
}

func (a *App) getStatus() string {
	if a.isLoggedIn() {
		return "(online)"
	}
	return "(offline)"
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
