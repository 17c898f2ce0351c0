package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	users "github.com/goliatone/go-users"
	"github.com/goliatone/go-users/cmd/server/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	bunDB  *bun.DB
	auth   users.Authenticator
	auther *users.RouteAuthenticator
	repo   users.RepositoryManager
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("users"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))
	fmt.Println("============")

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetServer().GetAddress())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	db, err := sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*users.User)(nil))
	persistence.RegisterModel((*users.RevokedToken)(nil))

	client, err := persistence.New(pcfg, db, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(users.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = users.NewRepositoryManager(client.DB())

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: app.Config().GetServer().GetDebug(),
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	app.srv = srv

	return nil
}

func WithHTTPAuth(ctx context.Context, app *App) error {
	acfg := app.Config().GetAuth()

	if err := app.repo.Validate(); err != nil {
		return err
	}

	provider := users.NewUserProvider(app.repo.Users()).
		WithLogger(app.GetLogger("auth:prv"))

	tokens := users.NewTokenService(
		[]byte(acfg.GetSigningKey()),
		acfg.GetAccessTokenTTL(),
		acfg.GetRefreshTokenTTL(),
		acfg.GetIssuer(),
		jwt.ClaimStrings(acfg.GetAudience()),
		app.GetLogger("auth:tokens"),
	)

	revocations := app.repo.RevokedTokens()

	authenticator := users.NewAuthenticator(provider, tokens, revocations).
		WithLogger(app.GetLogger("auth:authn"))
	app.auth = authenticator

	httpAuth, err := users.NewHTTPAuthenticator(authenticator, revocations, acfg)
	if err != nil {
		return err
	}
	httpAuth.WithLogger(app.GetLogger("auth:http"))
	app.auther = httpAuth

	users.RegisterUserRoutes(app.srv.Router(),
		users.WithControllerRepo(app.repo),
		users.WithControllerAuthenticator(authenticator, httpAuth),
		users.WithControllerLogger(app.GetLogger("users:ctrl")),
		users.WithControllerContextKey(acfg.GetContextKey()),
		users.WithControllerDebug(app.Config().GetServer().GetDebug()),
	)

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
