package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkrupp/accountdash/internal/infra/config"
	"github.com/mkrupp/accountdash/internal/infra/logging"
	"github.com/mkrupp/accountdash/internal/infra/transport/http"
	"github.com/mkrupp/accountdash/internal/repo/user"
	"github.com/mkrupp/accountdash/internal/svc/accountsvc"
)

const (
	appName = "demo"
	svcName = "accountsvc"
)

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig           `envPrefix:"LOG_"`
	Account accountsvc.AccountConfig       `envPrefix:"ACCOUNT_"`
	HTTP    accountsvc.HTTPTransportConfig `envPrefix:"HTTP_"`
	User    user.RepositoryConfig          `envPrefix:"USER_"`
}

func main() {
	var (
		cfg Config

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(".env"); err != nil {
		panic(err)
	}

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.accountsvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)

			return
		}

		log.InfoContext(ctx, "shutdown")
	}()

	repoFactory, err := user.RepositoryFactoryFromConfig(cfg.User)
	if err != nil {
		return fmt.Errorf("user repository: %w", err)
	}

	accountSvc, err := accountsvc.NewAccountService(ctx, repoFactory, cfg.Account)
	if err != nil {
		return fmt.Errorf("new account service: %w", err)
	}
	defer accountSvc.Close()

	httpTransport := accountsvc.NewHTTPTransport(accountSvc, cfg.HTTP)

	log.InfoContext(ctx, "listening", "addr", cfg.HTTP.ServerAddr, "driver", cfg.User.Driver)

	if err := http.ListenAndServe(ctx, httpTransport, cfg.HTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
