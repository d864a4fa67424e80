package main

import (
	"context"
	"flag"
	"log/syslog"
	"os"
	"os/signal"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/tidwall/buntdb"
	"github.com/uptrace/bun"
	_ "github.com/uptrace/bun/driver/pgdriver"
	"github.com/uzzapchat/uzzap"
	"github.com/uzzapchat/uzzap/identity"
	"github.com/uzzapchat/uzzap/persistent"
	"github.com/uzzapchat/uzzap/pgdb"
	"github.com/uzzapchat/uzzap/transport/rest"
)

func listenAndServe(
	ctx context.Context,
	bdb *buntdb.DB,
	db *bun.DB,
	avatars uzzap.AvatarStore,
	signIn identity.PasswordSignIn,
	debug bool,
) func() error {
	profileStore := &persistent.ProfileStore{DB: db}
	sessionStore := &persistent.SessionStore{Buntdb: bdb}
	flows := rest.NewFlowRegistry(profileStore, avatars)
	requestAuthorizer := rest.RequestAuthorizer(sessionStore)

	authController := rest.AuthController{
		SignInWithPassword: signIn,
		SessionStore:       sessionStore,
		Flows:              flows,
	}
	profileController := rest.ProfileController{Store: profileStore, Flows: flows}
	sessionController := rest.SessionController{Store: sessionStore}

	server := fiber.New()
	server.Use(rest.LogHandler())

	api := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: rest.ErrorHandler,
	})

	allowOrigins := "https://uzzap.chat"
	if debug {
		allowOrigins += ", http://localhost:3000"
	}
	api.Use(cors.New(cors.Config{AllowOrigins: allowOrigins}))

	authController.InstallTo(requestAuthorizer, api)
	profileController.InstallTo(requestAuthorizer, api)
	sessionController.InstallTo(requestAuthorizer, api)
	server.Mount("/api/", api)

	server.Use(rest.NotFoundHandler)

	addr := os.Getenv("UZZAP_ADDR")
	if addr == "" {
		if debug {
			addr = "127.0.0.1:4000"
		} else {
			addr = ":4000"
		}
	}
	go server.Listen(addr)

	return func() error {
		return server.Shutdown()
	}
}

func setupLogger(verbose bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "uzzap_backend")
	if err != nil {
		logrus.WithError(err).Warningln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

func env(name string, fallback string) string {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	return value
}

func main() {
	debug := flag.Bool("debug", false, "bind locally and allow dev origins")
	verbose := flag.Bool("verbose", false, "verbose logging")
	flag.Parse()
	setupLogger(*verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	db := pgdb.Open(ctx, os.Getenv("PGDB_DSN"))
	defer db.Close()
	if err := pgdb.CreateSchema(ctx, db, (*persistent.Profile)(nil)); err != nil {
		logrus.WithError(err).Fatalln("Could not create db schema.")
	}

	bdb, err := buntdb.Open(env("SESSION_DB_PATH", ":memory:"))
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open session database.")
	}
	defer bdb.Close()

	avatars, err := persistent.NewAvatarStore(ctx, persistent.AvatarStoreConfig{
		Region:        env("S3_REGION", "us-east-1"),
		Endpoint:      os.Getenv("S3_ENDPOINT"),
		AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		SecretKey:     os.Getenv("S3_SECRET_KEY"),
		Bucket:        env("S3_BUCKET", "avatars"),
		PublicBaseUrl: os.Getenv("S3_PUBLIC_BASE_URL"),
	})
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create avatar store.")
	}

	signIn := identity.RestPasswordSignIn(
		os.Getenv("IDENTITY_BASE_URL"), os.Getenv("IDENTITY_API_KEY"))

	shutdown := listenAndServe(ctx, bdb, db, avatars, signIn, *debug)
	logrus.Infoln("Server started.")

	<-ctx.Done()
	logrus.Infoln("Shutting down.")
	if err := shutdown(); err != nil {
		logrus.WithError(err).Errorln("Server shutdown failed.")
	}
}
