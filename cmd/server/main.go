package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kocmoc/internal/config"
	"kocmoc/internal/domain"
	"kocmoc/internal/httpserver"
	"kocmoc/internal/mailer"
	"kocmoc/internal/security"
	"kocmoc/internal/service"
	"kocmoc/internal/store/postgres"
	"kocmoc/internal/store/sqlite"
)

type repos struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	codes    domain.VerificationCodeRepository
	chats    domain.ChatRepository
	members  domain.MemberRepository
	messages domain.MessageRepository
	stories  domain.StoryRepository
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, rp, err := openStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.SessionTTLDays)*24*time.Hour)
	passwordHasher := security.NewPasswordHasher(cfg.BcryptCost)

	var mail mailer.Mailer
	if cfg.MailConfigured() {
		mail = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		log.Warn().Msg("SMTP not configured, verification codes will only be logged")
		mail = mailer.NewNoop(log.Logger)
	}

	sessionSvc := service.NewSessionService(tokenSvc, rp.sessions, rp.users)
	authSvc := service.NewAuthService(rp.users, rp.codes, sessionSvc, passwordHasher, mail,
		time.Duration(cfg.CodeExpiresMinutes)*time.Minute)
	svc := httpserver.Services{
		Auth:     authSvc,
		Sessions: sessionSvc,
		Users:    service.NewUserService(rp.users),
		Chats:    service.NewChatService(rp.chats, rp.members, rp.users),
		Messages: service.NewMessageService(rp.chats, rp.members, rp.messages),
		Stories:  service.NewStoryService(rp.stories),
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authSvc.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("failed to seed admin account")
		}
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      httpserver.NewRouter(cfg, svc),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Msgf("starting %s server", cfg.AppName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openStore picks the storage engine from the DSN scheme: postgres URLs go
// through pgx, anything else is treated as a sqlite file path.
func openStore(dsn string) (*sql.DB, repos, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := postgres.Open(dsn)
		if err != nil {
			return nil, repos{}, err
		}
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, repos{}, err
		}
		return db, repos{
			users:    postgres.NewUserRepo(db),
			sessions: postgres.NewSessionRepo(db),
			codes:    postgres.NewCodeRepo(db),
			chats:    postgres.NewChatRepo(db),
			members:  postgres.NewMemberRepo(db),
			messages: postgres.NewMessageRepo(db),
			stories:  postgres.NewStoryRepo(db),
		}, nil
	}

	db, err := sqlite.Open(dsn)
	if err != nil {
		return nil, repos{}, err
	}
	if err := sqlite.Migrate(db); err != nil {
		db.Close()
		return nil, repos{}, err
	}
	return db, repos{
		users:    sqlite.NewUserRepo(db),
		sessions: sqlite.NewSessionRepo(db),
		codes:    sqlite.NewCodeRepo(db),
		chats:    sqlite.NewChatRepo(db),
		members:  sqlite.NewMemberRepo(db),
		messages: sqlite.NewMessageRepo(db),
		stories:  sqlite.NewStoryRepo(db),
	}, nil
}
