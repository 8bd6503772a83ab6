package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/ecowaste-cert/internal/config"
	"github.com/iliyamo/ecowaste-cert/internal/database"
	"github.com/iliyamo/ecowaste-cert/internal/handler"
	"github.com/iliyamo/ecowaste-cert/internal/logger"
	"github.com/iliyamo/ecowaste-cert/internal/mail"
	"github.com/iliyamo/ecowaste-cert/internal/middleware"
	"github.com/iliyamo/ecowaste-cert/internal/queue"
	"github.com/iliyamo/ecowaste-cert/internal/ratelimit"
	"github.com/iliyamo/ecowaste-cert/internal/repository"
	"github.com/iliyamo/ecowaste-cert/internal/router"
	"github.com/iliyamo/ecowaste-cert/internal/service"
	"github.com/iliyamo/ecowaste-cert/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(cfg.Env); err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.L()

	if cfg.JWTSecretDefault {
		log.Warn("JWT_SECRET not set; using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(db, cfg.DBName); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.Warn("redis unavailable; using in-memory rate limiting and no response cache", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		log.Fatal("rate limit config", zap.Error(err))
	}
	limiter := newLimiter(ctx, rlCfg, rdb, log)

	mailer := newMailer(ctx, cfg, log)

	// Repositories
	users := repository.NewUserRepo(db)
	certs := repository.NewCertificationRepo(db)
	dir := repository.NewDirectoryRepo(db)
	approach := repository.NewApproachRepo(db)
	notifications := repository.NewNotificationRepo(db)
	audit := repository.NewAuditRepo(db)

	// Services
	codec, err := utils.NewSessionCodec(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatal("session codec", zap.Error(err))
	}
	activity := service.NewActivityLogger(audit)
	notifySvc := service.NewNotificationService(notifications, mailer)
	authSvc := service.NewAuthService(users, codec, notifySvc, activity, service.AuthConfig{
		BcryptCost:      cfg.BcryptCost,
		BaseURL:         cfg.BaseURL,
		VerificationTTL: cfg.EmailVerificationTTL,
		ResetTTL:        cfg.PasswordResetTTL,
	})
	certSvc := service.NewCertificationService(certs, users, dir, notifySvc, activity)
	dirSvc := service.NewDirectoryService(dir, approach, activity)
	approachSvc := service.NewApproachService(approach, dir, notifySvc, activity)
	adminSvc := service.NewAdminService(users, certs, audit, activity)

	// Handlers
	authH := handler.NewAuthHandler(authSvc, cfg)
	certH := handler.NewCertificationHandler(certSvc)
	dirH := handler.NewDirectoryHandler(dirSvc)
	approachH := handler.NewApproachHandler(approachSvc)
	notifyH := handler.NewNotificationHandler(notifySvc)
	adminH := handler.NewAdminHandler(adminSvc)

	deps := router.Deps{
		Codec:     codec,
		Users:     users,
		Limiter:   limiter,
		RateLimit: rlCfg,
	}
	if rdb != nil {
		cacheCfg := config.LoadCacheConfig()
		deps.Cache = middleware.NewRedisCache(cacheCfg, rdb)
		if cacheCfg.Enabled {
			purger := middleware.NewCachePurger(cacheCfg, rdb)
			certSvc.WithCache(purger)
			dirSvc.WithCache(purger)
		}
	}

	e := echo.New()
	router.Setup(e, rlCfg.TrustedProxies...)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, authH, deps)
	router.RegisterPublic(e, dirH, deps)
	router.RegisterMember(e, router.MemberHandlers{Certs: certH, Dir: dirH, Approach: approachH, Notify: notifyH}, deps)
	router.RegisterAdmin(e, router.AdminHandlers{Admin: adminH, Certs: certH, Dir: dirH}, deps)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newLimiter returns nil when rate limiting is disabled.  The return is an
// interface, so the nil case must stay an untyped nil.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) ratelimit.Limiter {
	if !cfg.Enabled {
		log.Info("rate limiting disabled")
		return nil
	}
	if cfg.Backend == config.RateLimitRedis && rdb != nil {
		return ratelimit.NewRedisLimiter(rdb, cfg.Prefix)
	}
	if cfg.Backend == config.RateLimitRedis {
		log.Warn("redis rate limit backend requested but redis is unavailable; falling back to memory")
	}
	mem := ratelimit.NewMemoryLimiter()
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := mem.Sweep(); n > 0 {
					log.Debug("rate limit sweep", zap.Int("removed", n))
				}
			}
		}
	}()
	return mem
}

// newMailer picks the outbound mail path.  With a broker configured, request
// paths publish to the queue and a consumer in this process relays over
// SMTP.  Without SMTP credentials mail is only logged.
func newMailer(ctx context.Context, cfg config.Config, log *zap.Logger) mail.Mailer {
	smtpReady := cfg.SMTP.Username != ""
	if cfg.RabbitMQURL != "" {
		var relay queue.EmailHandler = mail.NewSMTPMailer(cfg.SMTP)
		if !smtpReady {
			relay = logHandler{}
		}
		consumer := &queue.EmailConsumer{URL: cfg.RabbitMQURL, Handler: relay}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("email consumer stopped", zap.Error(err))
			}
		}()
		return mail.NewQueueMailer(queue.NewPublisher(cfg.RabbitMQURL))
	}
	if smtpReady {
		return mail.NewSMTPMailer(cfg.SMTP)
	}
	log.Warn("SMTP_USER not set; outbound email will only be logged")
	return mail.LogMailer{}
}

// logHandler drains queued jobs into the log when no relay is configured.
type logHandler struct{}

func (logHandler) HandleEmail(ctx context.Context, job queue.EmailJob) error {
	return mail.LogMailer{}.Send(ctx, mail.Message{
		Kind:    job.Kind,
		To:      job.To,
		Subject: job.Subject,
		HTML:    job.HTML,
		Text:    job.Text,
	})
}
