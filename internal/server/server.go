package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"spark-service/internal/agents"
	"spark-service/internal/automation"
	"spark-service/internal/config"
	"spark-service/internal/events"
	"spark-service/internal/handler"
	"spark-service/internal/health"
	"spark-service/internal/i18n"
	"spark-service/internal/ledger"
	"spark-service/internal/mailer"
	"spark-service/internal/rate"
	"spark-service/internal/repository"
	"spark-service/internal/router"
	"spark-service/internal/usecase"
	"spark-service/internal/ws"
	"spark-service/pkg/cache"
	"spark-service/pkg/id"
	"spark-service/pkg/jwtutil"
	"spark-service/pkg/middleware"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	shutdownTimeout   = 30 * time.Second
	heartbeatInterval = 30 * time.Second
	healthPollEvery   = 15 * time.Second
	serviceName       = "spark"
)

type Server struct {
	cfg    config.AppConfig
	logger *zap.Logger

	db        *pgxpool.Pool
	rdb       *redis.Client
	publisher events.Publisher
	hub       *ws.Hub
	checker   *health.Checker
	scheduler *automation.Scheduler

	http *http.Server
	grpc *grpc.Server
	gh   *grpchealth.Server
}

// New connects the stores and wires every component. Nothing is served
// until Run is called.
func New(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	db, err := config.ConnectDB(ctx, logger)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	c := cache.FromClient(rdb)
	if err := c.Ping(ctx); err != nil {
		logger.Warn("redis not reachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	sf, err := id.NewSnowflake(cfg.MachineID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init snowflake: %w", err)
	}

	priv, pub, ephemeral, err := jwtutil.LoadKeyPair(jwtutil.JWTConfig{
		PrivPath: cfg.JWT.PrivPath,
		PubPath:  cfg.JWT.PubPath,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		KID:      cfg.JWT.KID,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load jwt keys: %w", err)
	}
	if ephemeral {
		logger.Warn("no JWT_PRIVATE_KEY_PATH set, using an ephemeral signing key; tokens and certificate signatures will not survive a restart")
	}

	tr, err := i18n.New()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load translations: %w", err)
	}

	var sender mailer.Sender = mailer.NewLogSender(logger)
	if cfg.SMTP.Host != "" {
		sender = mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.FromName)
	} else {
		logger.Info("SMTP_HOST not set, emails are logged instead of sent")
	}
	mail := mailer.New(sender, tr, logger)

	hub := ws.NewHub(logger)
	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	checker := health.NewChecker(db, c)

	profiles := repository.NewProfileRepo(db)
	requests := repository.NewRequestRepo(db)
	certs := repository.NewCertificateRepo(db)

	activityUC := usecase.NewActivityUsecase(repository.NewActivityRepo(db), publisher, logger)
	limiter := rate.NewLimiter(c, cfg.OTP.Window, cfg.OTP.MaxPerWindow, cfg.OTP.Cooldown)
	otpUC := usecase.NewOTPUsecase(repository.NewOTPRepo(db), limiter, c, sf, mail, cfg.OTP.TTL, logger)

	// The request usecase and the engine depend on each other; the engine
	// reaches the usecase through a late-bound func.
	var requestUC *usecase.RequestUsecase
	engine, err := automation.NewDefaultEngine(automation.Dependencies{
		Notifier: hub,
		Health:   checker,
		Requests: automation.StatusUpdaterFunc(func(ctx context.Context, id, status, message string) (bool, error) {
			return requestUC.SystemUpdateStatus(ctx, id, status, message)
		}),
	}, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("register workflows: %w", err)
	}
	requestUC = usecase.NewRequestUsecase(requests, sf, activityUC, engine, hub, tr, logger)

	tokens := jwtutil.NewGenerator(priv, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.KID, cfg.JWT.TTL)
	verifier := jwtutil.NewVerifier(pub, cfg.JWT.Issuer, cfg.JWT.Audience)
	if cfg.JWT.KID != "" {
		verifier.AddKey(cfg.JWT.KID, pub)
	}

	authUC := usecase.NewAuthUsecase(profiles, otpUC, tokens, c, activityUC, engine, logger)
	profileUC := usecase.NewProfileUsecase(profiles, activityUC, hub, tr)
	certUC := usecase.NewCertificateUsecase(certs, requests, profiles, requestUC, ledger.New(priv, pub), mail, activityUC, hub, logger)
	metricsUC := usecase.NewMetricsUsecase(profiles, requests, certs)

	orchestrator := agents.NewOrchestrator(logger,
		agents.NewAuthAgent(authUC, otpUC),
		agents.NewCertificateAgent(),
		agents.NewAnalyticsAgent(),
		agents.NewCommunityAgent(tr),
		agents.NewMonitorAgent(checker),
	)

	h := handler.New(handler.Services{
		Auth:         authUC,
		Profiles:     profileUC,
		Requests:     requestUC,
		Certificates: certUC,
		Activities:   activityUC,
		Metrics:      metricsUC,
		Agents:       orchestrator,
		Workflows:    engine,
		Health:       checker,
		Languages:    tr,
		Broadcaster:  hub,
	}, logger)
	wsh := handler.NewWSHandler(hub, cfg.AllowedOrigins, logger)
	am := middleware.NewAuthMiddleware(verifier, c, logger)

	routes := router.SetupRoutes(h, wsh, am, rdb, router.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AuthLimitPerMin: cfg.RateLimitPerMin / 4,
		TrustProxy:      cfg.TrustProxy,
	}, logger)

	gs := grpc.NewServer()
	gh := grpchealth.NewServer()
	healthpb.RegisterHealthServer(gs, gh)
	reflection.Register(gs)

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		rdb:       rdb,
		publisher: publisher,
		hub:       hub,
		checker:   checker,
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           routes,
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpc: gs,
		gh:   gh,
	}
	if cfg.Schedules {
		s.scheduler = automation.NewScheduler(engine, logger)
	}
	return s, nil
}

// Run serves HTTP and gRPC health, runs the background workers and blocks
// until ctx is cancelled or a listener fails. Shutdown is graceful.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", s.cfg.GRPCAddr, err)
	}

	if s.scheduler != nil {
		n, err := s.scheduler.Start()
		if err != nil {
			_ = lis.Close()
			return fmt.Errorf("start scheduler: %w", err)
		}
		s.logger.Info("automation scheduler started", zap.Int("scheduled_workflows", n))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("gRPC health server listening", zap.String("addr", s.cfg.GRPCAddr))
		if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.HTTPAddr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.hub.Heartbeat(gctx, heartbeatInterval)
		return nil
	})

	g.Go(func() error {
		s.watchHealth(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})

	return g.Wait()
}

// watchHealth mirrors the dependency check into the gRPC health service.
func (s *Server) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(healthPollEvery)
	defer ticker.Stop()

	for {
		status := healthpb.HealthCheckResponse_SERVING
		if rep := s.checker.Check(ctx); rep.Status == "unhealthy" {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		s.gh.SetServingStatus("", status)
		s.gh.SetServingStatus(serviceName, status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) shutdown() {
	s.logger.Info("shutdown signal received, draining")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.gh.Shutdown()

	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
	s.grpc.GracefulStop()

	if s.scheduler != nil {
		s.scheduler.Stop(ctx)
	}
	s.hub.CloseAll()

	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("close event publisher", zap.Error(err))
	}
	if err := s.rdb.Close(); err != nil {
		s.logger.Warn("close redis", zap.Error(err))
	}
	s.db.Close()

	s.logger.Info("graceful shutdown complete")
}
