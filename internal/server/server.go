package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/phishlms/internal/api"
	"github.com/victornm/phishlms/internal/auth"
	"github.com/victornm/phishlms/internal/catalog"
	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/event"
	"github.com/victornm/phishlms/internal/notify"
	"github.com/victornm/phishlms/internal/profile"
	"github.com/victornm/phishlms/internal/progress"
	"github.com/victornm/phishlms/internal/question"
	"github.com/victornm/phishlms/internal/score"
	"github.com/victornm/phishlms/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Redis struct {
		Cache struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}

	Mongo struct {
		URI      string
		Database string
	}

	Auth struct {
		Secret string
	}

	Exam struct {
		QuestionCacheTTL time.Duration `mapstructure:"question_cache_ttl"`
		TimeLimit        time.Duration `mapstructure:"time_limit"`
		// SeedFile replaces the question set on startup when set.
		SeedFile string `mapstructure:"seed_file"`
	}

	Classification struct {
		IntermediateFrom int `mapstructure:"intermediate_from"`
		AdvancedFrom     int `mapstructure:"advanced_from"`
	}
}

// DefaultConfig carries the values used when the config file leaves a key out.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 9090
	c.Redis.Cache.Prefix = "phishlms"
	c.Redis.Pubsub.Prefix = "phishlms"
	c.Mongo.Database = "phishlms"
	c.Exam.QuestionCacheTTL = 5 * time.Minute
	c.Classification.IntermediateFrom = 50
	c.Classification.AdvancedFrom = 80
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			cache  redis.UniversalClient
			pubsub redis.UniversalClient
		}

		postgres *pgxpool.Pool
		mongo    *mongo.Client
	}

	service struct {
		question *question.Service
		profile  *profile.Service
		catalog  *catalog.Service
		score    *score.Service
		progress *progress.Service
		notify   *notify.Notifier
	}

	http *http.Server
	grpc *grpc.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	if err := s.seedQuestions(); err != nil {
		return nil, fmt.Errorf("server: seed questions: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	if err := s.initMongo(); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(name string, addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(name, r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.cache, err = connect("cache", s.c.Redis.Cache.Addrs, s.c.Redis.Cache.Pass)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	s.infra.redis.pubsub, err = connect("pubsub", s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pc := s.c.Postgres
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pc.User, pc.Pass, pc.Addr, pc.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initMongo() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(s.c.Mongo.URI))
	if err != nil {
		return err
	}

	if err := mc.Ping(ctx, nil); err != nil {
		_ = mc.Disconnect(ctx)
		return err
	}

	s.infra.mongo = mc
	return nil
}

func (s *Server) initService() error {
	cls, err := score.NewClassifier(
		score.Band{Classification: domain.ClassificationBeginner, From: 0},
		score.Band{Classification: domain.ClassificationIntermediate, From: s.c.Classification.IntermediateFrom},
		score.Band{Classification: domain.ClassificationAdvanced, From: s.c.Classification.AdvancedFrom},
	)
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	s.service.question = question.NewService(question.Config{
		Source: question.NewPostgresSource(s.infra.postgres),
		Redis:  s.infra.redis.cache,
		Prefix: s.c.Redis.Cache.Prefix,
		TTL:    s.c.Exam.QuestionCacheTTL,
	})

	s.service.profile = profile.NewService(profile.Config{
		DB:       s.infra.postgres,
		EventBus: s.eb,
	})

	s.service.catalog = catalog.NewService(catalog.Config{
		DB: s.infra.mongo.Database(s.c.Mongo.Database),
	})

	s.service.score = score.NewService(score.Config{
		EventBus:   s.eb,
		AnswerKey:  s.service.question,
		Profiles:   s.service.profile,
		Classifier: cls,
	})

	s.service.progress = progress.NewService(progress.Config{
		Profiles: s.service.profile,
		Catalog:  s.service.catalog,
	})

	s.service.notify = notify.New(notify.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.pubsub,
		Prefix:   s.c.Redis.Pubsub.Prefix,
	})

	return nil
}

func (s *Server) seedQuestions() error {
	if s.c.Exam.SeedFile == "" {
		return nil
	}

	qs, err := question.LoadFile(s.c.Exam.SeedFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.service.question.PutQuestionSet(ctx, qs); err != nil {
		return err
	}

	slog.InfoContext(ctx, "server: question set seeded", "file", s.c.Exam.SeedFile, "questions", len(qs))
	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.HTTPLogger())

	api.New(api.Config{
		Router:    e,
		Auth:      auth.NewVerifier(s.c.Auth.Secret),
		Questions: s.service.question,
		Scorer:    s.service.score,
		Profiles:  s.service.profile,
		Catalog:   s.service.catalog,
		Progress:  s.service.progress,
		TimeLimit: s.c.Exam.TimeLimit,
	})

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor()...)
	healthpb.RegisterHealthServer(s.grpc, health.NewServer())

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	s.infra.postgres.Close()
	if err := s.infra.mongo.Disconnect(ctx); err != nil {
		slog.ErrorContext(ctx, "server: disconnect mongo failed", "error", err)
	}
	if err := errors.Join(s.infra.redis.cache.Close(), s.infra.redis.pubsub.Close()); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
