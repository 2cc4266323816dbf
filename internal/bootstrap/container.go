package bootstrap

import (
	"context"
	"fmt"
	"time"

	"brainstorm-be/internal/config"
	"brainstorm-be/internal/controller"
	"brainstorm-be/internal/handler"
	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/internal/repository/implementation"
	"brainstorm-be/internal/repository/memory"
	"brainstorm-be/internal/service"
	"brainstorm-be/internal/websocket"
	"brainstorm-be/pkg/database"
	"brainstorm-be/pkg/hostsession"
	"brainstorm-be/pkg/llm/factory"
	pktNats "brainstorm-be/pkg/nats"
	"brainstorm-be/pkg/probe"
	"brainstorm-be/pkg/processor"
	"brainstorm-be/pkg/session"
	"brainstorm-be/pkg/state"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const (
	browserTopic           = "browser_frames"
	sessionCleanupInterval = 10 * time.Minute
)

type Container struct {
	// Controllers
	SessionController    controller.ISessionController
	BrainstormController controller.IBrainstormController
	HostController       controller.IHostController

	// Background Services (Exposed for main.go to run)
	ConsumerService  service.IConsumerService
	LifecycleService service.ILifecycleService

	// WebSockets
	BrowserHandler *handler.BrowserHandler
	WebSocketHub   *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	wsLogger := logger.NewIsolatedLogger(cfg.App.TransportLogFilePath)
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
	} else {
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err.Error()})
	} else {
		c.closers = append(c.closers, natsSub.Close)
	}

	// Redis
	rdb := connectRedis(cfg.App.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 4. Stores
	stateRepo, err := newStateRepository(cfg, rdb, sysLogger)
	if err != nil {
		c.Close()
		return nil, err
	}
	if closer, ok := stateRepo.(interface{ Close() error }); ok {
		c.closers = append(c.closers, func() { _ = closer.Close() })
	}
	var stateOpts []state.ManagerOption
	if sharedStateBackend(cfg.State.Backend) {
		stateOpts = append(stateOpts, state.WithSharedRepository())
	}
	states := state.NewManager(stateRepo, sysLogger, stateOpts...)

	publisherService := service.NewPublisherService(browserTopic, pubSub)
	sessionRepo := memory.NewSessionRepository(cfg.Session.IdleTTL, sessionCleanupInterval)
	store := session.NewStore(
		sessionRepo,
		sysLogger,
		session.WithNotifier(service.NewBrowserNotifier(publisherService, sysLogger)),
		session.WithDefaultTimeout(cfg.Session.AnswerTimeoutDefault),
	)

	// 5. Brainstorm engine
	evaluator, err := newEvaluator(cfg, sysLogger)
	if err != nil {
		c.Close()
		return nil, err
	}
	var sink service.EventSink
	if natsPub != nil {
		sink = natsPub
	}
	eventPublisher := service.NewBrainstormEventPublisher(sink, sysLogger)
	proc := processor.New(store, states, evaluator, sysLogger, processor.WithEventPublisher(eventPublisher))

	registry := hostsession.NewRegistry()
	router := service.NewAnswerRouter(store, proc, sysLogger)

	questionService := service.NewQuestionService(store, registry, sysLogger)
	brainstormService := service.NewBrainstormService(store, states, proc, router, registry, eventPublisher, sysLogger)
	lifecycleService := service.NewLifecycleService(registry, router, brainstormService, questionService, sysLogger)
	sessionRepo.OnExpired(func(sess *session.Session) {
		ctx := context.Background()
		store.SessionExpired(ctx, sess)
		lifecycleService.SessionExpired(ctx, sess.ID)
	})

	// 6. Browser transport
	wsHub := websocket.NewHub(rdb, router, store, wsLogger)
	c.WebSocketHub = wsHub
	c.BrowserHandler = handler.NewBrowserHandler(wsHub, store, wsLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, browserTopic, wsHub, wsLogger)

	if natsSub != nil {
		if err := lifecycleService.Subscribe(natsSub); err != nil {
			sysLogger.Warn("Bootstrap", "Host lifecycle subscription failed", map[string]interface{}{"error": err.Error()})
		}
	}
	c.LifecycleService = lifecycleService

	// 7. Controllers
	c.SessionController = controller.NewSessionController(questionService, cfg.Auth.JWTSecret)
	c.BrainstormController = controller.NewBrainstormController(brainstormService, cfg.Auth.JWTSecret)
	c.HostController = controller.NewHostController(lifecycleService)

	return c, nil
}

// Close releases connections and stores in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// connectRedis returns nil when Redis is unreachable; the hub then runs single-instance.
func connectRedis(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Warn("Bootstrap", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func newStateRepository(cfg *config.Config, rdb *redis.Client, log logger.ILogger) (state.Repository, error) {
	switch cfg.State.Backend {
	case "badger":
		return state.OpenBadgerRepository(state.DefaultBadgerConfig(cfg.State.Dir), log)
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("state backend redis: redis at %q is not reachable", cfg.App.RedisURL)
		}
		return state.NewRedisRepository(rdb), nil
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			return nil, fmt.Errorf("state backend postgres: %w", err)
		}
		return implementation.NewBrainstormRepository(db)
	case "memory":
		return state.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown STATE_BACKEND %q", cfg.State.Backend)
	}
}

// sharedStateBackend reports whether other instances may write the same records.
func sharedStateBackend(backend string) bool {
	return backend == "redis" || backend == "postgres"
}

func newEvaluator(cfg *config.Config, log logger.ILogger) (probe.Evaluator, error) {
	if cfg.Ai.LLMProvider == "none" {
		log.Info("Bootstrap", "Using summary evaluator", map[string]interface{}{"min_answers": cfg.Ai.ProbeMinAnswers})
		return probe.NewSummaryEvaluator(cfg.Ai.ProbeMinAnswers), nil
	}

	provider, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  llmBaseURL(cfg),
		APIKey:   cfg.Ai.OpenAIAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	log.Info("Bootstrap", "Using LLM provider", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Ai.LLMModel})

	return probe.NewLLMEvaluator(provider, probe.ProbeOptions{
		Model:        cfg.Ai.LLMModel,
		Temperature:  cfg.Ai.ProbeTemperature,
		MaxTokens:    cfg.Ai.ProbeMaxTokens,
		MaxQuestions: cfg.Ai.ProbeMaxQuestions,
	}, log)
}

func llmBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "openai" {
		return cfg.Ai.OpenAIBaseURL
	}
	return cfg.Ai.OllamaBaseURL
}
