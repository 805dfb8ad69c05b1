package main

import (
	"context"

	bookingcommands "roombook/internal/bookings/commands"
	bookingevents "roombook/internal/bookings/events"
	bookinghandler "roombook/internal/bookings/handler"
	bookingrepo "roombook/internal/bookings/repository"
	bookingservice "roombook/internal/bookings/service"
	bookingvalidator "roombook/internal/bookings/validator"
	"roombook/internal/health"
	roomhandler "roombook/internal/rooms/handler"
	roomrepo "roombook/internal/rooms/repository"
	roomservice "roombook/internal/rooms/service"
	roomvalidator "roombook/internal/rooms/validator"
	teamhandler "roombook/internal/teams/handler"
	teamrepo "roombook/internal/teams/repository"
	teamservice "roombook/internal/teams/service"
	teamvalidator "roombook/internal/teams/validator"
	userhandler "roombook/internal/users/handler"
	userrepo "roombook/internal/users/repository"
	userservice "roombook/internal/users/service"
	uservalidator "roombook/internal/users/validator"
	"roombook/pkg/app"
	"roombook/pkg/config"
	mongotx "roombook/pkg/db/mongo"
	"roombook/pkg/kafka"
	kafka_config "roombook/pkg/kafka/config"
	kafka_middleware "roombook/pkg/kafka/middleware"
)

const ServiceName = "roombook"

type services struct {
	bookings bookingservice.BookingService
	rooms    roomservice.RoomService
	users    userservice.UserService
	teams    teamservice.TeamService
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Roombook service")
	serverApp := app.NewApplication(cfg)

	var metrics *kafka_middleware.Metrics
	var events bookingservice.EventPublisher
	var kafkaCfg *kafka_config.Config
	if cfg.EventsEnabled || cfg.CommandsEnabled {
		var err error
		kafkaCfg, err = kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		kafkaCfg.LogConfiguration(cfg.Log)
		metrics = kafka_middleware.NewMetrics()
	}
	if cfg.EventsEnabled {
		producer := newProducer(cfg, kafkaCfg, kafkaCfg.EventsTopic, metrics)
		serverApp.AddCloser(producer)
		events = bookingevents.NewBookingEventPublisher(producer, cfg.Log)
		cfg.Log.Info("Booking events enabled", "topic", kafkaCfg.EventsTopic)
	}

	svc := initServices(cfg, events)

	if cfg.CommandsEnabled {
		replies := newProducer(cfg, kafkaCfg, kafkaCfg.RepliesTopic, metrics)
		serverApp.AddCloser(replies)
		commands := bookingcommands.NewHandler(svc.bookings, replies, cfg.Log)

		consumer, err := kafka.NewConsumer(kafkaCfg, kafkaCfg.CommandsTopic, kafkaCfg.ConsumerGroupID, kafkaCfg.DLQTopic, commands.Handle, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create command consumer", "error", err)
		}
		if kafkaCfg.EnableMiddleware {
			consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
			consumer.Use(metrics.ConsumerMiddleware())
		}
		serverApp.AddCloser(consumer)
		serverApp.AddWorker("booking-commands", func(ctx context.Context) error {
			return consumer.Start(ctx)
		})
		cfg.Log.Info("Booking commands enabled", "topic", kafkaCfg.CommandsTopic)
	}

	serverApp.SetApp(
		newHealthHandler(cfg, metrics),
		bookinghandler.NewBookingHandler(svc.bookings, cfg.Log),
		roomhandler.NewRoomHandler(svc.rooms, cfg.Log),
		userhandler.NewUserHandler(svc.users, cfg.Log),
		teamhandler.NewTeamHandler(svc.teams, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, events bookingservice.EventPublisher) services {
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	roomRepo := roomrepo.NewMongoRoomRepository(cfg)
	userRepo := userrepo.NewMongoUserRepository(cfg)
	teamRepo := teamrepo.NewMongoTeamRepository(cfg)

	locks := mongotx.NewLockManager(
		mongotx.NewLockStore(cfg.Client.Mongo.Database(cfg.MongoDatabaseName)),
		mongotx.LockOptions{
			TTL:           cfg.LockTTL,
			WaitTimeout:   cfg.LockWaitTimeout,
			RetryInterval: cfg.LockRetryInterval,
		},
		cfg.Log,
	)

	svc := services{
		bookings: bookingservice.NewBookingService(
			bookingRepo,
			roomRepo,
			userRepo,
			teamRepo,
			locks,
			events,
			bookingvalidator.NewBookingValidator(cfg.Log),
			cfg,
		),
		rooms: roomservice.NewRoomService(
			roomRepo,
			bookingRepo,
			locks,
			roomvalidator.NewRoomValidator(cfg.Log),
			cfg,
		),
		users: userservice.NewUserService(
			userRepo,
			bookingRepo,
			teamRepo,
			uservalidator.NewUserValidator(),
			cfg,
		),
		teams: teamservice.NewTeamService(
			teamRepo,
			userRepo,
			bookingRepo,
			teamvalidator.NewTeamValidator(),
			cfg,
		),
	}

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return svc
}

func newProducer(cfg *config.Config, kafkaCfg *kafka_config.Config, topic string, metrics *kafka_middleware.Metrics) *kafka.Producer {
	producer, err := kafka.NewProducer(kafkaCfg, topic, kafkaCfg.DLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "topic", topic, "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(metrics.ProducerMiddleware())
	}
	return producer
}

func newHealthHandler(cfg *config.Config, metrics *kafka_middleware.Metrics) *health.HealthHandler {
	checks := map[string]health.Pinger{
		"mongo": health.MongoPinger(cfg.Client.Mongo),
	}
	if cfg.Client.Redis != nil {
		checks["redis"] = health.RedisPinger(cfg.Client.Redis)
	}

	var source health.MetricsSource
	if metrics != nil {
		source = metrics
	}
	return health.NewHealthHandler(checks, source, cfg.Log)
}
