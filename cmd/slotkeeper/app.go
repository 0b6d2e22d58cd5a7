package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"slotkeeper/internal/catalog"
	"slotkeeper/internal/clock"
	"slotkeeper/internal/config"
	"slotkeeper/internal/middleware"
	"slotkeeper/internal/modules/finalize"
	"slotkeeper/internal/modules/livestatus"
	"slotkeeper/internal/modules/lookup"
	"slotkeeper/internal/modules/payment"
	"slotkeeper/internal/modules/reschedule"
	"slotkeeper/internal/modules/reservation"
	"slotkeeper/internal/modules/webhook"
	"slotkeeper/internal/notify"
	"slotkeeper/internal/paymentgw"
	"slotkeeper/internal/pkg/dedup"
	jwtsvc "slotkeeper/internal/pkg/jwt"
	"slotkeeper/internal/repository"
	"slotkeeper/internal/scheduling"
)

type app struct {
	router  *gin.Engine
	hub     *livestatus.Hub
	closers []func() error
	log     logrus.FieldLogger
}

func (a *app) Close() {
	a.hub.Close()
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.WithError(err).Warn("close")
		}
	}
}

func buildApp(cfg *config.Config, db *gorm.DB, log *logrus.Logger) (*app, error) {
	cat, err := catalog.Load(cfg.CatalogFile, cfg.DefaultLocationID)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	a := &app{hub: livestatus.NewHub(), log: log}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.RabbitURL != "" {
		pub, err := notify.NewPublisher(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			// Notifications are best-effort; the booking flow runs without them.
			log.WithError(err).Warn("amqp unavailable, notifications disabled")
		} else {
			notifier = pub
			a.closers = append(a.closers, pub.Close)
		}
	}

	clk := clock.NewSystem()
	sched := scheduling.NewClient(cfg.SchedulingBaseURL, cfg.SchedulingAPIToken, cfg.SchedulingTimeout, dedup.New())
	payments := paymentgw.NewStripe(cfg.StripeSecretKey, cfg.PaymentTimeout)
	tokens := jwtsvc.New(cfg.ManageTokenSecret, cfg.ManageTokenTTL)

	bookingRepo := repository.NewBookingRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	eventRepo := repository.NewEventRepository(db)
	tx := repository.NewTxManager(db)

	reservationHandler := reservation.NewHandler(
		reservation.NewService(cat, sched, bookingRepo, clk, log.WithField("module", "reservation")),
	)
	paymentHandler := payment.NewHandler(payment.NewService(cat, payments, bookingRepo, paymentRepo, eventRepo, tx,
		payment.Config{Currency: cfg.PaymentCurrency, MinCents: cfg.PaymentMinCents, Timezone: cfg.BusinessTimezone},
		log.WithField("module", "payment")))
	finalizeHandler := finalize.NewHandler(finalize.NewService(finalize.Deps{
		Intents:   payments,
		Scheduler: sched,
		Bookings:  bookingRepo,
		Customers: customerRepo,
		Payments:  paymentRepo,
		Events:    eventRepo,
		Tx:        tx,
		Tokens:    tokens,
		Live:      a.hub,
		Notifier:  notifier,
		Clock:     clk,
		Log:       log.WithField("module", "finalize"),
		Timezone:  cfg.BusinessTimezone,
	}))
	webhookHandler := webhook.NewHandler(
		webhook.NewReconciler(bookingRepo, a.hub, clk, log.WithField("module", "webhook")),
		cfg.SchedulingWebhookSecret, log.WithField("module", "webhook"),
	)
	rescheduleHandler := reschedule.NewHandler(reschedule.NewService(bookingRepo, customerRepo, eventRepo, sched, tx, a.hub, notifier, clk,
		reschedule.Config{Cutoff: cfg.RescheduleCutoff, Timezone: cfg.BusinessTimezone},
		log.WithField("module", "reschedule")))
	lookupHandler := lookup.NewHandler(lookup.NewService(bookingRepo, eventRepo, sched, sqlDB, cfg.DefaultLocationID))
	liveHandler := livestatus.NewHandler(a.hub, cfg.CORSAllowedOrigins, log.WithField("module", "livestatus"))

	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.ErrorLogger(log))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	lookupHandler.RegisterProbes(r)

	manage := middleware.ManageTokenAuth(tokens, log)
	v1 := r.Group("/api/v1")
	{
		reservationHandler.RegisterRoutes(v1)
		paymentHandler.RegisterPublicRoutes(v1)
		finalizeHandler.RegisterRoutes(v1)
		webhookHandler.RegisterRoutes(v1)
		rescheduleHandler.RegisterRoutes(v1, manage)
		lookupHandler.RegisterRoutes(v1, manage)
		liveHandler.RegisterRoutes(v1, manage)

		ops := v1.Group("/ops", middleware.InternalTokenAuth(cfg.InternalToken, log))
		paymentHandler.RegisterOperatorRoutes(ops)
	}

	a.router = r
	return a, nil
}
