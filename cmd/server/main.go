package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftloop/mailcore/config"
	"github.com/driftloop/mailcore/internal/abtest"
	"github.com/driftloop/mailcore/internal/campaign"
	"github.com/driftloop/mailcore/internal/delivery"
	adminhttp "github.com/driftloop/mailcore/internal/http"
	"github.com/driftloop/mailcore/internal/http/middleware"
	"github.com/driftloop/mailcore/internal/provider"
	"github.com/driftloop/mailcore/internal/render"
	"github.com/driftloop/mailcore/internal/scheduler"
	"github.com/driftloop/mailcore/internal/sequence"
	"github.com/driftloop/mailcore/internal/store"
	"github.com/driftloop/mailcore/internal/unsubscribe"
	"github.com/driftloop/mailcore/pkg/logger"
)

// osExit is a variable so tests could stub it out, matching the teacher's
// own main.go convention.
var osExit = os.Exit

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		osExit(1)
		return
	}

	appLogger := logger.NewLogger(cfg.LogLevel)
	appLogger.Info("starting mailcore delivery engine")

	db, err := store.Connect(cfg.DB)
	if err != nil {
		appLogger.WithField("error", err.Error()).Error("failed to connect to database")
		osExit(1)
		return
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		appLogger.WithField("error", err.Error()).Error("failed to migrate schema")
		osExit(1)
		return
	}

	repos := store.New(db)

	providerClient := provider.New(http.DefaultClient, provider.Config{
		BaseURL:           cfg.Provider.BaseURL,
		APIKey:            cfg.Provider.APIKey,
		DefaultSenderName: cfg.Provider.DefaultSenderName,
		DefaultSender:     cfg.Provider.DefaultSenderEmail,
		DefaultReplyTo:    cfg.Provider.ReplyTo,
		UseBroadcastAPI:   cfg.Provider.UseBroadcastAPI,
		DefaultSegmentID:  cfg.Provider.DefaultSegmentID,
		ShortLinkBaseURL:  cfg.ShortLinkBaseURL,
	}, appLogger)

	renderer := render.New(repos.ShortUrls)
	unsubPipeline := unsubscribe.New(repos.Subscribers, providerClient, appLogger)

	seqProcessor := sequence.New(
		repos.Sequences,
		repos.Subscribers,
		repos.DeliveryLogs,
		repos.BrandSettings,
		providerClient,
		renderer,
		cfg.RegionalOffset,
		cfg.SiteURL,
		cfg.Provider.UseBroadcastAPI,
		appLogger,
	)

	dispatcher := campaign.New(
		repos.Campaigns,
		repos.Subscribers,
		repos.ContactLists,
		repos.DeliveryLogs,
		repos.BrandSettings,
		providerClient,
		renderer,
		cfg.SiteURL,
		cfg.Provider.UseBroadcastAPI,
		appLogger,
	)

	abOrchestrator := abtest.New(repos.Campaigns, repos.Subscribers, repos.DeliveryLogs, dispatcher, appLogger)

	sched := scheduler.New(seqProcessor, abOrchestrator, dispatcher, cfg.SchedulerInterval, appLogger)

	webhookVerifier, err := delivery.NewVerifier(cfg.Webhook.SigningSecret)
	if err != nil {
		appLogger.WithField("error", err.Error()).Error("failed to construct webhook verifier")
		osExit(1)
		return
	}
	webhookProcessor := delivery.NewProcessor(repos.WebhookEvents, repos.DeliveryLogs, appLogger)

	adminAuth := middleware.NewAdminAuth(cfg.Admin.APIKey, repos.Admin)

	mux := http.NewServeMux()

	adminhttp.NewCampaignHandler(repos.Campaigns, repos.DeliveryLogs, dispatcher, appLogger).RegisterRoutes(mux, adminAuth.RequireAdmin())
	adminhttp.NewSequenceHandler(repos.Sequences, repos.Subscribers, appLogger).RegisterRoutes(mux, adminAuth.RequireAdmin())
	subscriberHandler := adminhttp.NewSubscriberHandler(repos.Subscribers, repos.Sequences, cfg.Admin.APIKey, appLogger)
	subscriberHandler.RegisterRoutes(mux, adminAuth.RequireAdmin())
	subscriberHandler.RegisterPublicRoutes(mux)
	adminhttp.NewContactListHandler(repos.ContactLists, appLogger).RegisterRoutes(mux, adminAuth.RequireAdmin())
	adminhttp.NewBrandHandler(repos.BrandSettings, appLogger).RegisterRoutes(mux, adminAuth.RequireAdmin())
	adminhttp.NewTemplateHandler(repos.BrandSettings, renderer, providerClient, cfg.SiteURL, appLogger).RegisterRoutes(mux, adminAuth.RequireAdmin())
	adminhttp.NewDashboardHandler(repos.DeliveryLogs, repos.Subscribers, appLogger).RegisterRoutes(mux, adminAuth.RequireAdmin())
	adminhttp.NewAdminSessionHandler(repos.Admin, appLogger).RegisterRoutes(mux)
	adminhttp.NewPublicHandler(unsubPipeline, repos.Campaigns, cfg.SiteURL, appLogger).RegisterRoutes(mux)
	adminhttp.NewWebhookHandler(webhookVerifier, webhookProcessor, appLogger).RegisterRoutes(mux)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sched.Run(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		appLogger.Info("shutting down")
		_ = srv.Shutdown(context.Background())
	}()

	appLogger.WithField("address", addr).Info("server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		appLogger.WithField("error", err.Error()).Error("server failed")
		osExit(1)
		return
	}
}
