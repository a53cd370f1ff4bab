package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/jimmygitz3/final-project/internal/config"
	"github.com/jimmygitz3/final-project/internal/handler"
	"github.com/jimmygitz3/final-project/internal/lock"
	"github.com/jimmygitz3/final-project/internal/middleware"
	dbmongo "github.com/jimmygitz3/final-project/internal/mongo"
	"github.com/jimmygitz3/final-project/internal/mpesa"
	"github.com/jimmygitz3/final-project/internal/notify"
	"github.com/jimmygitz3/final-project/internal/repository"
	"github.com/jimmygitz3/final-project/internal/repository/memory"
	"github.com/jimmygitz3/final-project/internal/scheduler"
	"github.com/jimmygitz3/final-project/internal/service"
)

type stores struct {
	users       service.UserStore
	listings    service.ListingStore
	payments    service.PaymentStore
	connections service.ConnectionStore
	reviews     service.ReviewStore
	photos      service.PhotoStore
	journal     service.CallbackJournal
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStores := openStores(ctx, cfg)
	defer closeStores()

	if cfg.DatabaseURL != "" {
		db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect error: %v", err)
		}
		defer db.Close()
		journal := repository.NewJournalRepository(db)
		if err := journal.EnsureSchema(ctx); err != nil {
			log.Fatalf("journal schema error: %v", err)
		}
		st.journal = journal
		log.Println("Callback journal enabled")
	}

	var notifier service.Notifier
	if cfg.SMTP.Enabled() {
		notifier = notify.NewMailer(cfg.SMTP)
	}

	gateway := mpesa.Select(ctx, cfg.Mpesa, &http.Client{Timeout: 30 * time.Second})
	tokens := middleware.NewTokens(cfg.JWTSecret, middleware.TokenTTL)

	connections := service.NewConnectionService(st.connections, st.listings, st.users, st.payments)
	listings := service.NewListingService(st.listings, st.users, st.photos, connections)
	payments := service.NewPaymentService(service.PaymentDeps{
		Payments:    st.payments,
		Listings:    st.listings,
		Users:       st.users,
		Connections: st.connections,
		Gateway:     gateway,
		Configured:  cfg.Mpesa.IsConfigured(),
		Journal:     st.journal,
		Notifier:    notifier,
		Pricing:     cfg.Pricing,
	})

	router := handler.NewRouter(handler.Services{
		Auth:        service.NewAuthService(st.users, tokens),
		Listings:    listings,
		Payments:    payments,
		Connections: connections,
		Reviews:     service.NewReviewService(st.reviews, st.listings, st.connections),
		Activity:    service.NewActivityService(st.listings, st.payments, st.reviews, st.users),
	}, tokens, cfg.CORSOrigins)

	var locker scheduler.Locker
	if cfg.RedisURL != "" {
		client, err := lock.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis error: %v", err)
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, "kejah:jobs:")
	}
	jobs := scheduler.New(cfg.CleanupInterval, locker,
		scheduler.Job{Name: "listing-cleanup", Run: func(ctx context.Context) error {
			m, err := listings.Cleanup(ctx)
			if err == nil && m.DeletedCount > 0 {
				log.Printf("[Cleanup] deleted %d listing(s)", m.DeletedCount)
			}
			return err
		}},
		scheduler.Job{Name: "payment-reconcile", Run: payments.Reconcile},
	)
	jobs.Start(ctx)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("Listing service running on :%s …", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	jobs.Wait()
}

// openStores picks the storage backend named by STORAGE_DRIVER.
func openStores(ctx context.Context, cfg *config.Config) (*stores, func()) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Println("Using in-memory storage; data is lost on restart")
		m := memory.New()
		return &stores{
			users:       m.Users,
			listings:    m.Listings,
			payments:    m.Payments,
			connections: m.Connections,
			reviews:     m.Reviews,
			photos:      m.Photos,
			journal:     m.Journal,
		}, func() {}
	}

	client, err := dbmongo.NewMongoClient(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("mongo connect error: %v", err)
	}
	db := client.Database(cfg.MongoDatabase)
	if err := dbmongo.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("mongo index error: %v", err)
	}
	photos, err := repository.NewPhotoRepository(db)
	if err != nil {
		log.Fatalf("gridfs error: %v", err)
	}
	st := &stores{
		users:       repository.NewUserRepository(db),
		listings:    repository.NewListingRepository(db),
		payments:    repository.NewPaymentRepository(db),
		connections: repository.NewConnectionRepository(db),
		reviews:     repository.NewReviewRepository(db),
		photos:      photos,
	}
	return st, func() {
		_ = client.Disconnect(context.Background())
	}
}
