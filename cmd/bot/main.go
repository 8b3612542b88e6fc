package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/JustSeanC/camp-weather-bot/internal/config"
	"github.com/JustSeanC/camp-weather-bot/internal/database"
	"github.com/JustSeanC/camp-weather-bot/internal/discord"
	"github.com/JustSeanC/camp-weather-bot/internal/ride"
	"github.com/JustSeanC/camp-weather-bot/internal/sweeper"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()
	if cfg.DiscordToken == "" {
		log.Fatal("DISCORD_TOKEN is required")
	}
	if cfg.RideChannelID == "" {
		log.Fatal("RIDE_CHANNEL_ID is required")
	}

	ctx := context.Background()

	// Initialize database connection
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Connected to database successfully")

	// Ride feature
	repo := ride.NewRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	store := ride.NewStore(repo, log)
	if err := store.Load(ctx); err != nil {
		log.WithError(err).Warn("Failed to load ride store, starting empty")
	}

	// Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("Failed to create Discord session: %v", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions

	surface := discord.NewSurface(session, cfg.GuildID, cfg.JoinEmoji)
	service := ride.NewService(store, surface, surface, cfg.RideChannelID, cfg.OverviewRoleID, log)

	matcher := discord.NewReactionMatcher(service, cfg.JoinEmoji, log)
	commands := discord.NewCommandHandler(service, log)
	session.AddHandler(matcher.Handle)
	session.AddHandler(commands.Handle)

	if err := session.Open(); err != nil {
		log.Fatalf("Failed to open Discord session: %v", err)
	}
	defer session.Close()
	log.Info("Discord session opened")

	if err := commands.Register(session, cfg.GuildID); err != nil {
		log.Fatalf("Failed to register slash commands: %v", err)
	}

	// Expiry sweeper
	sw, err := sweeper.New(service, cfg.SweepCron, cfg.Timezone, log)
	if err != nil {
		log.Fatalf("Failed to create sweeper: %v", err)
	}
	sw.Start()
	defer sw.Stop()

	// Read-only HTTP ride board
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/rides", ride.NewHandler(service).Routes())
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Infof("Ride board listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown failed")
	}
}
