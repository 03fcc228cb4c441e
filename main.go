package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fitTrackAPI/handlers"
	"fitTrackAPI/internal/auth"
	"fitTrackAPI/internal/config"
	"fitTrackAPI/internal/database"
	"fitTrackAPI/internal/llm"
	"fitTrackAPI/internal/notification"
	"fitTrackAPI/internal/workers"
	"fitTrackAPI/middleware"
	"fitTrackAPI/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbPool, err := database.Connect(connectCtx, cfg.DatabaseURL)
	if err == nil {
		err = database.Migrate(connectCtx, dbPool)
	}
	cancel()
	if err != nil {
		log.Fatal("Failed to prepare database:", err)
	}
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	middleware.InitPrometheus()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	userService := services.NewUserService(dbPool)
	authService := services.NewAuthService(userService, tokens)

	authenticator := middleware.NewAuthenticator(tokens, userService)
	if cfg.ClerkEnabled() {
		clerk.SetKey(cfg.ClerkSecretKey)
		authenticator.WithClerk(userService, middleware.VerifyClerkSession)
		log.Println("Clerk initialized successfully")
	}

	notificationService := services.NewNotificationService(dbPool)
	dispatcher := services.NewNotificationDispatcher(notificationService, cfg.NotificationWorkers, cfg.NotificationQueueSize)
	defer dispatcher.Stop()

	fcmService, err := notification.NewFCMService(ctx, cfg.FCMServiceAccountJSON, cfg.FCMCredentialsFile)
	if err != nil {
		log.Printf("Warning: Could not initialize FCM, push is logged only: %v", err)
		dispatcher.SetPushProvider(services.LogPushProvider{})
	} else {
		dispatcher.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	challengeService := services.NewChallengeService(services.NewPgChallengeStore(dbPool), userService, dispatcher)
	workoutService := services.NewWorkoutService(dbPool)
	measurementService := services.NewMeasurementService(dbPool)
	chatService := services.NewChatService(dbPool)
	chatbotService := services.NewChatbotService(chatService, newChatbotModel(ctx, cfg))

	if cfg.SeedChatRooms {
		if err := chatService.SeedDefaultRooms(ctx); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	chatHub := services.NewChatHub(chatService)
	go chatHub.Run(ctx)

	workers.StartNotificationCleanupWorker(ctx, notificationService, 24*time.Hour)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rateLimiter.CleanupVisitors(ctx, time.Minute)

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	workoutHandler := handlers.NewWorkoutHandler(workoutService)
	progressHandler := handlers.NewProgressHandler(measurementService)
	chatHandler := handlers.NewChatHandler(ctx, chatService, chatHub, authenticator)
	chatbotHandler := handlers.NewChatbotHandler(chatbotService)

	r := mux.NewRouter()

	// Websocket upgrades bypass the wrapping middleware, which cannot hijack.
	r.HandleFunc("/ws/chat", chatHandler.ServeWS)

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(rateLimiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	if cfg.MetricsEnabled() {
		standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	}

	standardRouter.HandleFunc("/health", healthHandler(dbPool)).Methods("GET")

	api := standardRouter.PathPrefix("/api").Subrouter()

	// -------------------------------------------------------------------------
	// PUBLIC ROUTES
	// -------------------------------------------------------------------------
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/users", userHandler.ListUsers).Methods("GET")

	api.Handle("/challenges", authenticator.OptionalAuthMiddleware(http.HandlerFunc(challengeHandler.ListChallenges))).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authenticator.AuthMiddleware)

	trainerOnly := func(h http.HandlerFunc) http.Handler { return middleware.RequireTrainer(h) }

	protected.HandleFunc("/users/me", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/users/me", userHandler.UpdateProfile).Methods("PUT")

	protected.Handle("/challenges", trainerOnly(challengeHandler.CreateChallenge)).Methods("POST")
	protected.HandleFunc("/challenges/user/me", challengeHandler.GetMyChallenges).Methods("GET")
	protected.HandleFunc("/challenges/leaderboard/{id}", challengeHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/challenges/{id}/join", challengeHandler.JoinChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{id}/progress", challengeHandler.UpdateProgress).Methods("PUT")
	protected.Handle("/challenges/{id}/approve/{participantId}", trainerOnly(challengeHandler.ApproveParticipant)).Methods("PUT")
	protected.Handle("/challenges/{id}/winner", trainerOnly(challengeHandler.DeclareWinner)).Methods("POST")
	protected.HandleFunc("/challenges/{id}", challengeHandler.DeleteChallenge).Methods("DELETE")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/{id}", notificationHandler.DeleteNotification).Methods("DELETE")

	protected.HandleFunc("/workouts", workoutHandler.CreateWorkout).Methods("POST")
	protected.HandleFunc("/workouts", workoutHandler.ListWorkouts).Methods("GET")

	protected.HandleFunc("/progress", progressHandler.CreateEntry).Methods("POST")
	protected.HandleFunc("/progress", progressHandler.ListEntries).Methods("GET")
	protected.HandleFunc("/progress/summary", progressHandler.Summary).Methods("GET")

	protected.HandleFunc("/chat/rooms", chatHandler.ListRooms).Methods("GET")
	protected.HandleFunc("/chat/rooms/{roomId}/join", chatHandler.JoinRoom).Methods("POST")
	protected.HandleFunc("/chat/rooms/{roomId}/messages", chatHandler.GetMessages).Methods("GET")

	protected.HandleFunc("/chatbot/history", chatbotHandler.History).Methods("GET")
	protected.HandleFunc("/chatbot/message", chatbotHandler.SendMessage).Methods("POST")

	// Registered after /challenges/user/me so the literal path wins.
	api.Handle("/challenges/{id}", authenticator.OptionalAuthMiddleware(http.HandlerFunc(challengeHandler.GetChallenge))).Methods("GET")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "x-auth-token"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)

	port := ":" + cfg.Port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func healthHandler(dbPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := dbPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "fitTrack-api"}`))
	}
}

// newChatbotModel returns nil, meaning rule-based answers, unless an Ollama
// model is configured and available.
func newChatbotModel(ctx context.Context, cfg *config.Config) llm.LLM {
	if cfg.OllamaModel == "" {
		return nil
	}
	client, err := llm.NewOllamaClient(cfg.OllamaModel, cfg.OllamaTimeout)
	if err != nil {
		log.Printf("Warning: chatbot falls back to rules: %v", err)
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.IsModelAvailable(checkCtx); err != nil {
		log.Printf("Warning: chatbot falls back to rules: %v", err)
		return nil
	}
	log.Printf("Chatbot using Ollama model %s", cfg.OllamaModel)
	return client
}
