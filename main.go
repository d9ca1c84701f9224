package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"tornado_server/config"
	"tornado_server/routes"
	"tornado_server/services"
	"tornado_server/socket"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Initialize DynamoDB client and service
	log.Println("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient(cfg.AWSRegion)
	dynamoService := &services.DynamoService{Client: dynamoClient}
	log.Println("DynamoDB client initialized.")

	// Socket.IO server for live match and chat updates
	socketServer := socket.NewServer()
	go func() {
		if err := socketServer.Serve(); err != nil {
			log.Fatalf("❌ Socket.IO server error: %v", err)
		}
	}()
	defer socketServer.Close()

	// Initialize Services
	notificationService := services.NewNotificationService(dynamoService, cfg.ExpoPushURL)
	sessionService := &services.SessionService{
		Dynamo:   dynamoService,
		Feed:     socketServer,
		Notifier: notificationService,
	}
	matchmakerService := &services.MatchmakerService{
		Dynamo:        dynamoService,
		Feed:          socketServer,
		Notifier:      notificationService,
		SearchTimeout: cfg.SearchTimeout,
	}
	consentService := &services.ConsentService{
		Dynamo:   dynamoService,
		Sessions: sessionService,
		Feed:     socketServer,
		Notifier: notificationService,
	}
	matchService := &services.MatchService{Dynamo: dynamoService}
	chatService := &services.ChatService{
		Dynamo:   dynamoService,
		Sessions: sessionService,
		Feed:     socketServer,
		Notifier: notificationService,
	}
	profileService := &services.ProfileService{Dynamo: dynamoService}

	// Background sweeper: expire overdue matches, emit timer warnings and
	// release searchers whose pairing window ran out.
	go runSweeper(cfg.SweepInterval, sessionService, matchmakerService)

	// Initialize the router
	r := mux.NewRouter()

	// Register a welcome route
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to Tornado")
	}).Methods("GET")

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods("GET")

	// Register routes
	routes.RegisterMatchRoutes(r, matchmakerService, consentService, sessionService, matchService)
	routes.RegisterChatRoutes(r, chatService)
	routes.RegisterProfileRoutes(r, profileService)
	r.PathPrefix("/socket.io/").Handler(socketServer)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// Start the HTTP server
	log.Printf("Starting server on port %s...\n", cfg.ServerPort)
	log.Fatal(http.ListenAndServe(":"+cfg.ServerPort, corsHandler))
}

func runSweeper(interval time.Duration, sessions *services.SessionService, matchmaker *services.MatchmakerService) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		if released, err := matchmaker.ReleaseStaleSearchers(ctx); err != nil {
			log.Printf("⚠️ Sweeper: releasing stale searchers failed: %v", err)
		} else if released > 0 {
			log.Printf("🔍 Sweeper: released %d stale searcher(s)", released)
		}
		if warned, err := sessions.SweepWarnings(ctx); err != nil {
			log.Printf("⚠️ Sweeper: timer warning pass failed: %v", err)
		} else if warned > 0 {
			log.Printf("⏳ Sweeper: warned %d match(es)", warned)
		}
		if expired, err := sessions.SweepExpired(ctx); err != nil {
			log.Printf("⚠️ Sweeper: expiry pass failed: %v", err)
		} else if expired > 0 {
			log.Printf("⏰ Sweeper: expired %d match(es)", expired)
		}
		cancel()
	}
}
