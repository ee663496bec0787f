package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chat-backend/internal/auth"
	"chat-backend/internal/chat"
	"chat-backend/internal/config"
	"chat-backend/internal/database"
	"chat-backend/internal/delivery"
	"chat-backend/internal/handlers"
	"chat-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Core services
	registry := chat.NewRegistry(db, cfg.Chat.ConnectionTTL)
	messageLog := chat.NewMessageLog(db, cfg.Chat.HistoryPageSize)
	roomService := chat.NewRoomService(db)
	hub := delivery.NewHub()
	dispatcher := chat.NewDispatcher(registry, messageLog, hub, cfg.Chat.PushTimeout)
	authService := auth.NewService(db, cfg)

	// Background reclamation of expired connection rows
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go registry.RunSweeper(sweepCtx, cfg.Chat.SweepInterval)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	chatHandlers := handlers.NewChatHandlers(roomService, messageLog, authService)
	wsHandlers := handlers.NewWebSocketHandlers(authService, registry, dispatcher, roomService, hub)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, chatHandlers, wsHandlers)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

func setupRoutes(mux *http.ServeMux, authHandlers *handlers.AuthHandlers, chatHandlers *handlers.ChatHandlers, wsHandlers *handlers.WebSocketHandlers) {
	// Auth routes
	mux.HandleFunc("/login", authHandlers.Login)
	mux.HandleFunc("/register", authHandlers.Register)

	// Chat routes
	mux.HandleFunc("/chats", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chats" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			chatHandlers.ListChats(w, r)
		case http.MethodPost:
			chatHandlers.CreateChat(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Chat sub-routes
	mux.HandleFunc("/chats/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) < 3 || parts[2] == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		// /chats/{chatId}/messages
		if len(parts) == 4 && parts[3] == "messages" && r.Method == http.MethodGet {
			chatHandlers.GetChatMessages(w, r, parts[2])
			return
		}

		// /chats/{chatId}
		if len(parts) == 3 && r.Method == http.MethodGet {
			chatHandlers.GetChat(w, r, parts[2])
			return
		}

		http.Error(w, "endpoint not found", http.StatusNotFound)
	})

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
