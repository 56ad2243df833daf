package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/atelierlumen/gallerybackend/config"
	"github.com/atelierlumen/gallerybackend/database"
	"github.com/atelierlumen/gallerybackend/handlers"
	"github.com/atelierlumen/gallerybackend/realtime"
	"github.com/atelierlumen/gallerybackend/repository"
	"github.com/atelierlumen/gallerybackend/services"
	"github.com/atelierlumen/gallerybackend/storage"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}

	store, err := storage.NewS3Store(context.Background(), cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize object storage: %v", err)
	}
	log.Printf("Using storage bucket %s", cfg.StorageBucket)
	log.Printf("Using database: %s", cfg.DatabasePath)

	imageRepo := repository.NewImageRepository(db)
	layoutRepo := repository.NewLayoutRepository(db)
	eventRepo := repository.NewEventRepository(db)
	contentRepo := repository.NewContentRepository(db)
	userRepo := repository.NewUserRepository(db)

	uploadService := services.NewUploadService(imageRepo, store, cfg.PublicBaseURL)
	imageService := services.NewImageService(imageRepo, layoutRepo, store)
	layoutService := services.NewLayoutService(imageRepo, layoutRepo)
	reorderService := services.NewReorderService(imageRepo, layoutRepo)
	eventService := services.NewEventService(eventRepo, imageRepo)

	hub := realtime.NewHub()
	go hub.Run()

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	imageHandler := handlers.NewImageHandler(uploadService, imageService, hub)
	layoutHandler := handlers.NewLayoutHandler(layoutService, reorderService, hub)
	eventHandler := handlers.NewEventHandler(eventService)
	contentHandler := handlers.NewContentHandler(contentRepo)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	requireAuth := handlers.AuthMiddleware(cfg.JWTSecret, userRepo)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Route("/images", func(r chi.Router) {
			r.Get("/", imageHandler.ListByContext)
			r.With(requireAuth).Post("/upload-url", imageHandler.RequestUploadURL)
			r.With(requireAuth).Post("/confirm", imageHandler.ConfirmUpload)
			r.With(requireAuth).Patch("/", imageHandler.UpdateImages)
			r.With(requireAuth).Delete("/", imageHandler.DeleteImages)
			r.With(requireAuth).Get("/orphaned", imageHandler.ListOrphaned)
			r.With(requireAuth).Delete("/orphaned", imageHandler.CleanupOrphaned)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", imageHandler.GetImage)
				r.With(requireAuth).Patch("/", imageHandler.UpdateImage)
				r.With(requireAuth).Delete("/", imageHandler.DeleteImage)
			})
		})

		r.With(requireAuth).Post("/layouts", layoutHandler.AssignLayout)
		r.With(requireAuth).Post("/reorder", layoutHandler.ReorderImages)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)
			r.Get("/slug/{slug}", eventHandler.GetEventBySlug)
			r.With(requireAuth).Post("/", eventHandler.CreateEvent)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", eventHandler.GetEvent)
				r.With(requireAuth).Patch("/", eventHandler.UpdateEvent)
				r.With(requireAuth).Delete("/", eventHandler.DeleteEvent)
				r.With(requireAuth).Post("/images", eventHandler.AddEventImage)
				r.With(requireAuth).Delete("/images/{instanceID}", eventHandler.RemoveEventImage)
			})
		})

		r.Route("/content", func(r chi.Router) {
			r.Get("/", contentHandler.ListContent)
			r.With(requireAuth).Patch("/", contentHandler.UpsertContent)
		})
	})

	r.Get("/ws", hub.ServeWS)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
