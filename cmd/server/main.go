package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-course-format/internal/auth"
	"go-course-format/internal/cache"
	"go-course-format/internal/config"
	"go-course-format/internal/data"
	"go-course-format/internal/format"
	"go-course-format/internal/handler"
	"go-course-format/internal/i18n"
	"go-course-format/internal/logger"
	"go-course-format/internal/middleware"
	"go-course-format/internal/render"
	"go-course-format/internal/service"
	"go-course-format/internal/session"
	"go-course-format/internal/view"
	"go-course-format/web"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, os.Stdout)

	// --- Pre-flight Checks ---
	if cfg.Session.SecretKey == "" || cfg.Session.SecretKey == "CHANGE_ME_IN_PRODUCTION_SECRET!!" {
		log.Fatal(errors.New("session secret key not set"), "Please set a secure COURSE_SESSION_SECRETKEY environment variable.")
	}

	// --- Database Initialization and Migration ---
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	// --- Session Management Setup ---
	sessionManager := session.New(cfg.Session, cfg.Server.TLS.Enabled, cfg.DB.Driver, db.DB)

	// --- Authentication and Authorization Setup ---
	log.Info("Initializing authentication and authorization...")
	var authenticator handler.Authenticator
	oidcAuth, err := auth.NewAuthenticator(context.Background(), cfg.OIDC)
	switch {
	case errors.Is(err, auth.ErrLoginDisabled):
		log.Warn("OIDC issuer not configured; login is disabled.")
	case err != nil:
		log.Fatal(err, "Failed to initialize authenticator")
	default:
		authenticator = oidcAuth
	}
	enforcer, err := auth.NewEnforcer(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, log)
	permissions := auth.NewPermissions(enforcer)
	log.Info("Auth components initialized and policies seeded.")

	// --- Strings and View Template Initialization ---
	strs, err := i18n.New()
	if err != nil {
		log.Fatal(err, "Failed to load strings")
	}
	log.Info("Initializing view templates...")
	viewService, err := view.New(web.TemplateFS, view.Funcs(strs))
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}
	staticFS, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		log.Fatal(err, "Failed to open static assets")
	}
	log.Info("View templates initialized.")

	// --- Cache Initialization ---
	log.Info("Initializing SQLite cache...")
	textCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer textCache.Close()
	log.Info("Cache initialized.")

	// --- Dependency Injection and Handler Initialization ---
	// Initialize the application layers, injecting dependencies from top to bottom.
	courseRepository := data.NewCourseRepository(db)
	forumRepository := data.NewForumRepository(db)
	readRepository := data.NewReadRepository(db)
	groupRepository := data.NewGroupRepository(db)
	userRepository := data.NewUserRepository(db)

	courseService := service.NewCourseService(courseRepository, permissions)
	forumService := service.NewForumService(forumRepository, readRepository, groupRepository, permissions, cfg.Forum)
	renderer := render.New(forumService, viewService, format.New(), strs, log).WithCache(textCache)

	grant := func(userID int64) error { return auth.GrantAuthenticated(enforcer, userID) }
	handlers := handler.Handlers{
		Course: handler.NewCourseHandler(courseService, forumService, renderer, viewService, sessionManager, strs, log),
		Forum:  handler.NewForumHandler(courseService, forumService, renderer, viewService, sessionManager, strs),
		Auth:   handler.NewAuthHandler(authenticator, sessionManager, userRepository, grant, log),
		Seo:    handler.NewSeoHandler(courseService, cfg.Forum.WWWRoot),
	}

	authzMiddleware := middleware.Authorizer(permissions, userRepository, sessionManager, log)
	settingsMiddleware := middleware.DisplayMode(sessionManager, cfg.Forum.DisplayMode)
	errorMiddleware := middleware.Error(log, viewService)

	// --- Router Setup ---
	router := handler.NewRouter(handlers, staticFS, sessionManager, authzMiddleware, settingsMiddleware, errorMiddleware)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}
