package main

import (
	"context"
	"flag"
	"idcard-designer/config"
	"idcard-designer/editor/geometry"
	"idcard-designer/editor/render"
	"idcard-designer/handlers/api/assets"
	"idcard-designer/handlers/api/cards"
	"idcard-designer/handlers/api/templates"
	"idcard-designer/handlers/auth"
	"idcard-designer/handlers/websocket"
	authMiddleware "idcard-designer/middleware"
	"idcard-designer/stores"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

type server struct {
	cfg      *config.Config
	store    stores.Store
	auth     *auth.Service
	hub      *websocket.Hub
	renderer *cards.Renderer
}

// authenticated returns the middleware guarding mutating routes. Without a
// JWT secret there is nothing to verify against and the routes stay open.
func (s *server) authenticated() []func(http.Handler) http.Handler {
	if s.cfg.Auth.JWTSecret == "" {
		return nil
	}
	return []func(http.Handler) http.Handler{authMiddleware.AuthJWT(s.auth)}
}

func (s *server) setupRouter() *chi.Mux {
	guard := s.authenticated()

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/fonts", templates.HandleListFonts())

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", templates.HandleListTemplates(s.store))
			r.With(guard...).Post("/", templates.HandleCreateTemplate(s.store))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", templates.HandleGetTemplate(s.store))
				r.With(guard...).Put("/", templates.HandleUpdateTemplate(s.store, s.renderer.DefaultCanvas))
				r.With(guard...).Delete("/", templates.HandleDeleteTemplate(s.store))
				r.Get("/fields", templates.HandleGetLayout(s.store))
				r.With(guard...).Put("/fields", templates.HandleReplaceLayout(s.store, s.renderer.DefaultCanvas))
				r.Post("/render", s.renderer.HandleRender())
			})
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/{id}", assets.HandleGet(s.store))

			r.Group(func(r chi.Router) {
				r.Use(guard...)
				r.Post("/", assets.HandleUpload(s.store, s.cfg.MaxUploadBytes))
				r.Post("/crop", assets.HandleCrop(s.store, s.hub))
				r.Post("/signature", assets.HandleSignature(s.store, s.hub))
			})
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.auth.HandleLogin)
		r.Get("/callback", s.auth.HandleCallback)
	})

	return r
}

func waitForShutdown(srv *http.Server, ioo *socketio.Server) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	s := <-signalC
	logrus.WithField("signal", s).Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ioo.Close(nil)
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Failed to shut down cleanly")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	listenAddress := flag.String("listen", cfg.Listen, "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	bindings, err := render.LoadBindings(cfg.Editor.LabelBindingsFile)
	if err != nil {
		logrus.Fatalf("Failed to load label bindings: %v", err)
	}

	authService := auth.New(context.Background(), cfg.Auth)
	var tokens websocket.TokenParser
	if cfg.Auth.JWTSecret != "" {
		tokens = authService
	} else {
		logrus.Warn("JWT_SECRET is not set, editing routes are open to everyone")
	}

	store := stores.GetStore(cfg.Storage)
	canvas := geometry.Size{Width: cfg.Editor.CanvasWidth, Height: cfg.Editor.CanvasHeight}

	s := &server{
		cfg:   cfg,
		store: store,
		auth:  authService,
		hub:   websocket.NewHub(store, tokens, canvas),
		renderer: &cards.Renderer{
			Store:         store,
			Compositor:    render.NewCompositor(bindings),
			Rasterizer:    render.NewRasterizer(render.AssetSource{Assets: store}),
			DefaultCanvas: canvas,
		},
	}

	r := s.setupRouter()
	ioo := s.hub.SetupSocketIO(cfg.MaxUploadBytes)
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	srv := &http.Server{Addr: *listenAddress, Handler: r}
	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(srv, ioo)
}
