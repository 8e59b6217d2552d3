// Package main is the entry point for the museo exhibit server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/bbernstein/museo-go/internal/api"
	"github.com/bbernstein/museo-go/internal/config"
	"github.com/bbernstein/museo-go/internal/database"
	"github.com/bbernstein/museo-go/internal/database/repositories"
	"github.com/bbernstein/museo-go/internal/services/assets"
	"github.com/bbernstein/museo-go/internal/services/audio"
	"github.com/bbernstein/museo-go/internal/services/device"
	"github.com/bbernstein/museo-go/internal/services/display"
	"github.com/bbernstein/museo-go/internal/services/exhibit"
	"github.com/bbernstein/museo-go/internal/services/library"
	"github.com/bbernstein/museo-go/internal/services/link"
	"github.com/bbernstein/museo-go/internal/services/playback"
	"github.com/bbernstein/museo-go/internal/services/pubsub"
	"github.com/bbernstein/museo-go/internal/services/trivia"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var startTime = time.Now()

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	printBanner(cfg)

	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 5,
		MaxOpenConn: 10,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	log.Println("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migrations complete")

	settingRepo := repositories.NewSettingRepository(db)
	bindingRepo := repositories.NewTagBindingRepository(db)
	fragmentRepo := repositories.NewFragmentRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps := pubsub.New()

	// Serial link and device state
	linkManager := link.NewManager(link.Config{
		HandshakeMessage: cfg.SerialHandshake,
		AckMessage:       cfg.SerialAck,
		ResetMessage:     cfg.SerialReset,
		HandshakeTimeout: cfg.SerialHandshakeTimeout,
		ScanInterval:     cfg.SerialScanInterval,
		PollInterval:     5 * time.Millisecond,
		LineBuffer:       64,
	}, link.SerialPorts{
		BaudRate:    cfg.SerialBaudRate,
		ReadTimeout: cfg.SerialReadTimeout,
	}, repositories.NewPortMemory(settingRepo), ps)

	store := device.NewStore(device.NewDecoder(device.WireFormat(cfg.DeviceWireFormat)), ps)
	go store.Run(ctx, linkManager.Lines())
	linkManager.Start()

	// Display and audio
	resolver := assets.NewResolver(cfg.AssetDir)
	displayService := display.NewService(resolver, ps)

	var output playback.AudioOutput
	if cfg.AudioEnabled {
		audioOutput := audio.NewOutput(resolver)
		defer audioOutput.Close()
		output = audioOutput
		log.Printf("🔊 Audio output enabled (device available: %v)", audio.Available)
	} else {
		log.Println("🔇 Audio output disabled")
	}
	tracker := playback.NewAudioTracker(output, playback.AudioConfig{
		StartTimeout: cfg.AudioStartTimeout,
		SettleDelay:  cfg.AudioSettleDelay,
		PollInterval: 20 * time.Millisecond,
	})
	tracker.SetStartedCallback(displayService.NarrationStarted)

	// Trivia
	triviaController := trivia.NewController(trivia.Config{
		ResolveDelay: cfg.TriviaResolveDelay,
	}, tracker, tracker, displayService, ps)

	input := trivia.NewJoystickInput(trivia.InputConfig{
		Deadzone:     cfg.JoystickDeadzone,
		Threshold:    cfg.JoystickThreshold,
		Cooldown:     cfg.InputCooldown,
		PollInterval: 20 * time.Millisecond,
	}, store, triviaController)
	go input.Run(ctx)

	// Sequences
	sequences := library.New(cfg.SequenceDir)
	if err := sequences.Watch(); err != nil {
		log.Printf("Warning: sequence hot reload disabled: %v", err)
	}
	defer sequences.Close()

	player := playback.NewPlayer(tracker, playback.Sinks{
		Image:   displayService,
		Text:    displayService,
		Avatar:  displayService,
		Actions: displayService,
		Trivia:  triviaController,
	}, ps)
	player.SetLoop(cfg.SequenceLoop)
	player.AddObserver(displayService.HandlePlaybackEvent)

	// RFID flow
	exhibitService := exhibit.NewService(bindingRepo, fragmentRepo, sequences, player, ps)
	if _, err := exhibitService.SeedBindings(ctx, cfg.BindingsFile); err != nil {
		log.Printf("Warning: failed to seed tag bindings: %v", err)
	}
	player.AddObserver(exhibitService.HandlePlaybackEvent)
	triviaController.OnFragmentFound(exhibitService.RecordFragment)
	go exhibitService.Run(ctx)

	// Create router
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin, "http://localhost:3000", "http://localhost:4000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		Debug:            cfg.IsDevelopment(),
	})
	router.Use(corsMiddleware.Handler)

	router.Get("/health", healthCheckHandler)

	apiServer := api.NewServer(api.Deps{
		Device:    store,
		Link:      linkManager,
		Display:   displayService,
		Library:   sequences,
		Player:    player,
		Trivia:    triviaController,
		Fragments: fragmentRepo,
		Tags:      exhibitService,
		PubSub:    ps,
		AssetDir:  cfg.AssetDir,
	})
	// The websocket stream is long-lived, so only the REST routes get a timeout.
	router.Get("/ws", apiServer.ServeWebsocket)
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		apiServer.Mount(r)
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://localhost:%s\n", cfg.Port)
		log.Printf("Live updates: ws://localhost:%s/ws\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cleanup services in reverse order
	player.Stop()
	cancel()
	linkManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// healthCheckHandler returns the server health status.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := fmt.Sprintf(`{
  "status": "ok",
  "timestamp": "%s",
  "version": "%s",
  "uptime": "%s"
}`, time.Now().UTC().Format(time.RFC3339), Version, time.Since(startTime).Round(time.Second))

	_, _ = w.Write([]byte(response))
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  Museo Exhibit Server")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  Sequences:   %s\n", cfg.SequenceDir)
	fmt.Printf("  Assets:      %s\n", cfg.AssetDir)
	fmt.Printf("  Wire format: %s\n", cfg.DeviceWireFormat)
	fmt.Printf("  Audio:       %v\n", cfg.AudioEnabled)
	fmt.Println("============================================")
}
