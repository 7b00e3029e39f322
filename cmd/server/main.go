package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/config"
	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/ml"
	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	modelConfigPath := flag.String("model-config", "", "path to model backend configuration file")
	flag.Parse()

	// .env is a development convenience only
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err == nil {
			log.Println("Loaded environment from .env")
		}
	}

	// Resolved after .env so ECOSCAN_CONFIG can come from it
	if *configPath == "" {
		*configPath = config.GetConfigPath()
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if *modelConfigPath != "" {
		cfg.ML.ConfigPath = *modelConfigPath
	}

	// Initialize ML service; misconfiguration is fatal here, never at request time
	model, err := ml.NewModel(cfg.ML.Type, cfg.ML.ConfigPath, cfg.Server.Debug)
	if err != nil {
		log.Fatal("Failed to create ML model:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := model.Load(ctx); err != nil {
		log.Fatal("Failed to load ML model:", err)
	}
	if closer, ok := model.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	log.Printf("Using %s model", model.Name())

	// Initialize and start server
	srv := server.New(ml.NewAnalyzer(model, cfg.Server.Debug), server.Options{
		Debug:          cfg.Server.Debug,
		RequestTimeout: cfg.RequestTimeout(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	if err := srv.Start(ctx, cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
