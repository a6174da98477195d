package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/Aryan20apr/PulseChat/config"
	"github.com/Aryan20apr/PulseChat/modules/broadcast"
	"github.com/Aryan20apr/PulseChat/modules/relay"
	"github.com/Aryan20apr/PulseChat/modules/wsserver"
)

func main() {
	log.Println("=== PulseChat - WebSocket chat relay ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := mono.LogLevelInfo
	if cfg.LogLevel == "error" {
		logLevel = mono.LogLevelError
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// Create modules
	broadcastModule := broadcast.NewModule(logger)
	relayModule := relay.NewModule(relay.Config{
		Backend: cfg.RelayBackend,
		Redis: relay.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		NATSURL: cfg.NATSURL,
	}, broadcastModule.Hub(), logger)
	wsModule := wsserver.NewModule(wsserver.Config{
		Addr:           cfg.Addr(),
		AllowedOrigins: cfg.AllowedOrigins,
		RatePerSecond:  cfg.RatePerSecond,
		RateBurst:      cfg.RateBurst,
		SendBuffer:     cfg.SendBufferSize,
		MaxMessageSize: cfg.MaxMessageSize,
	}, broadcastModule.Hub(), relayModule, relayModule, logger)

	// Register modules with the framework.
	// Order: the registry first, then the relay that delivers into it, then
	// the server that accepts connections and publishes through the relay.
	for _, m := range []mono.Module{broadcastModule, relayModule, wsModule} {
		if err := app.Register(m); err != nil {
			log.Fatalf("Failed to register module %s: %v", m.Name(), err)
		}
	}

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	logger.Info("Application started",
		"addr", cfg.Addr(),
		"relay", cfg.RelayBackend,
		"websocket", "/ws?userId=&username=&chatId=",
	)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				// Close client connections while the relay can still carry
				// their typing_stop events.
				wsModule.CloseConnections(ctx)
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
