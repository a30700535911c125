package app

import (
	"context"
	"flag"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"ipwarden/internal/app/bootstrap"
	"ipwarden/internal/app/server"
	"ipwarden/internal/config"
	"ipwarden/internal/jobs/runtime"
	"ipwarden/internal/support"
)

const defaultBackendPort = 8086

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	backendPortFlag := flag.Int("backend-port", defaultBackendPort, "Port for API server")
	productionFlag := flag.Bool("production", false, "Run in production mode")
	flag.Parse()

	config.SetProductionMode(*productionFlag)
	log.SetLevel(logLevel())

	backendPort := resolvePort("BACKEND_PORT", "backend-port", *backendPortFlag)

	redisClient, err := support.GetRedisClient()
	if err != nil {
		log.Warn("Redis unavailable, running standalone", "error", err)
		redisClient = nil
	} else {
		defer support.CloseRedisClient()
	}

	svc, err := bootstrap.Setup()
	if err != nil {
		return err
	}
	defer svc.Close()

	if redisClient != nil {
		config.EnableRedisSynchronization(context.Background(), redisClient)
	}

	go runtime.StartReputationSweepRoutine(context.Background(), svc)

	return server.OpenRoutes(backendPort, svc)
}

// logLevel keeps debug output out of production logs while leaving local
// runs verbose.
func logLevel() log.Level {
	if config.InProductionMode {
		return log.InfoLevel
	}
	return log.DebugLevel
}

func resolvePort(primaryEnv, legacyEnv string, fallback int) int {
	if port := readPort(primaryEnv); port != 0 {
		return port
	}
	if port := readPort(legacyEnv); port != 0 {
		return port
	}
	return fallback
}

func readPort(envKey string) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port == 0 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return 0
	}
	return port
}
