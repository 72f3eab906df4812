package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tu-usuario/inventario-core/internal/application/inventory"
	"github.com/tu-usuario/inventario-core/internal/domain/repository"
	"github.com/tu-usuario/inventario-core/internal/infrastructure/memory"
	"github.com/tu-usuario/inventario-core/internal/infrastructure/postgres"
	httpRouter "github.com/tu-usuario/inventario-core/internal/interfaces/http"
	"github.com/tu-usuario/inventario-core/pkg/config"
	"github.com/tu-usuario/inventario-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	// Backend de almacenamiento intercambiable detrás de los mismos puertos:
	// postgres para operación real, memory como modo demo sin base de datos.
	var (
		ledger     repository.MovementLedger
		projection repository.StockProjection
	)
	if cfg.Storage.Driver == config.StoragePostgres {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		ledger = postgres.NewMovementLedgerRepository(pool)
		projection = postgres.NewStockProjectionRepository(pool)
	} else {
		log.Warn().Msg("STORAGE_DRIVER=memory: los datos no sobreviven al reinicio")
		ledger = memory.NewMovementLedger()
		projection = memory.NewStockProjection()
	}

	inventorySvc := inventory.NewService(ledger, projection, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario Core API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Inventory: inventorySvc,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
