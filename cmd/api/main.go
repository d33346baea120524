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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/jhoicas/commerce-core/docs"
	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/application/ordering"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
	"github.com/jhoicas/commerce-core/internal/infrastructure/fulfillment"
	"github.com/jhoicas/commerce-core/internal/infrastructure/memory"
	"github.com/jhoicas/commerce-core/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/commerce-core/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/commerce-core/internal/interfaces/http"
	"github.com/jhoicas/commerce-core/pkg/config"
	"github.com/jhoicas/commerce-core/pkg/logger"
	"github.com/jhoicas/commerce-core/pkg/metrics"
)

const swaggerFile = "./docs/swagger.json"

// storage reúne lo que cambia entre PostgreSQL y el store en memoria.
type storage struct {
	tx              inventory.TxRunner
	repos           repository.Repositories
	variants        ordering.VariantCatalog
	shippingMethods ordering.ShippingMethodCatalog
	close           func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st := openStorage(ctx, cfg, log)
	defer st.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	retry := inventory.RetryConfig{MaxRetries: cfg.Inventory.ConflictRetries, BaseDelay: cfg.Inventory.RetryBaseDelay}
	invDeps := inventory.Deps{
		Tx:      st.tx,
		Repos:   st.repos,
		Retry:   retry,
		Metrics: m,
		Log:     log.Component("inventory"),
	}
	if cfg.Redis.Enabled() {
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		invDeps.Cache = infraredis.NewAvailabilityCache(client, cfg.Redis.TTL)
	}

	orderUC := ordering.NewOrderUseCase(ordering.Deps{
		Tx:              st.tx,
		Orders:          st.repos.Orders,
		Variants:        st.variants,
		ShippingMethods: st.shippingMethods,
		Planner:         fulfillment.NewPlanner(st.repos.StockItems, st.repos.Locations, log),
		Reservations:    inventory.NewReservationService(invDeps),
		Retry:           retry,
		Metrics:         m,
		Log:             log.Component("ordering"),
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Commerce Core API",
		}))
	} else {
		log.Warn().Str("file", swaggerFile).Msg("especificación OpenAPI no encontrada, /docs deshabilitado")
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		LocationUC: inventory.NewLocationUseCase(invDeps),
		StockUC:    inventory.NewStockUseCase(invDeps),
		TransferUC: inventory.NewTransferUseCase(invDeps),
		OrderUC:    orderUC,
		Gatherer:   reg,
		JWTSecret:  cfg.JWT.Secret,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openStorage abre PostgreSQL (creando el esquema si falta) o el store en memoria.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) storage {
	if cfg.App.Storage == "memory" {
		store := memory.NewStore()
		log.Warn().Msg("usando almacenamiento en memoria: los datos se pierden al reiniciar")
		return storage{
			tx:              store,
			repos:           store.Repositories(),
			variants:        store.Variants(),
			shippingMethods: store.ShippingMethods(),
			close:           func() {},
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		log.Fatal().Err(err).Msg("esquema de PostgreSQL")
	}
	return storage{
		tx:              postgres.NewTxRunner(pool),
		repos:           postgres.Repositories(pool),
		variants:        postgres.NewVariantRepository(pool),
		shippingMethods: postgres.NewShippingMethodRepository(pool),
		close:           pool.Close,
	}
}
