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

	appbilling "github.com/hostalia/billing-api/internal/application/billing"
	domverifactu "github.com/hostalia/billing-api/internal/domain/verifactu"
	infrapdf "github.com/hostalia/billing-api/internal/infrastructure/pdf"
	"github.com/hostalia/billing-api/internal/infrastructure/postgres"
	infraverifactu "github.com/hostalia/billing-api/internal/infrastructure/verifactu"
	httpRouter "github.com/hostalia/billing-api/internal/interfaces/http"
	"github.com/hostalia/billing-api/pkg/config"
	"github.com/hostalia/billing-api/pkg/logger"
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
		Str("aeat_env", cfg.AEAT.AppEnv).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	invoiceRepo := postgres.NewInvoiceRepository(pool)
	seriesRepo := postgres.NewSeriesRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	submissionRepo := postgres.NewSubmissionRepository(pool)
	cancellationRepo := postgres.NewCancellationRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	aeatCfg := appbilling.AEATConfig{
		IssuerNIF:   cfg.AEAT.IssuerNIF,
		IssuerName:  cfg.AEAT.IssuerName,
		Environment: cfg.AEAT.Environment,
		AppEnv:      cfg.AEAT.AppEnv,
	}

	huellaSvc := domverifactu.NewHuellaService()
	xmlBuilder := infraverifactu.NewXMLBuilderService(cfg.AEAT)

	// Cliente SOAP AEAT: solo se usa si AppEnv es "test" o "prod".
	// En modo "dev" el orquestador no lo invoca y la factura queda PENDING.
	var submitter appbilling.Submitter
	if cfg.AEAT.AppEnv != infraverifactu.AppEnvDev && cfg.AEAT.AppEnv != "" {
		submitter = infraverifactu.NewSOAPClient()
	}

	gateway := appbilling.NewGatewayOrchestrator(
		xmlBuilder, submitter,
		invoiceRepo, cancellationRepo, submissionRepo,
		aeatCfg, log,
	)

	issueUC := appbilling.NewIssueInvoiceUseCase(txRunner, huellaSvc, gateway, aeatCfg, log)
	rectifyUC := appbilling.NewRectifyInvoiceUseCase(invoiceRepo, txRunner, huellaSvc, gateway, aeatCfg, log)
	cancelUC := appbilling.NewCancelInvoiceUseCase(invoiceRepo, txRunner, huellaSvc, gateway, aeatCfg, log)
	retryUC := appbilling.NewRetrySubmissionUseCase(invoiceRepo, cancellationRepo, gateway, log)
	queryUC := appbilling.NewInvoiceQueryUseCase(invoiceRepo, seriesRepo, submissionRepo, aeatCfg)
	previewUC := appbilling.NewPreviewPlanChangeUseCase(subscriptionRepo)

	pdfGenerator := infrapdf.NewMarotoPDFGenerator(cfg.AEAT)
	pdfUC := appbilling.NewInvoicePDFUseCase(invoiceRepo, pdfGenerator)

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
		Title:    "Hostalia Billing API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		IssueInvoice:    issueUC,
		RectifyInvoice:  rectifyUC,
		CancelInvoice:   cancelUC,
		RetrySubmission: retryUC,
		InvoiceQuery:    queryUC,
		InvoicePDF:      pdfUC,
		PreviewChange:   previewUC,
		JWTSecret:       cfg.JWT.Secret,
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
