package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Azen0n/enginesvc/internal/answerlog"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/clients/sandbox"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/enroll"
	"github.com/Azen0n/enginesvc/internal/httpapi"
	"github.com/Azen0n/enginesvc/internal/intake"
	"github.com/Azen0n/enginesvc/internal/practicepool"
	"github.com/Azen0n/enginesvc/internal/practiceselect"
	"github.com/Azen0n/enginesvc/internal/progress"
	"github.com/Azen0n/enginesvc/internal/scoring"
	"github.com/Azen0n/enginesvc/internal/selection"
	"github.com/Azen0n/enginesvc/internal/store"
	"github.com/Azen0n/enginesvc/internal/theoryselect"
	"github.com/Azen0n/enginesvc/internal/topicgraph"
	"github.com/Azen0n/enginesvc/internal/validate"
	"github.com/Azen0n/enginesvc/internal/weakestlink"
)

func main() {
	cfg := config.Load()

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	catalogStore := catalog.NewStore(db.DB())
	progressStore := progress.NewStore(db, cfg)
	answerlogStore := answerlog.NewStore(db)
	weakestStore := weakestlink.NewStore(db)
	enrollStore := enroll.NewStore(db)

	poolBuilder := practicepool.NewBuilder(catalogStore, progressStore, answerlogStore, cfg)
	graphRegistry := topicgraph.NewRegistry(db)
	weakestMachine := weakestlink.NewMachine(weakestStore, progressStore, answerlogStore, catalogStore, poolBuilder, graphRegistry, cfg)

	scoringEngine := scoring.NewEngine(progressStore, answerlogStore, cfg)
	theorySelector := theoryselect.NewSelector(catalogStore, progressStore, answerlogStore, cfg)
	practiceSelector := practiceselect.NewSelector(catalogStore, progressStore, poolBuilder, weakestMachine, cfg)
	selectionFacade := selection.NewFacade(db, catalogStore, theorySelector, practiceSelector)

	sandboxClient := sandbox.NewClient(cfg.SandboxAPIURL, cfg.SandboxAPIHeader, cfg.SandboxAPIToken)
	validator := validate.NewValidator(catalogStore, sandboxClient)

	enrollService := enroll.NewService(db, enrollStore, catalogStore, progressStore, weakestStore, cfg)
	intakeService := intake.NewService(db, catalogStore, progressStore, answerlogStore, scoringEngine, weakestMachine, enrollStore, cfg)

	handler := httpapi.NewHandler(selectionFacade, intakeService, enrollService, progressStore, validator)

	app := fiber.New()

	app.Get("/health", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/enroll", handler.Enroll)
	app.Get("/topics/:topic/next-theory", handler.NextTheory)
	app.Get("/next-practice", handler.NextPractice)
	app.Post("/problems/:problem/answer", handler.SubmitAnswer)
	app.Post("/problems/:problem/skip", handler.SkipProblem)
	app.Post("/target-points", handler.ChangeTargetPoints)

	log.Fatal(app.Listen("0.0.0.0:" + cfg.Port))
}
