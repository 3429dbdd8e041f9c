package main

import (
	"context"
	"flag"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/adapters/config"
	"steuerpilot/internal/adapters/postgres"
	postgresrepo "steuerpilot/internal/repository/postgres"
	"steuerpilot/internal/taxdata"
	"steuerpilot/pkg/logger"
)

// Seeds the tax knowledge base. With a Gemini key configured it also stores
// embeddings so vector retrieval works; without one, keyword search still does.
func main() {
	dryRun := flag.Bool("dry-run", false, "List entries without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get().With("component", "seeder")
	ctx := context.Background()

	entries := taxdata.Entries()
	log.Infow("Seeding tax knowledge base", "entries", len(entries), "dry_run", *dryRun)

	if *dryRun {
		for _, e := range entries {
			log.Infow("would seed", "topic", e.Topic, "title", e.Title, "tax_year", e.TaxYear)
		}
		return
	}

	pg, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()

	var embedder ai.Embedder
	if cfg.AI.GeminiKey != "" {
		provider, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiModel, cfg.AI.RequestTimeout)
		if err != nil {
			log.Warnf("Embeddings disabled: %v", err)
		} else {
			embedder = provider
		}
	}

	repo := postgresrepo.NewKnowledgeRepository(pg.DB())
	seeded := 0
	for i := range entries {
		e := &entries[i]

		var embedding []float32
		if embedder != nil {
			vec, err := embedder.Embed(ctx, e.Title+"\n"+e.Body)
			if err != nil {
				log.Warnw("embedding failed, seeding without vector", "title", e.Title, "error", err)
			} else {
				embedding = vec
			}
		}

		if err := repo.Upsert(ctx, e, embedding); err != nil {
			log.Errorw("seed failed", "title", e.Title, "error", err)
			continue
		}
		seeded++
	}

	log.Infow("✓ Seeding complete", "seeded", seeded, "total", len(entries))
}
