package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shinyyama/internship-market/internal/config"
	"github.com/shinyyama/internship-market/internal/db"
	"github.com/shinyyama/internship-market/internal/repository"
	"github.com/shinyyama/internship-market/internal/service"
)

type seedProduct struct {
	Name        string
	Description string
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	repo := repository.NewProductRepository(gdb)
	svc := service.NewProductService(repo, nil)

	existing, err := repo.GetProducts().Count(ctx)
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if existing > 0 && !strings.EqualFold(os.Getenv("FORCE_SEED"), "true") {
		log.Printf("products already exist; skipping seed (set FORCE_SEED=true to add missing ones)")
		return nil
	}

	added, skipped := 0, 0
	for _, p := range buildSeedProducts() {
		if _, err := svc.AddProduct(ctx, p.Name, p.Description); err != nil {
			if errors.Is(err, service.ErrProductNameTaken) {
				skipped++
				continue
			}
			return fmt.Errorf("add product %q: %w", p.Name, err)
		}
		added++
	}

	log.Printf("seeded %d products (%d already present)", added, skipped)
	return nil
}

func buildSeedProducts() []seedProduct {
	type group struct {
		Kind  string
		Names []string
	}
	groups := []group{
		{Kind: "furniture", Names: []string{"Office Chair", "Standing Desk", "Filing Cabinet", "Bookshelf"}},
		{Kind: "electronics", Names: []string{"27-inch Monitor", "Mechanical Keyboard", "Wireless Mouse", "USB-C Dock"}},
		{Kind: "lighting", Names: []string{"Desk Lamp", "Floor Lamp", "LED Strip"}},
		{Kind: "stationery", Names: []string{"Whiteboard", "Notebook Set", "Fountain Pen"}},
		{Kind: "kitchen", Names: []string{"Coffee Grinder", "Electric Kettle", "Thermos Bottle"}},
	}

	var out []seedProduct
	for _, g := range groups {
		for _, n := range g.Names {
			out = append(out, seedProduct{
				Name:        n,
				Description: fmt.Sprintf("%s (%s), lightly used, picked up at the office.", n, g.Kind),
			})
		}
	}
	return out
}
