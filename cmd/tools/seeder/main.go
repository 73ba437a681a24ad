package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-invoice/internal/app"
	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/country"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

type item struct {
	description string
	hsn         string
	qty, rate   float64
	tax         float64
}

func main() {
	migrate := flag.Bool("migrate", true, "apply migrations before seeding")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if *migrate {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := app.NewPool(ctx, cfg.DatabaseURL, "invoice-seeder")
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	svc := &invoice.Service{Store: invoice.PGStore{DB: pool}, Numberer: country.Numberer{}}
	consulting := item{"Consulting services", "998311", 2, 500, 18}

	seedDomestic(ctx, svc, "A intra-state", invoice.DomesticHeader{
		GST:           true,
		Company:       invoice.Party{Name: "Acme Traders", GSTIN: "27AAPFU0939F1ZV", Address: "Pune, Maharashtra"},
		Client:        invoice.Party{Name: "Shree Textiles", GSTIN: "27AABCS1429B1ZB", Address: "Mumbai, Maharashtra"},
		PlaceOfSupply: "27-Maharashtra",
	}, consulting)
	seedDomestic(ctx, svc, "B inter-state", invoice.DomesticHeader{
		GST:           true,
		Company:       invoice.Party{Name: "Acme Traders", GSTIN: "27AAPFU0939F1ZV", Address: "Pune, Maharashtra"},
		Client:        invoice.Party{Name: "Bengaluru Foods", GSTIN: "29AAGCB7383J1Z4", Address: "Bengaluru, Karnataka"},
		PlaceOfSupply: "29-Karnataka",
	}, consulting)
	seedDomestic(ctx, svc, "C non-GST", invoice.DomesticHeader{
		Company: invoice.Party{Name: "Acme Traders"},
		Client:  invoice.Party{Name: "Walk-in customer"},
	}, consulting)
	seedInternational(ctx, svc, "D international", invoice.InternationalHeader{
		Country: "GB",
		Company: invoice.Party{Name: "Acme Global Ltd", TaxID: "GB123456789", Address: "London"},
		Client:  invoice.Party{Name: "Northwind BV", TaxID: "NL123456789B01", Address: "Amsterdam"},
	},
		item{description: "Design retainer", qty: 1, rate: 100, tax: 10},
		item{description: "Support hours", qty: 3, rate: 50, tax: 0},
	)

	log.Println("Seeding completed successfully!")
}

func seedDomestic(ctx context.Context, svc *invoice.Service, label string, h invoice.DomesticHeader, items ...item) {
	inv, err := svc.CreateDomestic(ctx, h)
	if err != nil {
		log.Fatalf("scenario %s: create: %v", label, err)
	}
	addItems(ctx, svc, invoice.KindDomestic, inv.ID, label, items)
	inv, err = svc.GetDomestic(ctx, inv.ID)
	if err != nil {
		log.Fatalf("scenario %s: reload: %v", label, err)
	}
	t := invoice.DomesticTotals(inv)
	log.Printf("scenario %s: %s subtotal=%.2f cgst=%.2f sgst=%.2f igst=%.2f total=%.2f", label, inv.Number, t.Subtotal, t.CGST, t.SGST, t.IGST, t.Total)
}

func seedInternational(ctx context.Context, svc *invoice.Service, label string, h invoice.InternationalHeader, items ...item) {
	inv, err := svc.CreateInternational(ctx, h)
	if err != nil {
		log.Fatalf("scenario %s: create: %v", label, err)
	}
	addItems(ctx, svc, invoice.KindInternational, inv.ID, label, items)
	inv, err = svc.GetInternational(ctx, inv.ID)
	if err != nil {
		log.Fatalf("scenario %s: reload: %v", label, err)
	}
	t := invoice.InternationalTotals(inv)
	log.Printf("scenario %s: %s subtotal=%.2f %s=%.2f total=%.2f %s", label, inv.Number, t.Subtotal, inv.TaxLabel, t.Tax, t.Total, inv.Currency)
}

func addItems(ctx context.Context, svc *invoice.Service, kind invoice.Kind, id, label string, items []item) {
	for _, it := range items {
		_, added, err := svc.AddItem(ctx, kind, id)
		if err != nil {
			log.Fatalf("scenario %s: add item: %v", label, err)
		}
		edits := []pricing.Edit{
			pricing.SetDescription{Value: it.description},
			pricing.SetQuantity{Value: it.qty},
			pricing.SetRate{Value: it.rate},
			pricing.SetTaxRate{Value: it.tax},
		}
		if kind == invoice.KindDomestic && it.hsn != "" {
			edits = append(edits, pricing.SetClassificationCode{Value: it.hsn})
		}
		for _, e := range edits {
			if _, _, err := svc.EditItem(ctx, kind, id, added.ID, e); err != nil {
				log.Fatalf("scenario %s: edit item: %v", label, err)
			}
		}
	}
}
