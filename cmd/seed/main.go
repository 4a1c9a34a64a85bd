// Package main provides a CLI tool for creating the ledger schema and
// loading a demo data set.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"tradeflow/internal/app"
	"tradeflow/internal/config"
	"tradeflow/internal/domain/ledger"
	"tradeflow/internal/infrastructure/storage/postgres"
	"tradeflow/pkg/logger"
)

type partnerRow struct {
	Code      string `db:"code"`
	ShortName string `db:"short_name"`
	FullName  string `db:"full_name"`
	Type      int16  `db:"type"`
}

type productRow struct {
	Code         string `db:"code"`
	Category     string `db:"category"`
	ProductModel string `db:"product_model"`
	Remark       string `db:"remark"`
}

// Line holds the columns shared by both record tables.
type Line struct {
	ProductCode  string  `db:"product_code"`
	ProductModel string  `db:"product_model"`
	Quantity     float64 `db:"quantity"`
	UnitPrice    float64 `db:"unit_price"`
	TotalPrice   float64 `db:"total_price"`
	OrderNumber  string  `db:"order_number"`
	Remark       string  `db:"remark"`
}

type inboundRow struct {
	SupplierCode      string    `db:"supplier_code"`
	SupplierShortName string    `db:"supplier_short_name"`
	InboundDate       time.Time `db:"inbound_date"`
	Line
}

type outboundRow struct {
	CustomerCode      string    `db:"customer_code"`
	CustomerShortName string    `db:"customer_short_name"`
	OutboundDate      time.Time `db:"outbound_date"`
	Line
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	ctx := logger.WithLogger(context.Background(), log)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txm := postgres.NewTxManager(pool)
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := postgres.EnsureSchema(ctx, postgres.NewBatchExecutor(txm)); err != nil {
			return err
		}
		if os.Getenv("SEED_DEMO_DATA") != "true" {
			return nil
		}
		return seedDemoData(ctx, postgres.NewBatchInserter(txm), time.Now())
	})
	if err != nil {
		log.Fatalw("seed failed", "error", err)
	}

	log.Info("seed completed")
}

var (
	suppliers = []partnerRow{
		{Code: "S001", ShortName: "Apex Metals", FullName: "Apex Metals Trading Co.", Type: int16(ledger.Supplier)},
		{Code: "S002", ShortName: "Northwind", FullName: "Northwind Components Ltd.", Type: int16(ledger.Supplier)},
	}
	customers = []partnerRow{
		{Code: "C001", ShortName: "Harbor Tools", FullName: "Harbor Tools Retail", Type: int16(ledger.Customer)},
		{Code: "C002", ShortName: "Sunrise Build", FullName: "Sunrise Building Supplies", Type: int16(ledger.Customer)},
		{Code: "C003", ShortName: "Delta Works", FullName: "Delta Works Engineering", Type: int16(ledger.Customer)},
	}
	products = []productRow{
		{Code: "P001", Category: "fasteners", ProductModel: "BOLT-M8"},
		{Code: "P002", Category: "fasteners", ProductModel: "NUT-M8"},
		{Code: "P003", Category: "bearings", ProductModel: "BRG-6204"},
		{Code: "P004", Category: "bearings", ProductModel: "BRG-6305", Remark: "discontinued"},
	}
	// purchase prices; sales are marked up 30%
	basePrices = map[string]float64{"BOLT-M8": 0.8, "NUT-M8": 0.35, "BRG-6204": 4.2, "BRG-6305": 6.9}
)

// seedDemoData writes fourteen months of trade ending at now. Every month
// each product is bought once and sold twice; the last product sells out.
// The first month also carries a supplier rebate booked with a negative price.
func seedDemoData(ctx context.Context, b *postgres.BatchInserter, now time.Time) error {
	log := logger.FromContext(ctx)

	var inbound []inboundRow
	var outbound []outboundRow

	start := ledger.MonthStart(now).AddDate(0, -13, 0)
	for m := 0; m < 14; m++ {
		month := start.AddDate(0, m, 0)
		for i, p := range products {
			supplier := suppliers[i%len(suppliers)]
			price := basePrices[p.ProductModel]
			qty := float64(100 + 10*i + m)

			inbound = append(inbound, inboundRow{
				SupplierCode:      supplier.Code,
				SupplierShortName: supplier.ShortName,
				InboundDate:       month.AddDate(0, 0, 2),
				Line:              line(p, qty, price, "PO"),
			})

			sold := qty * 0.45
			if p.Remark == "discontinued" {
				sold = qty / 2
			}
			for j := 0; j < 2; j++ {
				customer := customers[(i+j+m)%len(customers)]
				outbound = append(outbound, outboundRow{
					CustomerCode:      customer.Code,
					CustomerShortName: customer.ShortName,
					OutboundDate:      month.AddDate(0, 0, 10+j*8),
					Line:              line(p, sold, round2(price*1.3), "SO"),
				})
			}
		}
	}

	rebate := line(products[0], 1, -50, "RB")
	rebate.Remark = "volume rebate"
	inbound = append(inbound, inboundRow{
		SupplierCode:      suppliers[0].Code,
		SupplierShortName: suppliers[0].ShortName,
		InboundDate:       start.AddDate(0, 0, 20),
		Line:              rebate,
	})

	counts := map[string]int64{}
	var err error
	if counts["partners"], err = postgres.CopyStructs(ctx, b, "partners", append(suppliers, customers...)); err != nil {
		return err
	}
	if counts["products"], err = postgres.CopyStructs(ctx, b, "products", products); err != nil {
		return err
	}
	if counts["inbound_records"], err = postgres.CopyStructs(ctx, b, "inbound_records", inbound); err != nil {
		return err
	}
	if counts["outbound_records"], err = postgres.CopyStructs(ctx, b, "outbound_records", outbound); err != nil {
		return err
	}

	log.Infow("demo data seeded",
		"partners", counts["partners"],
		"products", counts["products"],
		"inbound", counts["inbound_records"],
		"outbound", counts["outbound_records"],
	)
	return nil
}

func line(p productRow, qty, price float64, prefix string) Line {
	return Line{
		ProductCode:  p.Code,
		ProductModel: p.ProductModel,
		Quantity:     qty,
		UnitPrice:    price,
		TotalPrice:   round2(qty * price),
		OrderNumber:  prefix + "-" + uuid.NewString()[:8],
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
