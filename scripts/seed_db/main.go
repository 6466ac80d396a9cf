package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Seeds a local MySQL instance with enough data to exercise the export
// pipeline under load.
func main() {
	dsn := os.Getenv("SOURCE_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/tablecast_demo?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Info("Waiting for database...", "attempt", i+1)
		time.Sleep(1 * time.Second)
	}

	slog.Info("Connected to MySQL. Creating tables...")

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS customers (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name TEXT,
			email TEXT,
			notes TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			score DOUBLE
		)
	`)
	if err != nil {
		panic(err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			customer_id BIGINT,
			amount DECIMAL(15, 2),
			currency VARCHAR(3),
			status VARCHAR(20),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_customer_id (customer_id)
		)
	`)
	if err != nil {
		panic(err)
	}

	var customerCount int
	db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&customerCount)
	if customerCount < 500000 {
		slog.Info("Seeding 500,000 customers...")
		start := time.Now()
		batchSize := 1000
		total := 500000

		for i := 0; i < total; i += batchSize {
			vals := []any{}
			stmt := "INSERT INTO customers (name, email, notes, created_at, score) VALUES "
			placeholders := []string{}

			for j := 0; j < batchSize; j++ {
				idx := i + j + 1
				placeholders = append(placeholders, "(?, ?, ?, ?, ?)")
				// Notes deliberately contain delimiters, quotes and newlines
				// so exports exercise the quoting paths.
				vals = append(vals,
					fmt.Sprintf("Customer%d", idx),
					fmt.Sprintf("customer%d@example.com", idx),
					fmt.Sprintf("ref %d, \"priority\"\nsecond line", idx),
					time.Now().Add(-time.Duration(idx)*time.Minute),
					float64(idx%1000)/10.0,
				)
			}

			stmt += strings.Join(placeholders, ",")
			if _, err := db.Exec(stmt, vals...); err != nil {
				panic(err)
			}

			if (i/batchSize)%50 == 0 {
				slog.Info("Progress", "inserted", i+batchSize)
			}
		}
		slog.Info("Customers seeded", "duration", time.Since(start))
	}

	var orderCount int
	db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&orderCount)
	if orderCount < 1000000 {
		slog.Info("Seeding 1,000,000 orders...")
		start := time.Now()
		batchSize := 1000
		total := 1000000
		statuses := []string{"pending", "paid", "shipped", "refunded"}
		currencies := []string{"USD", "EUR", "GBP"}

		for i := 0; i < total; i += batchSize {
			vals := []any{}
			stmt := "INSERT INTO orders (customer_id, amount, currency, status, created_at) VALUES "
			placeholders := []string{}

			for j := 0; j < batchSize; j++ {
				idx := i + j + 1
				placeholders = append(placeholders, "(?, ?, ?, ?, ?)")
				vals = append(vals,
					idx%500000+1,
					float64(idx%100000)/100.0,
					currencies[idx%len(currencies)],
					statuses[idx%len(statuses)],
					time.Now().Add(-time.Duration(idx)*time.Second),
				)
			}

			stmt += strings.Join(placeholders, ",")
			if _, err := db.Exec(stmt, vals...); err != nil {
				panic(err)
			}

			if (i/batchSize)%100 == 0 {
				slog.Info("Progress", "inserted", i+batchSize)
			}
		}
		slog.Info("Orders seeded", "duration", time.Since(start))
	}

	slog.Info("Seed complete")
}
