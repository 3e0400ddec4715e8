// Benchmark tool for testing Kestrel against historical order data.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/orders.csv -url http://localhost:8080
//
// This tool:
//   1. Reads historical order data (optionally with expected discounts)
//   2. Sends each order to Kestrel for pricing resolution
//   3. Compares resolved discounts with the expected column when present
//   4. Reports discount rates, approval rates, latency, and throughput
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Order represents a row from the orders dataset.
type Order struct {
	CustomerID       string
	ProductID        string
	Quantity         int
	UnitPrice        float64
	TotalSpend       float64
	Tier             string
	ExpectedDiscount float64
	HasExpected      bool
}

// EvaluateRequest is the Kestrel API request format.
type EvaluateRequest struct {
	CustomerID string         `json:"customerId"`
	ProductID  string         `json:"productId"`
	Quantity   int            `json:"quantity"`
	UnitPrice  float64        `json:"unitPrice"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Resolution is the subset of the response the benchmark inspects.
type Resolution struct {
	ID               string   `json:"id"`
	AppliedRuleIDs   []string `json:"appliedRuleIds"`
	DiscountAmount   float64  `json:"discountAmount"`
	Subtotal         float64  `json:"subtotal"`
	ApprovalRequired bool     `json:"approvalRequired"`
	Status           string   `json:"status"`
}

// EvaluateResponse is the Kestrel API response format.
type EvaluateResponse struct {
	Resolution Resolution `json:"resolution"`
}

// CommitRequest is the body for POST /pricing/commit.
type CommitRequest struct {
	ResolutionID string `json:"resolutionId"`
}

// Metrics tracks benchmark results. Savings are accumulated in cents so the
// counters stay atomic.
type Metrics struct {
	TotalProcessed int64
	TotalErrors    int64

	Discounted        int64
	FullPrice         int64
	ApprovalsRequired int64
	Committed         int64
	CommitErrors      int64

	SavingsCents int64

	ExpectedMatches    int64
	ExpectedMismatches int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to orders CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	limit := flag.Int("limit", 10000, "Maximum orders to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	commit := flag.Bool("commit", false, "Commit auto-approved resolutions to the ledger")
	verbose := flag.Bool("verbose", false, "Print each order result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/orders.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          KESTREL BENCHMARK - Pricing Resolution               ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Kestrel URL: %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Printf("Commit:      %v\n", *commit)
	fmt.Println()

	// Check Kestrel is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  cd kestrel && go run cmd/kestrel/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	// Read order data
	fmt.Printf("\nReading orders from %s...\n", *csvPath)
	orders, err := readOrdersCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d orders\n", len(orders))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(orders, *baseURL, *tenantID, *workers, *commit, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readOrdersCSV(path string, limit int) ([]Order, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map column indices
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	col := func(record []string, name string) string {
		if i, ok := colIndex[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	var orders []Order

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		quantity, _ := strconv.Atoi(col(record, "quantity"))
		unitPrice, _ := strconv.ParseFloat(col(record, "unit_price"), 64)
		totalSpend, _ := strconv.ParseFloat(col(record, "total_spend"), 64)

		order := Order{
			CustomerID: col(record, "customer_id"),
			ProductID:  col(record, "product_id"),
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			TotalSpend: totalSpend,
			Tier:       col(record, "tier"),
		}

		if raw := col(record, "expected_discount"); raw != "" {
			if expected, err := strconv.ParseFloat(raw, 64); err == nil {
				order.ExpectedDiscount = expected
				order.HasExpected = true
			}
		}

		if order.CustomerID == "" || order.ProductID == "" || order.Quantity <= 0 {
			continue
		}

		orders = append(orders, order)

		if limit > 0 && len(orders) >= limit {
			break
		}
	}

	return orders, nil
}

func runBenchmark(orders []Order, baseURL, tenantID string, numWorkers int, commit, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan Order, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for order := range work {
				start := time.Now()
				res, err := evaluateOrder(client, baseURL, tenantID, order)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s/%s -> %v\n", order.CustomerID, order.ProductID, err)
					}
					continue
				}

				if len(res.AppliedRuleIDs) > 0 && res.DiscountAmount > 0 {
					atomic.AddInt64(&metrics.Discounted, 1)
					atomic.AddInt64(&metrics.SavingsCents, int64(math.Round(res.DiscountAmount*100)))
				} else {
					atomic.AddInt64(&metrics.FullPrice, 1)
				}
				if res.ApprovalRequired {
					atomic.AddInt64(&metrics.ApprovalsRequired, 1)
				}

				if order.HasExpected {
					if math.Abs(res.DiscountAmount-order.ExpectedDiscount) < 0.01 {
						atomic.AddInt64(&metrics.ExpectedMatches, 1)
					} else {
						atomic.AddInt64(&metrics.ExpectedMismatches, 1)
					}
				}

				if commit && res.Status == "approved" {
					if err := commitResolution(client, baseURL, tenantID, res.ID); err != nil {
						atomic.AddInt64(&metrics.CommitErrors, 1)
					} else {
						atomic.AddInt64(&metrics.Committed, 1)
					}
				}

				if verbose {
					status := "✓"
					if order.HasExpected && math.Abs(res.DiscountAmount-order.ExpectedDiscount) >= 0.01 {
						status = "✗"
					}
					fmt.Printf("%s %-12s | Product: %-10s | Qty: %4d | Subtotal: $%10.2f | Discount: $%8.2f | Rules: %v\n",
						status,
						order.CustomerID,
						order.ProductID,
						order.Quantity,
						res.Subtotal,
						res.DiscountAmount,
						res.AppliedRuleIDs,
					)
				}
			}
		}()
	}

	// Send work
	for _, order := range orders {
		work <- order
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func evaluateOrder(client *http.Client, baseURL, tenantID string, order Order) (*Resolution, error) {
	req := EvaluateRequest{
		CustomerID: order.CustomerID,
		ProductID:  order.ProductID,
		Quantity:   order.Quantity,
		UnitPrice:  order.UnitPrice,
	}

	// Pass customer attributes for tier and spend gated rules
	attrs := map[string]any{}
	if order.TotalSpend > 0 {
		attrs["total_spend"] = order.TotalSpend
	}
	if order.Tier != "" {
		attrs["tier"] = order.Tier
	}
	if len(attrs) > 0 {
		req.Attributes = attrs
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/pricing/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result EvaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result.Resolution, nil
}

func commitResolution(client *http.Client, baseURL, tenantID, resolutionID string) error {
	body, err := json.Marshal(CommitRequest{ResolutionID: resolutionID})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/pricing/commit", bytes.NewReader(body))
	if err != nil {
		return err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n💰 PRICING OUTCOMES\n")
	fmt.Printf("   Discounted:        %d\n", m.Discounted)
	fmt.Printf("   Full Price:        %d\n", m.FullPrice)
	fmt.Printf("   Needed Approval:   %d\n", m.ApprovalsRequired)
	fmt.Printf("   Total Savings:     $%.2f\n", float64(m.SavingsCents)/100)
	if m.Discounted > 0 {
		fmt.Printf("   Avg Discount:      $%.2f\n", float64(m.SavingsCents)/100/float64(m.Discounted))
	}
	if m.Committed+m.CommitErrors > 0 {
		fmt.Printf("   Committed:         %d (errors: %d)\n", m.Committed, m.CommitErrors)
	}

	if m.ExpectedMatches+m.ExpectedMismatches > 0 {
		total := m.ExpectedMatches + m.ExpectedMismatches
		fmt.Printf("\n🎯 EXPECTED DISCOUNTS\n")
		fmt.Printf("   Matched:           %d / %d (%.2f%%)\n", m.ExpectedMatches, total, 100*float64(m.ExpectedMatches)/float64(total))
		fmt.Printf("   Mismatched:        %d / %d (%.2f%%)\n", m.ExpectedMismatches, total, 100*float64(m.ExpectedMismatches)/float64(total))
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f orders/sec\n", rps)
	}

	fmt.Println()
}
