package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"tablecast/internal/security"
)

type Scenario struct {
	TotalRequests int
	Concurrency   int
	Body          string
	Description   string
}

type Result struct {
	JobID          string
	Status         int
	AcceptDuration time.Duration
	TotalDuration  time.Duration // time until the job reports COMPLETED
	Error          error
}

var (
	baseURL = envOr("BENCH_URL", "http://localhost:8080")
	secret  = os.Getenv("API_SECRET")
)

func main() {
	inlineTable := `{"table":[["ref 1","a,b","say \"hi\""],["ref 2",null,42]],"columns":["ref","text","extra"]}`

	scenarios := []Scenario{
		{
			TotalRequests: 100,
			Concurrency:   25,
			Body:          inlineTable,
			Description:   "Inline tables (delimited, default controls)",
		},
		{
			TotalRequests: 50,
			Concurrency:   10,
			Body:          `{"query":"SELECT * FROM customers LIMIT 2000","format":"delimited","delimiter":";","quote":"'","escape":"\\"}`,
			Description:   "Query export (custom controls)",
		},
		{
			TotalRequests: 20,
			Concurrency:   5,
			Body:          `{"query":"SELECT * FROM orders LIMIT 100000","format":"json"}`,
			Description:   "Large query export (JSON lines)",
		},
	}

	for _, scenario := range scenarios {
		runScenario(scenario)
	}
}

func runScenario(cfg Scenario) {
	fmt.Printf("\n=======================================================\n")
	fmt.Printf("Scenario: %s\n", cfg.Description)
	fmt.Printf("Requests: %d | Concurrency: %d\n", cfg.TotalRequests, cfg.Concurrency)
	fmt.Printf("=======================================================\n")

	results := make(chan Result, cfg.TotalRequests)
	var wg sync.WaitGroup
	sem := make(chan struct{}, cfg.Concurrency)

	start := time.Now()
	for i := 0; i < cfg.TotalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- sendRequest(cfg.Body)
		}()
	}
	wg.Wait()
	close(results)

	report(results, time.Since(start))
}

func sendRequest(body string) Result {
	req, _ := http.NewRequest(http.MethodPost, baseURL+"/export", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", security.SignRequest(secret, http.MethodPost, "/export", body, timestamp))

	client := &http.Client{Timeout: 30 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Result{Error: err}
	}
	defer resp.Body.Close()

	var accepted struct {
		JobID string `json:"job_id"`
	}
	json.NewDecoder(resp.Body).Decode(&accepted)

	res := Result{
		JobID:          accepted.JobID,
		Status:         resp.StatusCode,
		AcceptDuration: time.Since(start),
	}
	if resp.StatusCode != http.StatusAccepted {
		return res
	}

	res.TotalDuration = waitForCompletion(accepted.JobID, start)
	return res
}

func waitForCompletion(jobID string, start time.Time) time.Duration {
	deadline := time.Now().Add(5 * time.Minute)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/jobs?id=" + jobID)
		if err == nil {
			var status struct {
				Status string `json:"status"`
			}
			json.NewDecoder(resp.Body).Decode(&status)
			resp.Body.Close()
			if status.Status == "COMPLETED" || status.Status == "FAILED" {
				return time.Since(start)
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	return time.Since(start)
}

func report(results chan Result, wall time.Duration) {
	var accepted, failed int
	var acceptTimes, totalTimes []time.Duration

	for r := range results {
		if r.Error != nil || r.Status != http.StatusAccepted {
			failed++
			continue
		}
		accepted++
		acceptTimes = append(acceptTimes, r.AcceptDuration)
		totalTimes = append(totalTimes, r.TotalDuration)
	}

	fmt.Printf("Accepted: %d | Failed: %d | Wall time: %v\n", accepted, failed, wall)
	if len(acceptTimes) > 0 {
		fmt.Printf("Accept latency  p50=%v p95=%v\n", percentile(acceptTimes, 50), percentile(acceptTimes, 95))
		fmt.Printf("Completion time p50=%v p95=%v\n", percentile(totalTimes, 50), percentile(totalTimes, 95))
	}
}

func percentile(durations []time.Duration, p int) time.Duration {
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	idx := len(durations) * p / 100
	if idx >= len(durations) {
		idx = len(durations) - 1
	}
	return durations[idx]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
