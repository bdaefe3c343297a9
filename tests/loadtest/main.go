package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL      = "http://127.0.0.1:18090"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numVisitors  = 200
	siteKey      = "loadtest-site"
	policyVer    = "2025-01"
)

var eventTypes = []struct {
	name    string
	purpose string
}{
	{"page_view_minimal", ""},
	{"heartbeat", ""},
	{"page_view", "other"},
	{"click", "other"},
	{"ad_view", "ads"},
	{"ad_click", "ads"},
}

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== CGD Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Visitors: %d\n\n", numWorkers, testDuration, numVisitors)
	fmt.Printf("Expects a running daemon seeded with site %q (no captcha, empty whitelist)\n\n", siteKey)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: Record consent for every visitor
	fmt.Println("\n--- Phase 1: Consent writes (POST /consent) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doConsent(rng)
	})

	// Phase 2: Mostly telemetry once consents exist
	fmt.Println("\n--- Phase 2: Mixed load (70% collect, 20% status, 10% consent) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.70:
			return doCollect(rng)
		case r < 0.90:
			return doStatus(rng)
		default:
			return doConsent(rng)
		}
	})

	// Phase 3: Status-heavy, the page-load pattern
	fmt.Println("\n--- Phase 3: Read-heavy load (80% status, 20% collect) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		if rng.Float64() < 0.80 {
			return doStatus(rng)
		}
		return doCollect(rng)
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func visitorID(rng *rand.Rand) string {
	return fmt.Sprintf("visitor-%06d", rng.Intn(numVisitors))
}

// 429 is an expected outcome under load, not an error.
func expected(status int, ok ...int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	for _, code := range ok {
		if status == code {
			return true
		}
	}
	return false
}

func doConsent(rng *rand.Rand) result {
	body := map[string]interface{}{
		"site_key":       siteKey,
		"policy_version": policyVer,
		"visitorId":      visitorID(rng),
		"choices": map[string]bool{
			"necessary": true,
			"ads":       rng.Float64() < 0.5,
			"other":     rng.Float64() < 0.7,
		},
	}

	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/consent", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST /consent", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /consent", resp.StatusCode, lat, !expected(resp.StatusCode, 201)}
}

func doCollect(rng *rand.Rand) result {
	nEvents := rng.Intn(5) + 1
	events := make([]map[string]interface{}, nEvents)
	for i := range events {
		et := eventTypes[rng.Intn(len(eventTypes))]
		events[i] = map[string]interface{}{
			"type": et.name,
			"url":  fmt.Sprintf("https://shop.example/p/%d", rng.Intn(100)),
			"ts":   time.Now().UnixMilli(),
		}
		if et.purpose != "" {
			events[i]["purpose"] = et.purpose
		}
	}

	body := map[string]interface{}{
		"site_key":  siteKey,
		"visitorId": visitorID(rng),
		"events":    events,
	}

	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/collect", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST /collect", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /collect", resp.StatusCode, lat, !expected(resp.StatusCode, 202)}
}

func doStatus(rng *rand.Rand) result {
	u := fmt.Sprintf("%s/consent/status?site_key=%s&visitorId=%s",
		baseURL, url.QueryEscape(siteKey), url.QueryEscape(visitorID(rng)))
	start := time.Now()
	resp, err := httpClient.Get(u)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /consent/status", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /consent/status", resp.StatusCode, lat, !expected(resp.StatusCode, 200)}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
