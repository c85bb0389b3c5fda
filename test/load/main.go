// Command load drives the ledger API the way the front office does: it logs
// in, enrolls a set of students into a batch, then mixes payment posts on
// their ledgers with dashboard reads and reports latencies per kind.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type settings struct {
	BaseURL   string
	Username  string
	Password  string
	BatchID   string
	Ledgers   int
	Target    string
	Amount    string
	ReadRatio float64
	RPS       int
	Duration  time.Duration
	Workers   int
}

func loadSettings() (settings, error) {
	s := settings{
		BaseURL:   strings.TrimRight(env("BASE_URL", "http://localhost:8080/api/v1"), "/"),
		Username:  env("USERNAME", "admin"),
		Password:  os.Getenv("PASSWORD"),
		BatchID:   os.Getenv("BATCH_ID"),
		Ledgers:   envInt("LEDGERS", 20),
		Target:    env("TARGET_AMOUNT", "100000"),
		Amount:    env("AMOUNT", "0.50"),
		ReadRatio: envFloat("READ_RATIO", 0.3),
		RPS:       envInt("REQUESTS_PER_SECOND", 100),
		Duration:  time.Duration(envInt("DURATION_SECONDS", 30)) * time.Second,
		Workers:   envInt("CONCURRENT_WORKERS", 20),
	}
	if s.Password == "" || s.BatchID == "" {
		return s, fmt.Errorf("PASSWORD and BATCH_ID are required")
	}
	if s.Ledgers < 1 {
		s.Ledgers = 1
	}
	return s, nil
}

type api struct {
	base   string
	token  string
	client *http.Client
}

func (a *api) call(method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.base+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (a *api) login(username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	code, err := a.call(http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password}, &resp)
	if err != nil {
		return err
	}
	if code != http.StatusOK || resp.Token == "" {
		return fmt.Errorf("login failed with status %d", code)
	}
	a.token = resp.Token
	return nil
}

// enroll creates one student per ledger, each with a batch ledger on the
// given target, and returns the ledger ids.
func (a *api) enroll(s settings) ([]string, error) {
	run := time.Now().Unix() % 100000
	ids := make([]string, 0, s.Ledgers)
	for i := 0; i < s.Ledgers; i++ {
		var resp struct {
			Ledger *struct {
				ID string `json:"id"`
			} `json:"ledger"`
		}
		req := map[string]any{
			"first_name":     "Load",
			"last_name":      fmt.Sprintf("Run%d-%d", run, i),
			"phone":          fmt.Sprintf("017%08d", (int(run)*1000+i)%100000000),
			"batch_id":       s.BatchID,
			"target_amount":  s.Target,
			"payment_method": "installments",
		}
		code, err := a.call(http.MethodPost, "/students", req, &resp)
		if err != nil {
			return nil, err
		}
		if code != http.StatusCreated || resp.Ledger == nil {
			return nil, fmt.Errorf("enroll %d: status %d", i, code)
		}
		ids = append(ids, resp.Ledger.ID)
	}
	return ids, nil
}

type series struct {
	ok, failed atomic.Int64
	mu         sync.Mutex
	latencies  []time.Duration
}

func (s *series) record(d time.Duration, ok bool) {
	if ok {
		s.ok.Add(1)
	} else {
		s.failed.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.mu.Unlock()
}

func (s *series) report(name string) {
	s.mu.Lock()
	lat := append([]time.Duration(nil), s.latencies...)
	s.mu.Unlock()
	sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })

	fmt.Printf("%-9s ok=%d failed=%d", name, s.ok.Load(), s.failed.Load())
	if len(lat) > 0 {
		fmt.Printf(" p50=%s p95=%s p99=%s max=%s",
			percentile(lat, 0.50), percentile(lat, 0.95), percentile(lat, 0.99), lat[len(lat)-1])
	}
	fmt.Println()
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	i := int(float64(len(sorted)) * p)
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i].Round(100 * time.Microsecond)
}

func main() {
	s, err := loadSettings()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	a := &api{
		base: s.BaseURL,
		client: &http.Client{
			Transport: &http.Transport{MaxIdleConnsPerHost: s.Workers, IdleConnTimeout: 90 * time.Second},
			Timeout:   60 * time.Second,
		},
	}
	if err := a.login(s.Username, s.Password); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	ledgers, err := a.enroll(s)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Printf("enrolled %d students in batch %s, running %s at %d rps\n", len(ledgers), s.BatchID, s.Duration, s.RPS)

	var (
		payments, reads series
		next            atomic.Uint64
		wg              sync.WaitGroup
	)
	jobs := make(chan struct{}, s.RPS)
	dashboard := "/ledgers?batch_id=" + s.BatchID + "&limit=50"
	payment := map[string]string{"amount": s.Amount, "method": "cash", "notes": "load test"}

	for w := 0; w < s.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				start := time.Now()
				if rand.Float64() < s.ReadRatio {
					code, err := a.call(http.MethodGet, dashboard, nil, nil)
					reads.record(time.Since(start), err == nil && code == http.StatusOK)
					continue
				}
				id := ledgers[next.Add(1)%uint64(len(ledgers))]
				code, err := a.call(http.MethodPost, "/ledgers/"+id+"/transactions", payment, nil)
				payments.record(time.Since(start), err == nil && code == http.StatusCreated)
			}
		}()
	}

	began := time.Now()
	tick := time.NewTicker(time.Second)
	for sec := 1; time.Since(began) < s.Duration; sec++ {
		for i := 0; i < s.RPS; i++ {
			jobs <- struct{}{}
		}
		fmt.Printf("[%ds] payments=%d reads=%d\n", sec,
			payments.ok.Load()+payments.failed.Load(), reads.ok.Load()+reads.failed.Load())
		<-tick.C
	}
	tick.Stop()
	close(jobs)
	wg.Wait()

	elapsed := time.Since(began).Seconds()
	total := payments.ok.Load() + payments.failed.Load() + reads.ok.Load() + reads.failed.Load()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("%d requests in %.1fs (%.1f rps)\n", total, elapsed, float64(total)/elapsed)
	payments.report("payments")
	reads.report("dashboard")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}
