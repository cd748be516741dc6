package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort = 9091
	appPort  = 8081
)

var completionResp = []byte(`{"id":"bench-123","choices":[{"message":{"content":"Benchmark safe response from the mock upstream"}}]}`)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	reply := flag.Bool("reply", false, "Attack the chat reply path instead of the model listing")
	chaos := flag.Bool("chaos", false, "Simulate random client disconnections during replies")
	flag.Parse()

	go startMockServer()

	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	configFile := "bench_config.yaml"
	if err := os.WriteFile(configFile, []byte(benchConfig), 0o644); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	defer os.Remove(configFile)
	defer os.Remove("bench.db")

	fmt.Println("Starting application...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(), "CONFIG_FILE="+configFile, "LOG_LEVEL=error")

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	base := fmt.Sprintf("http://localhost:%d", appPort)
	waitForApp(base + "/health")

	cookie := signup(base)
	chatID := createChat(base, cookie)

	targeter := vegeta.NewStaticTargeter(vegeta.Target{
		Method: http.MethodGet,
		URL:    base + "/api/ai-models",
	})
	mode := "Model listing"
	if *reply {
		mode = "Chat reply"
		targeter = vegeta.NewStaticTargeter(replyTarget(base, chatID, cookie))
	}
	fmt.Printf("Running %s benchmark: %s duration, %d req/s\n", mode, *duration, *rate)

	done := make(chan struct{})
	if *chaos {
		concurrency := min(max(*rate/10, 5), 50)
		go startChaosMonkey(replyTarget(base, chatID, cookie), concurrency, done)
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()
	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")
		seen := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if !seen[msg] && len(seen) < 5 {
				fmt.Println(msg)
				seen[msg] = true
			}
		}
	}
}

func replyTarget(base, chatID, cookie string) vegeta.Target {
	return vegeta.Target{
		Method: http.MethodPost,
		URL:    base + "/api/chats/" + chatID,
		Body:   []byte(`{"model":"openai","messages":[{"role":"user","content":"Hello"}]}`),
		Header: http.Header{
			"Content-Type": []string{"application/json"},
			"Cookie":       []string{"session=" + cookie},
		},
	}
}

func signup(base string) string {
	body := []byte(`{"email":"bench@example.com","password":"bench"}`)
	resp, err := http.Post(base+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Signup failed: %v", err)
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			return c.Value
		}
	}
	log.Fatalf("Signup returned no session cookie (status %d)", resp.StatusCode)
	return ""
}

func createChat(base, cookie string) string {
	req, _ := http.NewRequest(http.MethodPost, base+"/api/chats", strings.NewReader(`{"message":"Hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "session", Value: cookie})

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Create chat failed: %v", err)
	}
	defer resp.Body.Close()

	var chat struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil || chat.ID == "" {
		log.Fatalf("Create chat returned no id (status %d)", resp.StatusCode)
	}
	return chat.ID
}

// startChaosMonkey fires replies that are abandoned mid-stream.
func startChaosMonkey(target vegeta.Target, concurrency int, done chan struct{}) {
	fmt.Printf("Starting Chaos Monkey with %d concurrent disrupters (random disconnects 1-200ms)\n", concurrency)
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			client := &http.Client{}
			for {
				select {
				case <-done:
					return
				default:
					timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond
					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					req, _ := http.NewRequestWithContext(ctx, target.Method, target.URL, bytes.NewReader(target.Body))
					req.Header = target.Header.Clone()

					resp, err := client.Do(req)
					if err == nil {
						_ = resp.Body.Close()
					}
					cancel()
					time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()
}

func startMockServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionResp)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	_ = http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux)
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}

var benchConfig = fmt.Sprintf(`
server:
  port: "%d"
  env: development
rate_limit:
  requests_per_second: 100000
  burst: 100000
logging:
  level: error
database:
  dsn: bench.db
session:
  secret: bench-secret
ai:
  stream_delay: 5ms
  providers:
    - id: openai
      name: OpenAI
      api_key: mock-key
      base_url: "http://localhost:%d"
      endpoint: /v1/chat/completions
      enabled: true
`, appPort, mockPort)
