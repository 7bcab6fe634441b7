// Command smoke_check probes a running deployment with a list of requests and
// fails when a critical endpoint returns an unexpected status or a malformed envelope.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	Name         string          `json:"name"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	Body         json.RawMessage `json:"body,omitempty"`
	ExpectStatus int             `json:"expect_status"`
	Auth         bool            `json:"auth"`
	Envelope     bool            `json:"envelope"`
	Critical     bool            `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Duration time.Duration
	Problem  string
	Err      error
}

func (r result) ok() bool { return r.Err == nil && r.Problem == "" }

func main() {
	var (
		base        string
		token       string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", os.Getenv("SMOKE_TOKEN"), "Bearer token for authenticated targets")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke_check", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		breaking int
		warnings int
	)
	for _, t := range targets {
		if t.Auth && token == "" {
			continue
		}
		res := probe(client, base, token, t)
		if !res.ok() {
			if t.Critical {
				breaking++
			} else {
				warnings++
			}
		}
		results = append(results, res)
	}

	printReport(os.Stdout, results)
	fmt.Printf("Critical failures: %d, Warnings: %d\n", breaking, warnings)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func probe(client *http.Client, base, token string, tgt target) result {
	res := result{Target: tgt}
	if client == nil {
		res.Err = errors.New("nil client")
		return res
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if len(tgt.Body) > 0 {
		body = bytes.NewReader(tgt.Body)
	}
	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, body)
	if err != nil {
		res.Err = err
		return res
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tgt.Auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	expected := tgt.ExpectStatus
	if expected == 0 {
		expected = http.StatusOK
	}
	if res.Status != expected {
		res.Problem = fmt.Sprintf("expected status %d", expected)
		return res
	}
	if tgt.Envelope {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			res.Err = fmt.Errorf("read body: %w", err)
			return res
		}
		res.Problem = checkEnvelope(raw, res.Status)
	}
	return res
}

// checkEnvelope returns a description of what is wrong with the response body, or "".
func checkEnvelope(raw []byte, status int) string {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "body is not a JSON object"
	}
	_, hasData := envelope["data"]
	_, hasError := envelope["error"]
	switch {
	case status < http.StatusBadRequest && !hasData:
		return "success response without data"
	case status >= http.StatusBadRequest && !hasError:
		return "error response without error"
	case hasData && hasError:
		return "response carries both data and error"
	}
	return ""
}

func printReport(w io.Writer, results []result) {
	fmt.Fprintln(w, "Smoke Check Report")
	fmt.Fprintln(w, "==================")
	for _, res := range results {
		label := "OK"
		if res.Err != nil {
			label = "ERROR"
		} else if res.Problem != "" {
			label = "FAIL"
		}
		name := res.Target.Name
		if name == "" {
			name = res.Target.Path
		}
		fmt.Fprintf(w, "[%s] %s %s (%d, %s)\n", label, res.Target.Method, name, res.Status, res.Duration.Round(time.Millisecond))
		if res.Err != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Err)
		} else if res.Problem != "" {
			fmt.Fprintf(w, "  Problem: %s | Critical: %t\n", res.Problem, res.Target.Critical)
		}
	}
}
