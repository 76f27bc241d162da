// seed.go — standalone script to seed a demo engineer pool and query backlog
// via the IntelliRoute API.
//
// Usage:
//
//	go run scripts/seed.go -api http://localhost:8700
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
)

type engineer struct {
	Name        string   `json:"name"`
	Designation string   `json:"designation"`
	Capacity    int      `json:"capacity"`
	Skills      []string `json:"skills,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
}

type query struct {
	Description string   `json:"description"`
	Priority    string   `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Domain      string   `json:"domain,omitempty"`
}

var engineers = []engineer{
	{Name: "Priya Sharma", Designation: "junior", Capacity: 3, Skills: []string{"frontend", "css"}, Timezone: "Asia/Kolkata"},
	{Name: "Tom Okafor", Designation: "junior", Capacity: 3, Skills: []string{"api", "documentation"}, Timezone: "Africa/Lagos"},
	{Name: "Elena Petrova", Designation: "mid", Capacity: 4, Skills: []string{"backend", "database"}, Timezone: "Europe/Berlin"},
	{Name: "Marcus Webb", Designation: "mid", Capacity: 4, Skills: []string{"networking", "kubernetes"}, Timezone: "America/New_York"},
	{Name: "Yuki Tanaka", Designation: "senior", Capacity: 5, Skills: []string{"database", "security", "architecture"}, Timezone: "Asia/Tokyo"},
	{Name: "Sofia Reyes", Designation: "tech_lead", Capacity: 5, Skills: []string{"architecture", "backend", "networking"}, Timezone: "America/Mexico_City"},
}

var queries = []query{
	{Description: "Typo on the pricing page footer", Priority: "P3", Domain: "frontend"},
	{Description: "API rate limit docs are out of date", Priority: "P3", Tags: []string{"api", "documentation"}},
	{Description: "Checkout latency spiked to 4s after last deploy", Priority: "P2", Tags: []string{"backend"}, Domain: "backend"},
	{Description: "Replica lag growing on the orders database", Priority: "P2", Domain: "database"},
	{Description: "Production outage: ingress dropping all traffic in eu-west", Priority: "P1", Tags: []string{"networking", "kubernetes"}},
	{Description: "Possible security issue: session tokens appear in access logs", Priority: "P1", Domain: "security"},
}

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "IntelliRoute API base URL")
	flag.Parse()

	for _, e := range engineers {
		if err := post(*apiURL+"/api/v1/engineers", e); err != nil {
			log.Fatalf("seed engineer %s: %v", e.Name, err)
		}
		fmt.Printf("engineer %s (%s)\n", e.Name, e.Designation)
	}
	for _, q := range queries {
		if err := post(*apiURL+"/api/v1/queries", q); err != nil {
			log.Fatalf("seed query %q: %v", q.Description, err)
		}
		fmt.Printf("query [%s] %s\n", q.Priority, q.Description)
	}
	fmt.Println("done; trigger a cycle with: curl -X POST", *apiURL+"/api/v1/assignments/run")
}

func post(url string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
