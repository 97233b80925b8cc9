package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/SherlinC/livecuecard/app"
)

func main() {
	// Load .env file in development (ignores error if file doesn't exist)
	// In production, variables should be set directly
	if os.Getenv("ENV") != "production" {
		if err := godotenv.Overload(".env"); err != nil {
			log.Printf("Warning: .env file not found, using system environment variables")
		} else {
			log.Printf("Successfully loaded environment variables from .env")
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if len(port) > 0 && port[0] == ':' {
		port = port[1:]
	}

	// The snapshot pipeline's headless browser navigates back into this
	// process, so it needs a reachable base URL.
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	closer, err := app.Initialize(baseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer closer()

	addr := "0.0.0.0:" + port
	log.Printf("Server starting on %s", addr)
	log.Printf("Editor API: http://localhost:%s/admin/card  Preview: %s/render", port, baseURL)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
