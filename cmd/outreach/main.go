package main

import (
	"log"

	"github.com/jmallet/outreach/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ outreach failed: %v", err)
	}
}
