package main

import (
	"log"

	"github.com/markstack/markstack/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ markstack failed to start: %v", err)
	}
}
