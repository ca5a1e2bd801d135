package main

import (
	"log"

	"github.com/ndinh/deckhand/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("deckhand failed to start: %v", err)
	}
}
