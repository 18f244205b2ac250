// get-key prints the crawler API key, generating one if none exists yet.
// Meant to be run on the host next to the database, like:
//
//	NOVELHUB_DB_PATH=/srv/novelhub/data.db get-key
package main

import (
	"context"
	"fmt"
	"log"

	"novelhub/internal/auth"
	"novelhub/pkg/database"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	keys := auth.NewKeyService(db)
	key, err := keys.Current(context.Background())
	if err != nil {
		log.Fatalf("failed to load api key: %v", err)
	}

	fmt.Println("KEY:" + key)
}
