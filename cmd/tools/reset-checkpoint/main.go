// reset-checkpoint deletes one worker's checkpoint row so it restarts from
// its configured range start on the next launch. Grounded on the teacher's
// cmd/tools/reset_checkpoint, generalized from a hardcoded service name to a
// -name flag since this fleet has many worker names, not one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"indexerfleet/internal/repository"
)

func main() {
	name := flag.String("name", "", "indexer_name of the checkpoint to delete (required)")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: reset-checkpoint -name <indexer_name>")
		os.Exit(2)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	ctx := context.Background()
	repo, err := repository.NewRepository(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer repo.Close()

	existing, err := repo.Get(ctx, *name)
	if err != nil {
		log.Fatalf("lookup checkpoint %q: %v", *name, err)
	}
	if existing == nil {
		fmt.Printf("no checkpoint found for %q, nothing to reset\n", *name)
		return
	}

	if err := repo.Delete(ctx, *name); err != nil {
		log.Fatalf("delete checkpoint %q: %v", *name, err)
	}
	fmt.Printf("deleted checkpoint %q (was at block %d of %v); it will re-init from its configured range start on next launch\n",
		*name, existing.LastIndexedBlock, existing.RangeEnd)
}
