// indexer-status prints a fleet-wide snapshot of every worker's checkpoint
// row plus its most recent indexing errors, an operator visibility tool
// supplementing §3's live in-process Progress Observatory with a
// point-in-time view a human can run against production (§3 Supplemented
// Features). Grounded on the teacher's cmd/tools/bench_rpc's plain
// print-a-report-to-stdout shape.
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
	errorTail := flag.Int("errors", 3, "number of recent errors to print per worker")
	flag.Parse()

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

	checkpoints, err := repo.ListCheckpoints(ctx)
	if err != nil {
		log.Fatalf("list checkpoints: %v", err)
	}
	if len(checkpoints) == 0 {
		fmt.Println("no checkpoints found")
		return
	}

	for _, cp := range checkpoints {
		rangeEnd := "head"
		if cp.RangeEnd != nil {
			rangeEnd = fmt.Sprintf("%d", *cp.RangeEnd)
		}
		fmt.Printf("%-28s type=%-10s status=%-8s block=%d/%s events=%d updated=%s\n",
			cp.IndexerName, cp.IndexerType, cp.Status, cp.LastIndexedBlock, rangeEnd,
			cp.TotalEventsIndexed, cp.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
		if cp.LastError != "" {
			fmt.Printf("    last error: %s\n", cp.LastError)
		}

		if *errorTail <= 0 {
			continue
		}
		recent, err := repo.GetRecentErrors(ctx, cp.IndexerName, *errorTail)
		if err != nil {
			fmt.Printf("    (failed to fetch recent errors: %v)\n", err)
			continue
		}
		for _, e := range recent {
			fmt.Printf("    [block %d tx %s] %s\n", e.BlockNumber, e.TxHash, e.ErrorMessage)
		}
	}
}
