// Command subscribers manages feed opt-ins in the local database. The feed
// only indexes likes received by opted-in users.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kmurata/bluesky-likesback/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		dbPath string
		add    string
		remove string
		list   bool
	)

	flag.StringVar(&dbPath, "db", envOrDefault("FEEDGEN_SQLITE_LOCATION", "likesback.db"), "Path to the SQLite database")
	flag.StringVar(&add, "add", "", "DID to opt in")
	flag.StringVar(&remove, "remove", "", "DID to opt out")
	flag.BoolVar(&list, "list", false, "List opted-in DIDs")
	flag.Parse()

	if add == "" && remove == "" && !list {
		return fmt.Errorf("one of --add, --remove or --list is required")
	}

	repo, err := sqlite.NewRepository(dbPath)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	ctx := context.Background()

	if add != "" {
		if err := repo.AddSubscriber(ctx, add); err != nil {
			return fmt.Errorf("add subscriber: %w", err)
		}
		fmt.Printf("Added %s\n", add)
	}

	if remove != "" {
		if err := repo.RemoveSubscriber(ctx, remove); err != nil {
			return fmt.Errorf("remove subscriber: %w", err)
		}
		fmt.Printf("Removed %s\n", remove)
	}

	if list {
		dids, err := repo.ListSubscriberDIDs(ctx)
		if err != nil {
			return fmt.Errorf("list subscribers: %w", err)
		}
		for _, did := range dids {
			fmt.Println(did)
		}
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
