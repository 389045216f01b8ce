// file: cmd/cache.go
// version: 1.0.0
// guid: 0ad82632-3ca4-4138-a317-fca5730ba13a

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/spf13/cobra"

	"github.com/jdfalk/book-cataloger/internal/cache"
	"github.com/jdfalk/book-cataloger/internal/config"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Cache maintenance helpers",
		Long:  "Utilities for inspecting and clearing the local lookup cache.",
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and location",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats()
		},
	}

	cachePurgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Remove all cached lookups",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("yes")
			return runCachePurge(force)
		},
	}

	cacheInspectCmd = &cobra.Command{
		Use:   "inspect [isbn]...",
		Short: "Show cached entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			prefix, _ := cmd.Flags().GetString("prefix")
			raw, _ := cmd.Flags().GetBool("raw")
			return runCacheInspect(args, limit, prefix, raw)
		},
	}
)

func init() {
	cachePurgeCmd.Flags().Bool("yes", false, "Skip confirmation prompt")

	cacheInspectCmd.Flags().Int("limit", 5, "Number of keys to display when --raw is set")
	cacheInspectCmd.Flags().String("prefix", "book:", "Key prefix to inspect when --raw is set")
	cacheInspectCmd.Flags().Bool("raw", false, "Show raw Pebble key/value data (Pebble only)")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheInspectCmd)
}

func openCacheStore() (cache.Store, error) {
	store, err := cache.Open(config.AppConfig.CacheBackend, config.CachePath(), config.AppConfig.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return store, nil
}

func runCacheStats() error {
	store, err := openCacheStore()
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count()
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}

	fmt.Printf("Cache path: %s\n", config.CachePath())
	fmt.Printf("Backend:    %s\n", config.AppConfig.CacheBackend)
	fmt.Printf("Entry TTL:  %s\n", config.AppConfig.CacheTTL)
	fmt.Printf("Entries:    %d\n", count)
	return nil
}

func runCachePurge(force bool) error {
	store, err := openCacheStore()
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count()
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	if count == 0 {
		fmt.Println("Cache is already empty.")
		return nil
	}

	if !force {
		confirmed, err := promptYesNo(fmt.Sprintf("Remove %d cached entries", count))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted. Cache unchanged.")
			return nil
		}
	}

	removed, err := store.Purge()
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	fmt.Printf("Removed %d cached entries.\n", removed)
	return nil
}

func runCacheInspect(args []string, limit int, prefix string, raw bool) error {
	if raw {
		if config.AppConfig.CacheBackend != "pebble" {
			return fmt.Errorf("raw inspection is only available for the Pebble backend")
		}
		if limit <= 0 {
			return errors.New("limit must be positive")
		}
		return runRawPebbleDump(limit, prefix)
	}

	isbns := normalizeArgs(args)
	if len(isbns) == 0 {
		return errors.New("pass at least one ISBN, or use --raw to dump keys")
	}

	store, err := openCacheStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, isbn := range isbns {
		entry, ok := store.Get(isbn)
		if !ok {
			fmt.Printf("%s: not cached\n", isbn)
			continue
		}
		fmt.Printf("%s: %s\n", entry.ISBN, entry.Metadata.DisplayName())
		if entry.Metadata.PageCount > 0 {
			fmt.Printf("    Pages:  %d\n", entry.Metadata.PageCount)
		}
		if len(entry.Metadata.Genres) > 0 {
			fmt.Printf("    Genres: %s\n", strings.Join(entry.Metadata.Genres, ", "))
		}
		if entry.ImageSource != "" {
			fmt.Printf("    Cover:  %s (%s)\n", entry.ImageURL, entry.ImageSource)
		}
		fmt.Printf("    Stored: %s\n", entry.StoredAt.Format(time.RFC3339))
		fmt.Println("---")
	}

	return nil
}

func runRawPebbleDump(limit int, prefix string) error {
	db, err := pebble.Open(config.CachePath(), &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return fmt.Errorf("failed to open Pebble database: %w", err)
	}
	defer db.Close()

	iterOpts := &pebble.IterOptions{}
	if prefix != "" {
		iterOpts.LowerBound = []byte(prefix)
		iterOpts.UpperBound = append([]byte(prefix), 0xFF)
	}

	iter, err := db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	count := 0
	ok := iter.First()
	if prefix != "" {
		ok = iter.SeekGE([]byte(prefix))
	}

	for ; ok && iter.Valid(); ok = iter.Next() {
		fmt.Printf("Key: %s\n", string(iter.Key()))
		val := iter.Value()
		fmt.Printf("Value length: %d bytes\n", len(val))
		preview := truncateString(string(val), 500)
		fmt.Printf("Value preview: %s\n", preview)
		fmt.Println("---")

		count++
		if count >= limit {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}

	if count == 0 {
		fmt.Println("No keys matched the requested prefix.")
	}

	return nil
}

func promptYesNo(action string) (bool, error) {
	fmt.Printf("%s? Type 'yes' to confirm: ", action)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes", nil
}

func truncateString(in string, max int) string {
	if len(in) <= max {
		return in
	}
	return in[:max] + "..."
}
