// file: cmd/root.go
// version: 1.0.0
// guid: 58004662-112b-4aa9-963e-562be22b6ff0

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jdfalk/book-cataloger/internal/archive"
	"github.com/jdfalk/book-cataloger/internal/cache"
	"github.com/jdfalk/book-cataloger/internal/catalog"
	"github.com/jdfalk/book-cataloger/internal/config"
	"github.com/jdfalk/book-cataloger/internal/fetcher"
	"github.com/jdfalk/book-cataloger/internal/metadata"
	"github.com/jdfalk/book-cataloger/internal/models"
	"github.com/jdfalk/book-cataloger/internal/server"
)

var (
	cfgFile        string
	cacheDir       string
	cacheBackend   string
	cacheTTL       string
	imageDir       string
	hardcoverToken string
	googleBooksKey string
	contact        string
	logLevel       string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "book-cataloger",
	Short: "Resolve book metadata and covers for Square catalog import",
	Long: `Book Cataloger resolves ISBNs against Hardcover, Open Library and
Google Books, downloads cover images, and produces a Square-importable
catalog CSV plus image archives.

Lookups are cached locally so repeat batches don't re-hit the providers.`,
}

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup <isbn>...",
	Short: "Resolve metadata and covers for ISBNs",
	Long: `Resolve each ISBN through the provider waterfall and print a
per-book summary. Optional flags write the Square catalog CSV or a bundle
archive (CSV plus images).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath, _ := cmd.Flags().GetString("csv")
		zipPath, _ := cmd.Flags().GetString("zip")
		location, _ := cmd.Flags().GetString("location")

		isbns := normalizeArgs(args)
		if len(isbns) == 0 {
			return fmt.Errorf("no usable ISBNs in arguments")
		}

		f, store, err := buildFetcher()
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Printf("Using cache: %s (%s)\n", config.CachePath(), config.AppConfig.CacheBackend)
		fmt.Printf("Resolving %d ISBNs...\n", len(isbns))

		bar := progressbar.Default(int64(len(isbns)))
		books := f.FetchAll(cmd.Context(), isbns, func(done, total int, rec *models.BookRecord) {
			_ = bar.Add(1)
		})
		_ = bar.Finish()
		fmt.Println()

		found := 0
		images := 0
		for i, b := range books {
			if b.HasTitle() {
				found++
				fmt.Printf("%3d. %s  %s\n", i+1, b.ISBN, b.DisplayName())
				if b.PageCount > 0 {
					fmt.Printf("     Pages: %d\n", b.PageCount)
				}
				if b.Price != "" {
					fmt.Printf("     Price: %s\n", b.Price)
				}
				if len(b.Genres) > 0 {
					fmt.Printf("     Genres: %s\n", strings.Join(b.Genres, ", "))
				}
			} else {
				fmt.Printf("%3d. %s  (not found)\n", i+1, b.ISBN)
			}
			if b.HasImage() {
				images++
				fmt.Printf("     Cover: %s (%s)\n", b.ImagePath, b.ImageSource)
			}
			for _, e := range b.Errors {
				fmt.Printf("     ! %s\n", e)
			}
		}

		fmt.Printf("\nResolved %d of %d books, %d covers stored.\n", found, len(books), images)

		if csvPath != "" {
			if err := writeCatalogFile(csvPath, books, location); err != nil {
				return err
			}
			fmt.Printf("Catalog written to: %s\n", csvPath)
		}
		if zipPath != "" {
			if err := writeBundleFile(zipPath, books, location); err != nil {
				return err
			}
			fmt.Printf("Bundle written to: %s\n", zipPath)
		}

		return nil
	},
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long:  `Start the web server for batch lookups and catalog downloads.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, store, err := buildFetcher()
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Printf("Using cache: %s (%s)\n", config.CachePath(), config.AppConfig.CacheBackend)
		fmt.Println("Starting book cataloger web server...")

		srv := server.NewServer(server.Options{
			Fetcher: f,
			Cache:   store,
		})
		cfg := server.GetDefaultServerConfig()

		// Override with command line flags if provided
		if port := cmd.Flag("port").Value.String(); port != "" {
			cfg.Port = port
		}
		if host := cmd.Flag("host").Value.String(); host != "" {
			cfg.Host = host
		}
		if rt := cmd.Flag("read-timeout").Value.String(); rt != "" {
			if d, err := time.ParseDuration(rt); err == nil {
				cfg.ReadTimeout = d
			}
		}
		if wt := cmd.Flag("write-timeout").Value.String(); wt != "" {
			if d, err := time.ParseDuration(wt); err == nil {
				cfg.WriteTimeout = d
			}
		}
		if it := cmd.Flag("idle-timeout").Value.String(); it != "" {
			if d, err := time.ParseDuration(it); err == nil {
				cfg.IdleTimeout = d
			}
		}

		return srv.Start(cfg)
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("book-cataloger %s\n", config.Version)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.book-cataloger.yaml)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "directory for the lookup cache and secrets file (default: $HOME/.book-cataloger)")
	rootCmd.PersistentFlags().StringVar(&cacheBackend, "cache-backend", "pebble", "cache backend: pebble (default) or sqlite")
	rootCmd.PersistentFlags().StringVar(&cacheTTL, "cache-ttl", "168h", "how long cached lookups stay fresh")
	rootCmd.PersistentFlags().StringVar(&imageDir, "image-dir", "", "directory for downloaded covers (default: <cache-dir>/images)")
	rootCmd.PersistentFlags().StringVar(&hardcoverToken, "hardcover-token", "", "Hardcover API token")
	rootCmd.PersistentFlags().StringVar(&googleBooksKey, "google-books-key", "", "Google Books API key")
	rootCmd.PersistentFlags().StringVar(&contact, "contact", "", "contact address sent in the User-Agent")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("cache_backend", rootCmd.PersistentFlags().Lookup("cache-backend"))
	viper.BindPFlag("cache_ttl", rootCmd.PersistentFlags().Lookup("cache-ttl"))
	viper.BindPFlag("image_dir", rootCmd.PersistentFlags().Lookup("image-dir"))
	viper.BindPFlag("hardcover_api_token", rootCmd.PersistentFlags().Lookup("hardcover-token"))
	viper.BindPFlag("google_books_api_key", rootCmd.PersistentFlags().Lookup("google-books-key"))
	viper.BindPFlag("contact", rootCmd.PersistentFlags().Lookup("contact"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	// Add lookup command specific flags
	lookupCmd.Flags().String("csv", "", "write the Square catalog CSV to this path")
	lookupCmd.Flags().String("zip", "", "write a bundle archive (CSV + images) to this path")
	lookupCmd.Flags().String("location", "My Store", "Square location name for the catalog columns")

	// Add serve command specific flags
	serveCmd.Flags().String("port", "8080", "port to run the web server on")
	serveCmd.Flags().String("host", "localhost", "host to bind the web server to")
	serveCmd.Flags().String("read-timeout", "15s", "read timeout (e.g. 15s, 1m)")
	serveCmd.Flags().String("write-timeout", "15s", "write timeout (e.g. 15s, 1m)")
	serveCmd.Flags().String("idle-timeout", "60s", "idle timeout (e.g. 60s, 2m)")
}

func initConfig() {
	// Load .env file if present (ignore errors)
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".book-cataloger")
	}

	viper.SetEnvPrefix("BOOK_CATALOGER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	config.InitConfig()

	// Secrets saved next to the cache fill anything flags and env left empty.
	if err := config.LoadConfigFromFile(); err != nil {
		fmt.Printf("Warning: could not load config file: %v\n", err)
	}

	// Ensure cache directory exists
	if config.AppConfig.CacheDir != "" {
		if err := os.MkdirAll(config.AppConfig.CacheDir, 0o755); err != nil {
			fmt.Printf("Error creating cache directory: %v\n", err)
		}
	}
}

// buildFetcher wires the provider clients and cache from AppConfig.
func buildFetcher() (*fetcher.Fetcher, cache.Store, error) {
	store, err := cache.Open(config.AppConfig.CacheBackend, config.CachePath(), config.AppConfig.CacheTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}

	ua := config.UserAgent()

	primary := metadata.NewHardcoverClient(config.AppConfig.APIKeys.HardcoverToken)
	primary.SetUserAgent(ua)

	registry := metadata.NewOpenLibraryClient()
	registry.SetUserAgent(ua)

	enrichment := metadata.NewGoogleBooksClient()
	enrichment.SetAPIKey(config.AppConfig.APIKeys.GoogleBooksKey)
	enrichment.SetUserAgent(ua)

	covers := metadata.NewBookcoverClient()
	covers.SetUserAgent(ua)

	f, err := fetcher.New(fetcher.Options{
		Primary:    primary,
		Registry:   registry,
		Enrichment: enrichment,
		Covers:     covers,
		Fallback:   metadata.OpenLibraryCovers{},
		Cache:      store,
		ImageDir:   config.AppConfig.ImageDir,
		UserAgent:  ua,
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to initialize fetcher: %w", err)
	}

	return f, store, nil
}

// normalizeArgs trims and strips separators, dropping empties and
// duplicates while preserving order.
func normalizeArgs(args []string) []string {
	cleaner := strings.NewReplacer("-", "", " ", "")
	seen := make(map[string]bool, len(args))
	out := make([]string, 0, len(args))
	for _, a := range args {
		cleaned := cleaner.Replace(strings.TrimSpace(a))
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	return out
}

func writeCatalogFile(path string, books []*models.BookRecord, location string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	if err := catalog.Write(out, books, catalog.Options{Location: location}); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return nil
}

func writeBundleFile(path string, books []*models.BookRecord, location string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	if err := archive.WriteBundleZip(out, books, catalog.Options{Location: location}); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	return nil
}
