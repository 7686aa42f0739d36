package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cartscout/internal/config"
	"cartscout/internal/crawler"
	"cartscout/internal/storage"
	"cartscout/internal/types"
)

var (
	searchMinRating   float64
	searchMaxResults  int
	searchReviews     bool
	searchReviewPages int
	searchOutput      string
	searchCSV         bool
	searchMongoURI    string
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search for products and collect listings (and optionally reviews)",
		Long: `Search the configured site for products matching a keyword. Without a
keyword argument the parameters are collected interactively.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().Float64Var(&searchMinRating, "min-rating", 4.0, "drop listings rated below this")
	cmd.Flags().IntVarP(&searchMaxResults, "max-results", "n", 3, "maximum number of listings")
	cmd.Flags().BoolVar(&searchReviews, "reviews", true, "crawl customer reviews per listing")
	cmd.Flags().IntVar(&searchReviewPages, "review-pages", 2, "maximum review pages per listing")
	cmd.Flags().StringVarP(&searchOutput, "output", "o", "", "output filename (default products_<timestamp>.json)")
	cmd.Flags().BoolVar(&searchCSV, "csv", false, "also write a flat CSV export")
	cmd.Flags().StringVar(&searchMongoURI, "mongo-uri", "", "also store results in this MongoDB deployment")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if searchMongoURI != "" {
		cfg.Storage.Type = "mongodb"
		cfg.Storage.MongoURI = searchMongoURI
	}

	req := types.SearchRequest{
		MinRating:      searchMinRating,
		MaxResults:     searchMaxResults,
		CrawlReviews:   searchReviews,
		MaxReviewPages: searchReviewPages,
	}
	if len(args) > 0 {
		req.Keyword = strings.TrimSpace(args[0])
	} else {
		promptRequest(&req)
	}
	if req.Keyword == "" {
		return fmt.Errorf("no keyword provided")
	}
	if !req.CrawlReviews {
		req.MaxReviewPages = 0
	}

	c, err := crawler.New(cfg, logger)
	if err != nil {
		return err
	}

	listings, err := c.Crawl(context.Background(), req)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		fmt.Printf("No products found for %q\n", req.Keyword)
		return nil
	}

	if err := saveResults(cfg, logger, listings); err != nil {
		return err
	}

	fmt.Printf("Found %d products for %q\n\n", len(listings), req.Keyword)
	for i, l := range listings {
		fmt.Printf("%d. %s\n", i+1, l.Title)
		fmt.Printf("   Rating: %.1f\n", l.Rating)
		fmt.Printf("   Price: %s\n", l.Price)
		if len(l.Reviews) > 0 {
			fmt.Printf("   Reviews: %d crawled\n", len(l.Reviews))
			sample := l.Reviews[0]
			fmt.Printf("   Sample review: %q by %s\n", sample.Title, sample.ReviewerName)
		}
		fmt.Println()
	}
	return nil
}

// saveResults writes the result set to the configured backend. The JSON
// file store is always the default; MongoDB is additional when selected.
func saveResults(cfg *config.Config, logger *slog.Logger, listings []types.Listing) error {
	store, err := storage.NewFileStore(cfg.Storage.DataDir, logger)
	if err != nil {
		return err
	}

	path, err := store.Save(listings, searchOutput)
	if err != nil {
		return err
	}
	fmt.Printf("Results saved to %s\n", path)

	if searchCSV {
		csvName := strings.TrimSuffix(filepath.Base(path), ".json") + ".csv"
		csvPath, err := store.ExportCSV(listings, csvName)
		if err != nil {
			return err
		}
		fmt.Printf("CSV exported to %s\n", csvPath)
	}

	if cfg.Storage.Type == "mongodb" && cfg.Storage.MongoURI != "" {
		mongoStore, err := storage.NewMongoStore(cfg.Storage.MongoURI,
			cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, logger)
		if err != nil {
			return err
		}
		defer mongoStore.Close()
		if err := mongoStore.Save(context.Background(), listings); err != nil {
			return err
		}
	}
	return nil
}

// promptRequest collects search parameters interactively, falling back to
// defaults on bad input.
func promptRequest(req *types.SearchRequest) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("cartscout product crawler")
	fmt.Println(strings.Repeat("=", 30))

	req.Keyword = prompt(reader, "Enter search keyword: ")

	if v, err := strconv.ParseFloat(promptDefault(reader, "Minimum rating (0-5, default 4.0): ", "4.0"), 64); err == nil {
		req.MinRating = v
	}
	if v, err := strconv.Atoi(promptDefault(reader, "Max results (default 3): ", "3")); err == nil {
		req.MaxResults = v
	}

	answer := strings.ToLower(promptDefault(reader, "Crawl reviews? (y/n, default y): ", "y"))
	req.CrawlReviews = answer == "y" || answer == "yes"

	if req.CrawlReviews {
		if v, err := strconv.Atoi(promptDefault(reader, "Max review pages per product (default 2): ", "2")); err == nil {
			req.MaxReviewPages = v
		}
	} else {
		req.MaxReviewPages = 0
	}
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptDefault(reader *bufio.Reader, label, fallback string) string {
	answer := prompt(reader, label)
	if answer == "" {
		return fallback
	}
	return answer
}
