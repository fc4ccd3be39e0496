package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/shipping"
	"github.com/noah-isme/toko-storefront/internal/storefront"
)

// cartseed writes a demo cart for one session so the storefront pages can be
// exercised without clicking through the product cards.
func main() {
	var (
		sessionID = flag.String("session", "", "session id to seed (value of the toko_session cookie)")
		items     = flag.String("items", "1:1,4:2", "comma separated product_id:quantity pairs")
		ttl       = flag.Duration("ttl", 24*time.Hour, "expiry of the seeded cart")
		dryRun    = flag.Bool("dry-run", false, "print the cart without writing it")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	if strings.TrimSpace(*sessionID) == "" {
		log.Fatal("-session is required")
	}

	products, err := catalog.Load(os.Getenv("CATALOG_FILE"))
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}
	c, err := buildCart(storefront.CatalogLines{Catalog: products}, *items)
	if err != nil {
		log.Fatalf("parse items: %v", err)
	}

	for _, it := range c {
		fmt.Printf("%-4s %-28s x%-3d %s\n", it.ID, it.Nombre, it.Cantidad, pricing.FormatARS(pricing.ParsePrice(string(it.Precio))))
	}
	totals := pricing.Summarize(c, shipping.Domicilio)
	fmt.Printf("subtotal %s, total with home delivery %s\n", totals.SubtotalText, totals.TotalText)
	if *dryRun {
		return
	}

	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if redisURL == "" {
		log.Fatal("REDIS_URL is not set")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := strings.TrimSpace(os.Getenv("CART_STORAGE_KEY"))
	store := &cart.Store{Backend: cart.RedisBackend{Client: client, TTL: *ttl}, Key: key}
	if err := store.Write(ctx, *sessionID, c); err != nil {
		log.Fatalf("write cart: %v", err)
	}
	log.Printf("Seeded %d lines for session %s", len(c), *sessionID)
}

func buildCart(lines storefront.CatalogLines, pairs string) (cart.Cart, error) {
	var c cart.Cart
	for _, pair := range strings.Split(pairs, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, rawQty, ok := strings.Cut(pair, ":")
		qty := 1
		if ok {
			n, err := strconv.Atoi(strings.TrimSpace(rawQty))
			if err != nil {
				return nil, fmt.Errorf("quantity for %s: %w", id, err)
			}
			qty = n
		}
		line, err := lines.LineFor(strings.TrimSpace(id))
		if err != nil {
			return nil, err
		}
		c = cart.WithQuantity(c, line, qty)
	}
	return c, nil
}
