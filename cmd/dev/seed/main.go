package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/catalog"
	"storefront/pkg/config"
	"storefront/pkg/db"
)

// seed pushes one product and price through the admin catalog API of a running server,
// the same way the payment provider sync does, then reads the catalog back from the database.
func main() {
	var (
		apiURL    = flag.String("api-url", "", "server base url (defaults to http://localhost<HTTP_ADDR>)")
		adminKey  = flag.String("admin-key", "", "ADMIN_API_KEY used by the server")
		productID = flag.String("product-id", "prod_dev_tee", "product id")
		priceID   = flag.String("price-id", "", "price id (defaults to <product-id>_price)")
		name      = flag.String("name", "Dev T-Shirt", "product name")
		image     = flag.String("image", "", "product image url")
		amount    = flag.String("amount", "25.00", "price in major units, e.g. 25.00")
		currency  = flag.String("currency", "usd", "ISO currency code")
	)
	flag.Parse()

	cfg := config.Load()

	if *apiURL == "" {
		*apiURL = defaultAPIURL(cfg.HTTPAddr)
	}
	if *adminKey == "" {
		*adminKey = cfg.AdminAPIKey
	}
	if *adminKey == "" {
		fmt.Fprintln(os.Stderr, "missing -admin-key (or ADMIN_API_KEY in env/.env)")
		os.Exit(2)
	}
	if *priceID == "" {
		*priceID = *productID + "_price"
	}

	major, err := decimal.NewFromString(*amount)
	if err != nil || major.IsNegative() {
		fmt.Fprintf(os.Stderr, "invalid -amount %q\n", *amount)
		os.Exit(2)
	}
	unitAmount := catalog.MinorUnits(major, *currency)

	product := catalog.ProductInput{Active: true, Name: *name, Metadata: map[string]string{"source": "seed"}}
	if *image != "" {
		product.Images = []string{*image}
	}
	if err := put(*apiURL+"/api/admin/products/"+*productID, *adminKey, product); err != nil {
		fmt.Fprintf(os.Stderr, "put product: %v\n", err)
		fmt.Fprintf(os.Stderr, "tip: is the API running, and is HTTP_ADDR set correctly? api_url=%s\n", *apiURL)
		os.Exit(1)
	}
	price := catalog.PriceInput{Product: *productID, Active: true, Currency: *currency, Type: "one_time", UnitAmount: &unitAmount}
	if err := put(*apiURL+"/api/admin/prices/"+*priceID, *adminKey, price); err != nil {
		fmt.Fprintf(os.Stderr, "put price: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	listings, err := catalog.NewRepository(pool, nil).ListActive(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list catalog: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seed complete.\n")
	fmt.Printf("active products:\n")
	for _, l := range listings {
		for _, p := range l.Prices {
			fmt.Printf("  - product=%s price=%s %s\n", l.ID, p.ID, p.Display())
		}
	}
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("- Register or sign in at %s/signin, then add the product to your cart from %s/\n", *apiURL, *apiURL)
}

func put(url, key string, v any) error {
	body, _ := json.Marshal(v)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

func defaultAPIURL(httpAddr string) string {
	// httpAddr is typically ":8081" or "0.0.0.0:8081".
	addr := strings.TrimSpace(httpAddr)
	if addr == "" {
		addr = ":8081"
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	if strings.HasPrefix(addr, "0.0.0.0:") {
		return "http://localhost" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	return "http://" + addr
}
