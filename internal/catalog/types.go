package catalog

import (
	"errors"
	"strings"
)

type Product struct {
	ID          string            `json:"id"`
	Active      bool              `json:"active"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Image       *string           `json:"image"`
	Metadata    map[string]string `json:"metadata"`
}

type Price struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId"`
	Active     bool   `json:"active"`
	Currency   string `json:"currency"`
	Type       string `json:"type"`
	UnitAmount *int64 `json:"unitAmount"`
}

// Listing is an active product together with its active prices.
type Listing struct {
	Product
	Prices []Price `json:"prices"`
}

type Customer struct {
	ID               string `json:"id"`
	StripeCustomerID string `json:"stripeCustomerId"`
}

// ProductInput is the payment-provider shaped product payload accepted by the admin API.
type ProductInput struct {
	Active      bool              `json:"active"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Images      []string          `json:"images"`
	Metadata    map[string]string `json:"metadata"`
}

// ToProduct keeps only the first image.
func (in ProductInput) ToProduct(id string) Product {
	p := Product{
		ID:          id,
		Active:      in.Active,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Metadata:    in.Metadata,
	}
	if len(in.Images) > 0 && in.Images[0] != "" {
		img := in.Images[0]
		p.Image = &img
	}
	if p.Metadata == nil {
		p.Metadata = map[string]string{}
	}
	return p
}

type PriceInput struct {
	Product    string `json:"product"`
	Active     bool   `json:"active"`
	Currency   string `json:"currency"`
	Type       string `json:"type"`
	UnitAmount *int64 `json:"unit_amount"`
}

func (in PriceInput) ToPrice(id string) Price {
	return Price{
		ID:         id,
		ProductID:  strings.TrimSpace(in.Product),
		Active:     in.Active,
		Currency:   strings.ToLower(strings.TrimSpace(in.Currency)),
		Type:       strings.TrimSpace(in.Type),
		UnitAmount: in.UnitAmount,
	}
}

var ErrNotFound = errors.New("not found")

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string { return e.Field + ": " + e.Message }

func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ValidationError{Field: "id", Message: "required"}
	}
	if p.Name == "" {
		return ValidationError{Field: "name", Message: "required"}
	}
	return nil
}

func (p Price) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return ValidationError{Field: "id", Message: "required"}
	case p.ProductID == "":
		return ValidationError{Field: "product", Message: "required"}
	case len(p.Currency) != 3:
		return ValidationError{Field: "currency", Message: "must be a 3-letter ISO code"}
	case p.Type != "one_time" && p.Type != "recurring":
		return ValidationError{Field: "type", Message: "must be one_time or recurring"}
	case p.UnitAmount != nil && *p.UnitAmount < 0:
		return ValidationError{Field: "unit_amount", Message: "must not be negative"}
	}
	return nil
}
