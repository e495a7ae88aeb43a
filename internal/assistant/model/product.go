package model

import "strings"

type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Rating      float64  `json:"rating"`
	Sizes       []string `json:"sizes,omitempty"`
	InStock     bool     `json:"in_stock"`
}

// HasSizes reports whether the product declares a size set.
func (p Product) HasSizes() bool {
	return len(p.Sizes) > 0
}

// MatchSize returns the declared size equal to s ignoring case.
func (p Product) MatchSize(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, size := range p.Sizes {
		if strings.EqualFold(size, s) {
			return size, true
		}
	}
	return "", false
}

// Storefront routes.
const (
	RouteHome     = "/"
	RouteProducts = "/products"
	RouteCart     = "/cart"
	RoutePayment  = "/payment"
)

// CategoryRoute returns the product listing route for a category.
func CategoryRoute(category string) string {
	return RouteProducts + "?category=" + category
}

// ProductRoute returns the detail route for a product.
func ProductRoute(id string) string {
	return "/product/" + id
}

// IsPaymentRoute reports whether route is the payment page, ignoring query strings.
func IsPaymentRoute(route string) bool {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	return strings.TrimRight(route, "/") == RoutePayment
}
