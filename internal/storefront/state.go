package storefront

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// State is the in-memory storefront shared by the voice handlers.
type State struct {
	catalog *Catalog

	mu           sync.RWMutex
	route        string
	product      *model.Product
	selectedSize string
	quantity     int
	cart         []model.CartItem
	filters      model.FilterSet
	userInfo     model.UserInfo
	orders       int
	listeners    []func(route string)
}

func NewState(catalog *Catalog) *State {
	return &State{catalog: catalog, route: model.RouteHome, quantity: 1}
}

func (s *State) Catalog() *Catalog {
	return s.catalog
}

// OnRouteChange registers fn to run after every navigation.
func (s *State) OnRouteChange(fn func(route string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *State) Navigate(route string) {
	s.mu.Lock()
	s.route = route
	if id, ok := strings.CutPrefix(route, "/product/"); ok {
		if p, found := s.catalog.Product(id); found && (s.product == nil || s.product.ID != id) {
			s.product = &p
			s.selectedSize = ""
			s.quantity = 1
		}
	} else {
		s.product = nil
	}
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	logx.Debug().Str("route", route).Msg("storefront navigated")
	for _, fn := range listeners {
		fn(route)
	}
}

func (s *State) Route() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.route
}

func (s *State) CommandContext() model.CommandContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cc := model.CommandContext{
		Route:        s.route,
		SelectedSize: s.selectedSize,
		Quantity:     s.quantity,
		Cart:         slices.Clone(s.cart),
	}
	if s.product != nil {
		p := *s.product
		cc.Product = &p
	}
	return cc
}

func (s *State) SelectSize(size string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedSize = size
}

func (s *State) SetQuantity(quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quantity = quantity
}

// AddToCart merges lines with the same product and size.
func (s *State) AddToCart(p model.Product, size string, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart {
		if s.cart[i].ProductID == p.ID && s.cart[i].Size == size {
			s.cart[i].Quantity += quantity
			return
		}
	}
	s.cart = append(s.cart, model.CartItem{ProductID: p.ID, Name: p.Name, Size: size, Quantity: quantity, Price: p.Price})
}

func (s *State) Cart() []model.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cart)
}

// ApplyFilters merges the set fields of f into the current filters.
func (s *State) ApplyFilters(f model.FilterSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Category != "" {
		s.filters.Category = f.Category
	}
	if f.MinPrice != nil {
		s.filters.MinPrice = f.MinPrice
	}
	if f.MaxPrice != nil {
		s.filters.MaxPrice = f.MaxPrice
	}
	if f.MinRating != nil {
		s.filters.MinRating = f.MinRating
	}
	if f.SortBy != "" {
		s.filters.SortBy = f.SortBy
	}
}

func (s *State) RemoveFilters(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		switch k {
		case model.FilterCategory:
			s.filters.Category = ""
		case model.FilterPrice:
			s.filters.MinPrice, s.filters.MaxPrice = nil, nil
		case model.FilterRating:
			s.filters.MinRating = nil
		case model.FilterSort:
			s.filters.SortBy = ""
		}
	}
}

func (s *State) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = model.FilterSet{}
}

func (s *State) Filters() model.FilterSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// FilteredProducts applies the current filters to the catalog.
func (s *State) FilteredProducts() []model.Product {
	f := s.Filters()
	var out []model.Product
	for _, p := range s.catalog.Products() {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		if f.MinRating != nil && p.Rating < *f.MinRating {
			continue
		}
		out = append(out, p)
	}
	switch f.SortBy {
	case "price-asc":
		slices.SortStableFunc(out, func(a, b model.Product) int { return cmpFloat(a.Price, b.Price) })
	case "price-desc":
		slices.SortStableFunc(out, func(a, b model.Product) int { return cmpFloat(b.Price, a.Price) })
	case "rating":
		slices.SortStableFunc(out, func(a, b model.Product) int { return cmpFloat(b.Rating, a.Rating) })
	}
	return out
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Get implements model.UserInfoStore.
func (s *State) Get(context.Context) (model.UserInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userInfo, nil
}

// Update implements model.UserInfoStore.
func (s *State) Update(_ context.Context, partial map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userInfo.Apply(partial)
	return nil
}

// PlaceOrder is the order trigger; it empties the cart.
func (s *State) PlaceOrder() {
	s.mu.Lock()
	s.orders++
	items := len(s.cart)
	s.cart = nil
	s.mu.Unlock()
	logx.Info().Int("items", items).Msg("order placed")
}

func (s *State) Orders() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders
}

var (
	_ model.ContextProvider  = (*State)(nil)
	_ model.Navigator        = (*State)(nil)
	_ model.Cart             = (*State)(nil)
	_ model.ProductSelection = (*State)(nil)
	_ model.Filters          = (*State)(nil)
	_ model.UserInfoStore    = (*State)(nil)
)
