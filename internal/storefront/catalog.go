package storefront

import (
	"slices"
	"strings"

	"github.com/arckit11/v-novaa/internal/assistant/model"
)

// Catalog is an immutable in-memory product list.
type Catalog struct {
	products   []model.Product
	categories []string
	byID       map[string]model.Product
}

func NewCatalog(products []model.Product) *Catalog {
	c := &Catalog{byID: make(map[string]model.Product, len(products))}
	for _, p := range products {
		c.products = append(c.products, p)
		c.byID[p.ID] = p
		if !slices.Contains(c.categories, p.Category) {
			c.categories = append(c.categories, p.Category)
		}
	}
	return c
}

// DefaultCatalog returns the storefront's seeded product list.
func DefaultCatalog() *Catalog {
	return NewCatalog(seedProducts)
}

func (c *Catalog) Products() []model.Product {
	return slices.Clone(c.products)
}

func (c *Catalog) Categories() []string {
	return slices.Clone(c.categories)
}

func (c *Catalog) Product(id string) (model.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// MatchProduct finds the product named in text by full name or by a distinctive last word.
func (c *Catalog) MatchProduct(text string) (model.Product, bool) {
	lower := strings.ToLower(text)
	for _, p := range c.products {
		if strings.Contains(lower, strings.ToLower(p.Name)) {
			return p, true
		}
	}
	for _, p := range c.products {
		words := strings.Fields(strings.ToLower(p.Name))
		last := words[len(words)-1]
		if len(last) > 3 && containsWord(lower, last) {
			return p, true
		}
	}
	return model.Product{}, false
}

// MatchCategory finds the category named in text. Plural and singular forms both match.
func (c *Catalog) MatchCategory(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, cat := range c.categories {
		stem := strings.TrimSuffix(strings.ToLower(cat), "s")
		if strings.Contains(lower, stem) {
			return cat, true
		}
	}
	return "", false
}

func containsWord(text, word string) bool {
	for _, w := range strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!' }) {
		if w == word || strings.TrimSuffix(w, "s") == word {
			return true
		}
	}
	return false
}

var seedProducts = []model.Product{
	{ID: "g1", Name: "TitanGrip Adjustable Dumbbells", Category: "Gym", Price: 349.99, Rating: 4.9, InStock: true, Description: "Quick-adjust dial system from 5 to 52.5 lbs per hand."},
	{ID: "g2", Name: "IronForge Kettlebell Pro", Category: "Gym", Price: 79.99, Rating: 4.7, InStock: true, Description: "Competition-grade cast iron kettlebell."},
	{ID: "g3", Name: "PowerRack Home Station", Category: "Gym", Price: 699.99, Rating: 4.8, InStock: true, Description: "Full-size power rack with pull-up bar."},
	{ID: "g4", Name: "GripForce Workout Gloves", Category: "Gym", Price: 29.99, Rating: 4.5, InStock: true, Description: "Leather gym gloves with wrist wrap support.", Sizes: []string{"S", "M", "L", "XL"}},
	{ID: "g5", Name: "EliteForm Weight Belt", Category: "Gym", Price: 59.99, Rating: 4.8, InStock: true, Description: "Leather lifting belt with double-prong buckle.", Sizes: []string{"S", "M", "L", "XL", "XXL"}},
	{ID: "y1", Name: "ProFlex Yoga Mat", Category: "Yoga", Price: 89.99, Rating: 4.8, InStock: true, Description: "Non-slip yoga mat with alignment lines."},
	{ID: "y2", Name: "ZenBlock Cork Yoga Blocks", Category: "Yoga", Price: 34.99, Rating: 4.6, InStock: true, Description: "Set of 2 natural cork yoga blocks."},
	{ID: "y3", Name: "FlowFit Yoga Leggings", Category: "Yoga", Price: 68.99, Rating: 4.7, InStock: true, Description: "High-waist compression leggings.", Sizes: []string{"XS", "S", "M", "L", "XL"}},
	{ID: "r1", Name: "AeroStride Running Shoes", Category: "Running", Price: 179.99, Rating: 4.7, InStock: true, Description: "Carbon-plate midsole with energy return.", Sizes: []string{"7", "8", "9", "10", "11", "12"}},
	{ID: "r2", Name: "SwiftDry Running Shorts", Category: "Running", Price: 44.99, Rating: 4.6, InStock: true, Description: "Lightweight shorts with built-in liner.", Sizes: []string{"XS", "S", "M", "L", "XL"}},
	{ID: "w1", Name: "Nova Watch Pro", Category: "Wearables", Price: 399.99, Rating: 4.9, InStock: true, Description: "Health tracking with always-on display."},
	{ID: "w2", Name: "PulseBand Fitness Tracker", Category: "Wearables", Price: 129.99, Rating: 4.6, InStock: true, Description: "Slim fitness band with 14-day battery."},
	{ID: "a1", Name: "Nova X-1 Wireless Headphones", Category: "Audio", Price: 299.99, Rating: 4.8, InStock: true, Description: "Noise-cancelling headphones with spatial audio."},
	{ID: "c1", Name: "Nova Book Air", Category: "Computing", Price: 1299.99, Rating: 4.7, InStock: true, Description: "Thin laptop with N1 chip."},
	{ID: "rc2", Name: "ThermaGun Massage Gun", Category: "Recovery", Price: 199.99, Rating: 4.8, InStock: true, Description: "Percussion massage device with 5 speeds."},
	{ID: "cd1", Name: "PulseFit Smart Jump Rope", Category: "Cardio", Price: 69.99, Rating: 4.4, InStock: true, Description: "Jump rope that counts jumps and calories."},
}

var _ model.Catalog = (*Catalog)(nil)
