package model

import (
	"strings"
	"time"
)

// Intent is the closed set of labels the dispatcher routes on.
type Intent string

const (
	IntentNavigation         Intent = "navigation"
	IntentCart               Intent = "cart"
	IntentCategoryNavigation Intent = "category_navigation"
	IntentProductNavigation  Intent = "product_navigation"
	IntentProductAction      Intent = "product_action"
	IntentApplyFilter        Intent = "apply_filter"
	IntentRemoveFilter       Intent = "remove_filter"
	IntentClearFilters       Intent = "clear_filters"
	IntentUserInfo           Intent = "user_info"
	IntentOrderCompletion    Intent = "order_completion"
	IntentGeneral            Intent = "general_command"
)

// Intents lists every routable label in prompt order.
var Intents = []Intent{
	IntentNavigation,
	IntentCart,
	IntentCategoryNavigation,
	IntentProductNavigation,
	IntentProductAction,
	IntentApplyFilter,
	IntentRemoveFilter,
	IntentClearFilters,
	IntentUserInfo,
	IntentOrderCompletion,
	IntentGeneral,
}

// ParseIntent maps free-form oracle output to a known intent, falling back to IntentGeneral.
func ParseIntent(s string) Intent {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "\"'`.")
	for _, in := range Intents {
		if s == string(in) {
			return in
		}
	}
	return IntentGeneral
}

// Role is the speaker of a transcript.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TranscriptEvent is an immutable transcript emitted by the speech transport.
type TranscriptEvent struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	IsFinal   bool      `json:"isFinal"`
	Timestamp time.Time `json:"timestamp"`
}

// Status is the voice session status.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusSpeaking   Status = "speaking"
	StatusError      Status = "error"
	StatusBlocked    Status = "blocked"
)

// CommandContext is the storefront state read at dispatch time.
type CommandContext struct {
	Route        string     `json:"route"`
	Product      *Product   `json:"product,omitempty"`
	SelectedSize string     `json:"selectedSize,omitempty"`
	Quantity     int        `json:"quantity"`
	Cart         []CartItem `json:"cart"`
}

// CartItem is a line in the shopping cart.
type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Size      string  `json:"size,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// ActionLogEntry records one dispatch outcome.
type ActionLogEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Success     bool      `json:"success"`
}

// FieldType tags a checkout field for the extraction oracle.
type FieldType string

const (
	FieldName       FieldType = "NAME"
	FieldEmail      FieldType = "EMAIL"
	FieldAddress    FieldType = "ADDRESS"
	FieldPhone      FieldType = "PHONE"
	FieldCardName   FieldType = "CARD_NAME"
	FieldCardNumber FieldType = "CARD_NUMBER"
	FieldExpiryDate FieldType = "EXPIRY_DATE"
	FieldCVV        FieldType = "CVV"
)

// FieldExtraction is the result of turning an utterance into one field value.
// An empty Value means nothing was extracted; Error then carries the reason.
type FieldExtraction struct {
	Value       string `json:"extracted"`
	Error       string `json:"error"`
	RateLimited bool   `json:"-"`
}

// OK reports whether a value was extracted.
func (f FieldExtraction) OK() bool {
	return strings.TrimSpace(f.Value) != ""
}

// User-info store field keys.
const (
	KeyName       = "name"
	KeyEmail      = "email"
	KeyAddress    = "address"
	KeyPhone      = "phone"
	KeyCardName   = "cardName"
	KeyCardNumber = "cardNumber"
	KeyExpiryDate = "expiryDate"
	KeyCVV        = "cvv"
)

// UserInfoKeys lists every key the user-info store accepts.
var UserInfoKeys = []string{KeyName, KeyEmail, KeyAddress, KeyPhone, KeyCardName, KeyCardNumber, KeyExpiryDate, KeyCVV}

// UserInfo is the shared checkout form record.
type UserInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	CardName   string `json:"cardName"`
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

// UserInfoFromMap builds a record from field-name keys; unknown keys are ignored.
func UserInfoFromMap(m map[string]string) UserInfo {
	return UserInfo{
		Name:       m[KeyName],
		Email:      m[KeyEmail],
		Address:    m[KeyAddress],
		Phone:      m[KeyPhone],
		CardName:   m[KeyCardName],
		CardNumber: m[KeyCardNumber],
		ExpiryDate: m[KeyExpiryDate],
		CVV:        m[KeyCVV],
	}
}

// Apply merges the non-empty entries of partial into u.
func (u *UserInfo) Apply(partial map[string]string) {
	set := func(dst *string, key string) {
		if v, ok := partial[key]; ok && v != "" {
			*dst = v
		}
	}
	set(&u.Name, KeyName)
	set(&u.Email, KeyEmail)
	set(&u.Address, KeyAddress)
	set(&u.Phone, KeyPhone)
	set(&u.CardName, KeyCardName)
	set(&u.CardNumber, KeyCardNumber)
	set(&u.ExpiryDate, KeyExpiryDate)
	set(&u.CVV, KeyCVV)
}

// FieldUpdate is broadcast whenever a checkout field is captured.
type FieldUpdate struct {
	Step          string   `json:"step"`
	Message       string   `json:"message"`
	UpdatedFields []string `json:"updatedFields"`
}

// FilterSet is the search-result filter state.
type FilterSet struct {
	Category  string   `json:"category,omitempty"`
	MinPrice  *float64 `json:"minPrice,omitempty"`
	MaxPrice  *float64 `json:"maxPrice,omitempty"`
	MinRating *float64 `json:"minRating,omitempty"`
	SortBy    string   `json:"sortBy,omitempty"`
}

// Filter keys accepted by RemoveFilters.
const (
	FilterCategory = "category"
	FilterPrice    = "price"
	FilterRating   = "rating"
	FilterSort     = "sort"
)

// Empty reports whether no filter is set.
func (f FilterSet) Empty() bool {
	return f.Category == "" && f.MinPrice == nil && f.MaxPrice == nil && f.MinRating == nil && f.SortBy == ""
}
