package order

// Order is a single storefront order as returned by the WooCommerce REST API.
// Records are read-only once fetched; the sync engine never writes them back.
type Order struct {
	ID          int            `json:"id"`
	DateCreated string         `json:"date_created"`
	Total       string         `json:"total"`
	Billing     BillingDetails `json:"billing"`
	LineItems   []LineItem     `json:"line_items"`
}

type BillingDetails struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address1  string `json:"address_1"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

type LineItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"`
}
