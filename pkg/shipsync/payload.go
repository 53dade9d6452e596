package shipsync

import (
	"strings"
)

// Policy carries the submission settings read from the host's option
// storage at build time.
type Policy struct {
	ServiceID             string
	PaymentByReceiver     bool
	IncludeProductPayment bool
	// ServedCountry is the ISO 3166-1 alpha-2 country this deployment
	// ships for; orders elsewhere are not eligible.
	ServedCountry string
	// CountryCode is the provider's wire code for the served country.
	CountryCode string
	AccessToken string
}

// PaymentBy returns the provider's payment-responsibility value.
func (p Policy) PaymentBy() string {
	if p.PaymentByReceiver {
		return "receiver"
	}
	return "sender"
}

// PolicyFromStore assembles a Policy from the host option storage,
// falling back to the given deployment defaults for the region.
func PolicyFromStore(cfg ConfigStore, servedCountry, countryCode string) Policy {
	return Policy{
		ServiceID:             cfg.Get(ConfigKeyServiceID, ""),
		PaymentByReceiver:     cfg.Get(ConfigKeyPaymentByReceiver, "true") == "true",
		IncludeProductPayment: cfg.Get(ConfigKeyIncludeProductPayment, "true") == "true",
		ServedCountry:         servedCountry,
		CountryCode:           countryCode,
		AccessToken:           cfg.Get(ConfigKeyAccessToken, ""),
	}
}

// ShipmentRequest is the canonical outbound payload for POST /order/create.
type ShipmentRequest struct {
	Order RequestOrder `json:"order"`
	Token string       `json:"token"`
}

// RequestOrder is the shipment description inside a ShipmentRequest.
type RequestOrder struct {
	Service   string             `json:"service"`
	Notes     string             `json:"notes"`
	Contacts  []RequestContact   `json:"contacts"`
	Products  []RequestProduct   `json:"products"`
	PaymentBy string             `json:"paymentBy"`
	To        RequestDestination `json:"to"`
	Metadata  RequestMetadata    `json:"metadata"`
}

// RequestContact identifies the shipment recipient.
type RequestContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// RequestProduct is one shippable product line.
type RequestProduct struct {
	SKU          string  `json:"sku"`
	Title        string  `json:"title"`
	Quantity     int     `json:"quantity"`
	WidthCM      int     `json:"widthCM"`
	HeightCM     int     `json:"heightCM"`
	LengthCM     int     `json:"lengthCM"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	IsChargeable bool    `json:"isChargeable"`
}

// RequestDestination is the delivery target.
type RequestDestination struct {
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	Area        string `json:"area"`
	Address     string `json:"address"`
}

// RequestMetadata links the shipment back to the commerce order. The
// provider echoes it in webhook events.
type RequestMetadata struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
}

// RateRequest is the outbound payload for POST /order/cost.
type RateRequest struct {
	Service   string             `json:"service"`
	Products  []RequestProduct   `json:"products"`
	PaymentBy string             `json:"paymentBy"`
	To        RequestDestination `json:"to"`
	IsPickup  bool               `json:"isPickup"`
	Token     string             `json:"token"`
}

// SplitCityArea splits a "<city>::<area>" composite on the first "::".
// The area is empty when no separator is present.
func SplitCityArea(s string) (city, area string) {
	city, area, _ = strings.Cut(s, "::")
	return city, area
}

// BuildShipmentRequest transforms an order into the provider's
// shipment-creation payload. Pure: no I/O, no mutation of the order.
// Eligibility (destination country vs. served region) is the caller's
// concern.
func BuildShipmentRequest(order *ShipmentOrder, policy Policy) *ShipmentRequest {
	city, area := SplitCityArea(order.DestinationCity)

	products := make([]RequestProduct, len(order.LineItems))
	for i, item := range order.LineItems {
		amount := 0.0
		if policy.IncludeProductPayment {
			amount = item.Total
		}
		products[i] = RequestProduct{
			SKU:          item.SKU,
			Title:        item.Title,
			Quantity:     item.Quantity,
			WidthCM:      item.WidthCM,
			HeightCM:     item.HeightCM,
			LengthCM:     item.LengthCM,
			Amount:       amount,
			Currency:     strings.ToLower(item.Currency),
			IsChargeable: policy.IncludeProductPayment,
		}
	}

	return &ShipmentRequest{
		Order: RequestOrder{
			Service: policy.ServiceID,
			Notes:   order.Notes,
			Contacts: []RequestContact{
				{Name: order.ContactName, Phone: order.ContactPhone},
			},
			Products:  products,
			PaymentBy: policy.PaymentBy(),
			To: RequestDestination{
				CountryCode: policy.CountryCode,
				City:        city,
				Area:        area,
				Address:     order.DestinationAddress,
			},
			Metadata: RequestMetadata{
				OrderID:    order.OrderID,
				CustomerID: order.CustomerID,
			},
		},
		Token: policy.AccessToken,
	}
}
