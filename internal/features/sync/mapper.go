package sync

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-ordersync/internal/features/crm"
	"go-ordersync/internal/features/order"
)

const dealStage = "Qualification"

// closingDateOffset is the fixed window the CRM expects between order intake
// and expected close.
const closingDateOffset = 30 * 24 * time.Hour

// FormatError indicates a field on the source order could not be parsed
type FormatError struct {
	Field string
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("order field %q has unparsable value %q", e.Field, e.Value)
}

// MapToContact copies billing details onto a CRM contact. No validation:
// the CRM is the authority on what it accepts.
func MapToContact(o order.Order) crm.Contact {
	return crm.Contact{
		FirstName:      o.Billing.FirstName,
		LastName:       o.Billing.LastName,
		Email:          o.Billing.Email,
		Phone:          o.Billing.Phone,
		MailingStreet:  o.Billing.Address1,
		MailingCity:    o.Billing.City,
		MailingState:   o.Billing.State,
		MailingZip:     o.Billing.Postcode,
		MailingCountry: o.Billing.Country,
	}
}

// MapToDeal derives the sales opportunity for an order. The contact
// reference is left empty; the engine sets it once the contact upsert has
// resolved an id.
func MapToDeal(o order.Order) (crm.Deal, error) {
	amount, err := strconv.ParseFloat(o.Total, 64)
	if err != nil {
		return crm.Deal{}, &FormatError{Field: "total", Value: o.Total}
	}

	productNames := make([]string, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		productNames = append(productNames, item.Name)
	}

	return crm.Deal{
		DealName:    fmt.Sprintf("Order #%d - %s %s", o.ID, o.Billing.FirstName, o.Billing.LastName),
		Amount:      amount,
		Stage:       dealStage,
		Description: fmt.Sprintf("Products: %s\nOrder Date: %s", strings.Join(productNames, ", "), o.DateCreated),
		ClosingDate: time.Now().UTC().Add(closingDateOffset).Format("2006-01-02"),
	}, nil
}
