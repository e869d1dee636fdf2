package booking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luxstay/receipt-engine/internal/layout"
	"github.com/luxstay/receipt-engine/pkg/receiptdoc"
)

// DefaultProduct is the brand printed on receipts and used in file names
const DefaultProduct = "LuxStay"

// noteWidth is the pre-wrap width for reservation notes
const noteWidth = 90

// Options customizes the generated receipt
type Options struct {
	// Product is the brand name; defaults to DefaultProduct
	Product string
	// CodeKind selects the header code; empty means QR, "none" disables it
	CodeKind string
	// ReservationID is the requested id, used when the payload carries none
	ReservationID string
}

// ReservationID returns the display id of resv, or the placeholder
func ReservationID(resv *Reservation) string {
	if resv == nil || resv.ID == 0 {
		return Placeholder
	}
	return strconv.FormatInt(resv.ID, 10)
}

// Filename returns the download name of a receipt, e.g. luxstay-receipt-42.pdf
func Filename(product, reservationID string) string {
	product = strings.ToLower(strings.TrimSpace(Pick(product, DefaultProduct)))
	product = strings.Join(strings.Fields(product), "-")
	return fmt.Sprintf("%s-receipt-%s.pdf", product, reservationID)
}

// ReceiptFor builds the receipt document of a reservation. room may be nil
// when the reservation has no room or it could not be loaded.
func ReceiptFor(resv *Reservation, room *Room, opts Options) *receiptdoc.Document {
	if resv == nil {
		resv = &Reservation{}
	}
	if room == nil {
		room = &Room{}
	}
	product := Pick(opts.Product, DefaultProduct)

	id := ReservationID(resv)
	if id == Placeholder {
		id = Pick(strings.TrimSpace(opts.ReservationID), Placeholder)
	}
	quote := QuoteFor(resv, room)

	hotelName := Pick(room.HotelName, "Hotel")
	roomTitle := "Room"
	if room.RoomNumber != nil {
		roomTitle = fmt.Sprintf("Room #%d", *room.RoomNumber)
	}
	var roomID string
	if room.ID != 0 {
		roomID = strconv.FormatInt(room.ID, 10)
	}
	roomID = Pick(idString(resv.RoomID), roomID, Placeholder)

	dates := fmt.Sprintf("%s → %s", LongDate(resv.StartDate), LongDate(resv.EndDate))

	guest := receiptdoc.Section{Title: "Guest"}
	var customerName, customerEmail, customerID string
	if resv.Customer != nil {
		customerName = resv.Customer.FullName
		customerEmail = resv.Customer.Email
		if resv.Customer.ID != 0 {
			customerID = strconv.FormatInt(resv.Customer.ID, 10)
		}
	}
	guest.Rows = []receiptdoc.Row{
		{Key: "Name", Value: Pick(customerName, "Guest")},
		{Key: "Customer ID", Value: Pick(customerID, idString(resv.CustomerID), Placeholder)},
	}
	if customerEmail != "" {
		guest.Rows = append(guest.Rows, receiptdoc.Row{Key: "Email", Value: customerEmail})
	}
	if notes := strings.TrimSpace(resv.Notes); notes != "" {
		guest.NoteLines = layout.Wrap("Notes: "+notes, noteWidth)
	}

	doc := &receiptdoc.Document{
		Title:         product + " — Reservation Receipt",
		SubtitleLeft:  fmt.Sprintf("%s • %s", hotelName, roomTitle),
		SubtitleRight: fmt.Sprintf("%s  •  %s", dates, Plural(quote.Nights, "night")),
		Sections: []receiptdoc.Section{
			{
				Title: "Reservation",
				Rows: []receiptdoc.Row{
					{Key: "Reservation ID", Value: "#" + id},
					{Key: "Status", Value: Pick(resv.Status, "ACTIVE")},
					{Key: "Payment", Value: Pick(resv.PaymentStatus, "UNPAID")},
					{Key: "Created at", Value: Pick(resv.CreatedAt, Placeholder)},
				},
			},
			{
				Title: "Stay",
				Rows: []receiptdoc.Row{
					{Key: "Hotel", Value: hotelName},
					{Key: "City", Value: Pick(room.City, Placeholder)},
					{Key: "Room", Value: fmt.Sprintf("%s (ID: %s)", roomTitle, roomID)},
					{Key: "Dates", Value: dates},
					{Key: "Nights", Value: strconv.Itoa(quote.Nights)},
				},
			},
			guest,
			{
				Title: "Charges",
				Rows: []receiptdoc.Row{
					{Key: "Nightly rate", Value: Money(quote.Rate)},
					{Key: "Subtotal", Value: Money(quote.Subtotal)},
					{Key: fmt.Sprintf("Service fee (%d%%)", ServiceFeePercent), Value: Money(quote.Fee)},
					{Key: "Total", Value: Money(quote.Total), Emphasis: &receiptdoc.Emphasis{Bold: true, FontSize: 12}},
				},
			},
		},
		FooterLines: []string{
			"Keep this receipt for check-in.",
			"Reservation ID: #" + id,
			fmt.Sprintf("Thank you for choosing %s.", product),
		},
	}

	if opts.CodeKind != "none" && id != Placeholder {
		doc.Code = &receiptdoc.Code{
			Kind:  Pick(opts.CodeKind, receiptdoc.CodeQR),
			Value: fmt.Sprintf("%s-RES-%s", strings.ToUpper(strings.Join(strings.Fields(product), "")), id),
		}
	}

	return doc
}
