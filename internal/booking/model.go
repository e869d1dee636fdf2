// Package booking maps hotel reservations onto receipt documents.
package booking

import "strconv"

// Reservation is a reservation as returned by the hotel backend
type Reservation struct {
	ID                  int64     `json:"id"`
	RoomID              *int64    `json:"roomId,omitempty"`
	CustomerID          *int64    `json:"customerId,omitempty"`
	HandledByEmployeeID *int64    `json:"handledByEmployeeId,omitempty"`
	StartDate           string    `json:"startDate,omitempty"`
	EndDate             string    `json:"endDate,omitempty"`
	Type                string    `json:"type,omitempty"`
	Status              string    `json:"status,omitempty"`
	PaymentStatus       string    `json:"paymentStatus,omitempty"`
	CheckedInAt         string    `json:"checkedInAt,omitempty"`
	CheckedOutAt        string    `json:"checkedOutAt,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	CreatedAt           string    `json:"createdAt,omitempty"`
	Customer            *Customer `json:"customer,omitempty"`
}

// Customer is the guest embedded in a reservation
type Customer struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Room is a hotel room as returned by the hotel backend
type Room struct {
	ID         int64   `json:"id"`
	HotelID    int64   `json:"hotelId,omitempty"`
	HotelName  string  `json:"hotelName,omitempty"`
	City       string  `json:"city,omitempty"`
	ChainName  string  `json:"chainName,omitempty"`
	RoomNumber *int    `json:"roomNumber,omitempty"`
	Price      float64 `json:"price"`
	Capacity   int     `json:"capacity,omitempty"`
	Extendable bool    `json:"extendable,omitempty"`
	Amenities  string  `json:"amenities,omitempty"`
}

// HasRoom reports whether the reservation references a room
func (r *Reservation) HasRoom() bool {
	return r != nil && r.RoomID != nil
}

func idString(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
