// Package ws implements the live session protocol: requester sessions build
// carts by scanning, picker sessions fulfil a bound request, and scanner
// sessions do free-form catalog identification. Every message is one JSON
// object with a "type" field.
package ws

import (
	"pickhub/internal/domain"
	"pickhub/internal/scan"
)

// Inbound is the client->server envelope. Only the fields the named type
// uses are read; the rest stay zero.
type Inbound struct {
	Type string `json:"type"`

	// scanning
	Frame []string `json:"frame,omitempty"` // barcodes decoded from one camera frame

	// single lookup / manual scan / cart and item edits
	UPC      string `json:"upc,omitempty"`
	Quantity int    `json:"quantity,omitempty"`

	// request submission
	Name     string `json:"name,omitempty"`
	Priority string `json:"priority,omitempty"`
	Notes    string `json:"notes,omitempty"`

	// scanner session setup
	Queries      []string `json:"queries,omitempty"`
	Mode         string   `json:"mode,omitempty"`
	MainCategory string   `json:"main_category,omitempty"`
	Subcategory  string   `json:"subcategory,omitempty"`
}

// Inbound message types.
const (
	MsgInit         = "init"
	MsgFrame        = "frame"
	MsgLookupUPC    = "lookup_upc"
	MsgAddItem      = "add_item"
	MsgRemoveItem   = "remove_item"
	MsgUpdateQty    = "update_quantity"
	MsgGetCart      = "get_cart"
	MsgClearCart    = "clear_cart"
	MsgSubmit       = "submit"
	MsgManualScan   = "manual_scan"
	MsgManualUpdate = "manual_update"
	MsgGetStatus    = "get_status"
	MsgStop         = "stop"
)

// Detection is one resolved barcode inside a frame reply.
type Detection struct {
	Code       string           `json:"code"`
	Color      string           `json:"color"`
	Found      bool             `json:"found"`
	MatchType  string           `json:"match_type,omitempty"`
	InRequest  bool             `json:"in_request,omitempty"`
	Product    *domain.Product  `json:"product,omitempty"`
	Candidates []domain.Product `json:"candidates,omitempty"`
}

func detectionOf(code string, r scan.Result) Detection {
	d := Detection{
		Code:      code,
		Color:     r.Color,
		Found:     r.Found,
		MatchType: r.MatchType,
		InRequest: r.InRequest,
	}
	if r.Found {
		p := r.Product
		d.Product = &p
		d.Candidates = r.Candidates
	}
	return d
}

type errorReply struct {
	Type     string `json:"type"` // "error"
	Code     string `json:"code"`
	Message  string `json:"message"`
	LockLost bool   `json:"lock_lost,omitempty"`
}

// Outbound reply type values.
const (
	ReplyInit          = "init"
	ReplyDetection     = "detection"
	ReplyLookupResult  = "lookup_result"
	ReplyCartUpdated   = "cart_updated"
	ReplySubmitted     = "submitted"
	ReplyManualScan    = "manual_scan"
	ReplyUpdate        = "update"
	ReplyStatus        = "status"
	ReplyStatusChanged = "status_changed"
	ReplyError         = "error"
)

type frameReply struct {
	Type       string      `json:"type"` // "detection"
	Detections []Detection `json:"detections"`
}

type lookupReply struct {
	Type      string    `json:"type"` // "lookup_result"
	InputCode string    `json:"input_upc"`
	Detection Detection `json:"detection"`
}

type cartReply struct {
	Type  string     `json:"type"` // "cart_updated"
	Items []CartItem `json:"items"`
	Total int        `json:"total_quantity"`
}

type initReply struct {
	Type       string              `json:"type"` // "init"
	Categories map[string][]string `json:"categories,omitempty"`
	Cart       []CartItem          `json:"cart,omitempty"`
	Products   []domain.Product    `json:"matched_products,omitempty"`
}

type submittedReply struct {
	Type        string              `json:"type"` // "submitted"
	RequestName string              `json:"request_name"`
	Request     *domain.PickRequest `json:"request"`
}

type statusSnapshot struct {
	Type    string              `json:"type"` // "status"
	Request *domain.PickRequest `json:"request"`
}

type statusChanged struct {
	Type   string               `json:"type"` // "status_changed"
	Name   string               `json:"name"`
	Status domain.RequestStatus `json:"status"`
}
