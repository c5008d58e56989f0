package ws

import (
	"encoding/json"
	"testing"
)

// Clients send barcodes in "frame" and single codes in "upc"; the envelope
// must decode those names, not internal aliases.
func TestInboundWireFieldNames(t *testing.T) {
	var frame Inbound
	if err := json.Unmarshal([]byte(`{"type":"frame","frame":["012345678905","036000291452"]}`), &frame); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if frame.Type != MsgFrame || len(frame.Frame) != 2 {
		t.Fatalf("frame envelope: %+v", frame)
	}

	var manual Inbound
	if err := json.Unmarshal([]byte(`{"type":"manual_scan","upc":"012345678905"}`), &manual); err != nil {
		t.Fatalf("manual_scan: %v", err)
	}
	if manual.Type != MsgManualScan || manual.UPC != "012345678905" {
		t.Fatalf("manual_scan envelope: %+v", manual)
	}

	var lookup Inbound
	if err := json.Unmarshal([]byte(`{"type":"lookup_upc","upc":"036000291452"}`), &lookup); err != nil {
		t.Fatalf("lookup_upc: %v", err)
	}
	if lookup.Type != MsgLookupUPC || lookup.UPC != "036000291452" {
		t.Fatalf("lookup_upc envelope: %+v", lookup)
	}
}
