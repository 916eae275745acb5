package id_test

import (
	"database/sql/driver"
	"strings"
	"testing"

	"github.com/xraph/iou/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"ContractID", id.NewContractID, "iou_"},
		{"EntryID", id.NewEntryID, "jrn_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"ContractID", id.NewContractID, id.ParseContractID},
		{"EntryID", id.NewEntryID, id.ParseEntryID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed != original {
				t.Errorf("round-trip mismatch: %q != %q", parsed, original)
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParseContractID(id.NewEntryID().String()); err == nil {
		t.Error("ParseContractID accepted a jrn_ id")
	}
	if _, err := id.ParseEntryID(id.NewContractID().String()); err == nil {
		t.Error("ParseEntryID accepted an iou_ id")
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "iou_", "not an id", "iou_!!!"} {
		if _, err := id.Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Fatal("zero ID should be nil")
	}
	if i.String() != "" || i.Prefix() != "" {
		t.Errorf("nil ID should render empty, got %q / %q", i.String(), i.Prefix())
	}

	v, err := i.Value()
	if err != nil || v != nil {
		t.Errorf("nil ID Value() = %v, %v; want nil, nil", v, err)
	}
}

func TestSQLRoundTrip(t *testing.T) {
	original := id.NewContractID()

	v, err := original.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var _ driver.Value = v

	var scanned id.ID
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("Scan string: %v", err)
	}
	if scanned != original {
		t.Errorf("scan mismatch: %q != %q", scanned, original)
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if fromBytes != original {
		t.Errorf("scan bytes mismatch: %q != %q", fromBytes, original)
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil || !fromNil.IsNil() {
		t.Errorf("Scan(nil) = %v, nil=%v", err, fromNil.IsNil())
	}

	if err := fromNil.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestTextRoundTrip(t *testing.T) {
	original := id.NewEntryID()

	text, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var decoded id.ID
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if decoded != original {
		t.Errorf("text mismatch: %q != %q", decoded, original)
	}
}
