package hl7

import (
	"testing"

	"github.com/medbridge/go-clinconv/internal/clinical"
)

const sampleORM = "MSH|^~\\&|HIS|LAB|LAB|LAB|202308221200||ORM^O01|MSG00001|P|2.3|\n" +
	"PID|||PAT001||DOE^JOHN||19800101|M|||123 MAIN ST^^ANYTOWN^NY^12345||(555)555-5555|||S\n" +
	"PV1||I|MED|||12345^DOCTOR^JOHN||||||||ADM|A0||\n" +
	"ORC|NW|ORD001|ORD001||IP|Q6H|202308221200\n" +
	"RXE|^Aspirin^81MG^TAB|81MG|TAB|Q6H|30|202308221200\n" +
	"RXR|PO|ORAL\n" +
	"RXE|^Lisinopril^10MG^TAB|10MG|TAB|QD|60|202308221200\n" +
	"RXR|PO|ORAL"

func parseForTest(t *testing.T, raw string) (*Message, []string) {
	t.Helper()
	segments := SplitSegments(raw)
	msg, err := BuildMessage(segments)
	if err != nil {
		t.Fatal(err)
	}
	return msg, segments
}

func TestExtractOrderMessage(t *testing.T) {
	msg, segments := parseForTest(t, sampleORM)
	result := Extract(msg, segments)

	if len(result.Patients) != 1 {
		t.Fatalf("expected 1 patient, got %d", len(result.Patients))
	}
	p := result.Patients[0]
	if p.PatientID != "PAT001" {
		t.Errorf("patient ID: got %q", p.PatientID)
	}
	if p.FirstName != "JOHN" || p.LastName != "DOE" || p.FullName != "JOHN DOE" {
		t.Errorf("name: got %q/%q/%q", p.FirstName, p.LastName, p.FullName)
	}
	if p.DateOfBirth != "1980-01-01" {
		t.Errorf("date of birth: got %q", p.DateOfBirth)
	}
	if p.Gender != "M" {
		t.Errorf("gender: got %q", p.Gender)
	}
	if p.Address != "123 MAIN ST, ANYTOWN, NY" {
		t.Errorf("address: got %q", p.Address)
	}
	if p.PhoneNumber != "(555)555-5555" {
		t.Errorf("phone: got %q", p.PhoneNumber)
	}
	if p.Metadata["source_segment"] != "PID" {
		t.Errorf("source segment: got %v", p.Metadata["source_segment"])
	}

	if len(result.DrugRecords) != 2 {
		t.Fatalf("expected 2 drug records, got %d", len(result.DrugRecords))
	}

	aspirin := result.DrugRecords[0]
	if aspirin.DrugName != "Aspirin" {
		t.Errorf("record 0 drug name: got %q", aspirin.DrugName)
	}
	if aspirin.Dosage != "Q6H" || aspirin.Strength != "81MG" {
		t.Errorf("record 0 dosage/strength: got %q/%q", aspirin.Dosage, aspirin.Strength)
	}
	if aspirin.Quantity == nil || *aspirin.Quantity != 30 {
		t.Errorf("record 0 quantity: got %v", aspirin.Quantity)
	}
	if aspirin.PatientID != "PAT001" {
		t.Errorf("record 0 patient ID: got %q", aspirin.PatientID)
	}
	if aspirin.PrescriptionID != "ORD001" {
		t.Errorf("record 0 prescription ID: got %q", aspirin.PrescriptionID)
	}
	route, ok := aspirin.Metadata["route_info"].(map[string]any)
	if !ok || route["administration_route"] != "PO" || route["administration_site"] != "ORAL" {
		t.Errorf("record 0 route info: got %v", aspirin.Metadata["route_info"])
	}
	info, ok := aspirin.Metadata["patient_info"].(clinical.Patient)
	if !ok || info.PatientID != "PAT001" || info.FullName != "JOHN DOE" {
		t.Errorf("record 0 patient info: got %v", aspirin.Metadata["patient_info"])
	}

	lisinopril := result.DrugRecords[1]
	if lisinopril.DrugName != "Lisinopril" {
		t.Errorf("record 1 drug name: got %q", lisinopril.DrugName)
	}
	// Only one ORC in the message; the second record has no prescription.
	if lisinopril.PrescriptionID != "" {
		t.Errorf("record 1 prescription ID: got %q", lisinopril.PrescriptionID)
	}
}

func TestExtractPrefersRXAOverRXE(t *testing.T) {
	raw := "MSH|^~\\&|EPIC|CLINIC|||20230822||VXU^V04|1|P|2.5.1\n" +
		"PID|||PAT002||SMITH^JANE||19900202|F\n" +
		"RXA|0|1|20230822||49281-0215-10^TDAP VACCINE^NDC|0.5|ML|||CLINIC NURSE\n" +
		"RXE|^Aspirin^81MG|81MG|TAB|Q6H|30"

	msg, segments := parseForTest(t, raw)
	result := Extract(msg, segments)

	if len(result.DrugRecords) != 1 {
		t.Fatalf("expected 1 drug record, got %d", len(result.DrugRecords))
	}
	rec := result.DrugRecords[0]
	if rec.DrugName != "TDAP VACCINE" {
		t.Errorf("drug name: got %q, want the RXA drug", rec.DrugName)
	}
	if rec.Metadata["segment_type"] != "RXA" {
		t.Errorf("segment type: got %v", rec.Metadata["segment_type"])
	}
	if rec.Metadata["administered_on"] != "2023-08-22" {
		t.Errorf("administered_on: got %v", rec.Metadata["administered_on"])
	}
	if rec.Metadata["administration_date"] != "20230822" {
		t.Errorf("administration_date should stay raw: got %v", rec.Metadata["administration_date"])
	}
}

func TestExtractEmbeddedPIDFallback(t *testing.T) {
	// The whole message as one raw segment: the PID never becomes a real
	// segment, so extraction falls back to the raw text.
	segments := []string{singleLineVXU}
	msg, err := BuildMessage(segments)
	if err != nil {
		t.Fatal(err)
	}
	result := Extract(msg, segments)

	if len(result.Patients) != 1 {
		t.Fatalf("expected 1 patient, got %d", len(result.Patients))
	}
	p := result.Patients[0]
	if p.PatientID != "E46749^^^^MR^" {
		t.Errorf("patient ID should stay raw: got %q", p.PatientID)
	}
	if p.FirstName != "JOHN" || p.LastName != "DOE" {
		t.Errorf("name: got %q/%q", p.FirstName, p.LastName)
	}
	if p.DateOfBirth != "2014-05-15" {
		t.Errorf("date of birth: got %q", p.DateOfBirth)
	}
	if p.Gender != "M" {
		t.Errorf("gender: got %q", p.Gender)
	}
	if p.Metadata["source_segment"] != "PID_EMBEDDED" {
		t.Errorf("source segment: got %v", p.Metadata["source_segment"])
	}
}

func TestExtractPV1Fallback(t *testing.T) {
	raw := "MSH|^~\\&|HIS|LAB|LAB|LAB|202308221200||ADT^A01|1|P|2.3\n" +
		"PV1||I|MED|||12345^DOCTOR^JOHN||||||||ADM|A0"

	msg, segments := parseForTest(t, raw)
	result := Extract(msg, segments)

	if len(result.Patients) != 1 {
		t.Fatalf("expected 1 patient, got %d", len(result.Patients))
	}
	p := result.Patients[0]
	if p.PatientID != "PV1_PATIENT" {
		t.Errorf("patient ID: got %q", p.PatientID)
	}
	if p.FullName != "Patient from PV1" {
		t.Errorf("full name: got %q", p.FullName)
	}
	if p.DateOfBirth != "1900-01-01" {
		t.Errorf("date of birth: got %q", p.DateOfBirth)
	}
	if p.Metadata["source_segment"] != "PV1" {
		t.Errorf("source segment: got %v", p.Metadata["source_segment"])
	}
}

func TestExtractNoPatientNoDrugs(t *testing.T) {
	raw := "MSH|^~\\&|HIS|LAB|LAB|LAB|202308221200||ACK|1|P|2.3"
	msg, segments := parseForTest(t, raw)
	result := Extract(msg, segments)

	if len(result.Patients) != 0 || len(result.DrugRecords) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"20150202", "2015-02-02", true},
		{"19800101", "1980-01-01", true},
		{"20230822120000", "2023-08-22", true}, // timestamp prefix
		{"abcd1234", "", false},
		{"9999", "", false},
		{"", "", false},
		{"18991231", "", false}, // year below range
		{"20231301", "", false}, // month out of range
		{"20230832", "", false}, // day out of range
		{"20230230", "2023-02-30", true}, // no days-in-month check
	}
	for _, c := range cases {
		got, ok := ParseDate(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ParseDate(%q) = %q,%v, want %q,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	if q := clinical.ParseQuantity("30"); q == nil || *q != 30 {
		t.Errorf("ParseQuantity(30): got %v", q)
	}
	for _, s := range []string{"", "thirty", "0.5"} {
		if q := clinical.ParseQuantity(s); q != nil {
			t.Errorf("ParseQuantity(%q): expected nil, got %d", s, *q)
		}
	}
}
