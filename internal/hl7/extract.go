package hl7

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/medbridge/go-clinconv/internal/clinical"
)

// Sentinel values for patients resolved through the PV1 fallback, where no
// real identity is available.
const (
	pv1PatientID   = "PV1_PATIENT"
	pv1PatientName = "Patient from PV1"
	pv1DateOfBirth = "1900-01-01"
)

// Extract walks a message model and produces normalized patient and drug
// facts. rawSegments is the tokenizer output for the same message; the
// embedded-PID fallback reads it when no PID segment was promoted into the
// model.
//
// Resolution policy: one patient per message via the PID, embedded-PID,
// PV1 chain; one drug family per message, RXA taking priority over RXE;
// ORC and RXR segments pair with drug segments positionally.
func Extract(msg *Message, rawSegments []string) clinical.ExtractionResult {
	var result clinical.ExtractionResult

	prescriptions := extractPrescriptionInfo(msg)

	patient := extractPatient(msg, rawSegments)
	if patient.PatientID != "" {
		result.Patients = append(result.Patients, patient)
	}

	var drugSegments []Segment
	var segmentType string
	switch {
	case msg.Has("RXA"):
		drugSegments, segmentType = msg.All("RXA"), "RXA"
	case msg.Has("RXE"):
		drugSegments, segmentType = msg.All("RXE"), "RXE"
	}

	for i, seg := range drugSegments {
		var record clinical.DrugRecord
		if segmentType == "RXA" {
			record = parseRXA(seg)
		} else {
			record = parseRXE(seg)
		}
		if record.DrugName == "" {
			continue
		}
		record.PatientID = patient.PatientID
		if patient.PatientID != "" {
			record.Metadata["patient_info"] = patient
		}
		if i < len(prescriptions) {
			record.PrescriptionID = prescriptions[i].id
			record.Metadata["prescription_info"] = prescriptions[i].metadata
		}
		result.DrugRecords = append(result.DrugRecords, record)
	}

	// RXR segments pair with already-built records; extras are discarded.
	for i, rxr := range msg.All("RXR") {
		if i >= len(result.DrugRecords) {
			break
		}
		result.DrugRecords[i].Metadata["route_info"] = map[string]any{
			"administration_route": fieldText(rxr, 1),
			"administration_site":  fieldText(rxr, 2),
		}
	}

	return result
}

// extractPatient resolves the single patient for the message. The chain
// stops at the first source that yields a non-empty patient ID.
func extractPatient(msg *Message, rawSegments []string) clinical.Patient {
	var patient clinical.Patient

	if pid, ok := msg.Segment("PID"); ok {
		patient = patientFromPID(pid)
	} else if len(rawSegments) > 0 && strings.Contains(rawSegments[0], "|PID|") {
		patient = patientFromRawPID(rawSegments[0])
	}

	if patient.PatientID == "" {
		if pv1, ok := msg.Segment("PV1"); ok {
			patient = patientFromPV1(pv1)
		}
	}
	return patient
}

func patientFromPID(pid Segment) clinical.Patient {
	id := fieldScalar(pid, 3)
	if id == "" {
		id = fieldScalar(pid, 2)
	}

	first, last, full := "", "", ""
	if f, ok := pid.FieldAt(5); ok {
		first, last, full = parseNameField(f)
	}

	dob := ""
	if d, ok := ParseDate(fieldScalar(pid, 7)); ok {
		dob = d
	}

	phone := fieldText(pid, 13)
	if phone == "" {
		phone = fieldText(pid, 14)
	}

	return clinical.Patient{
		PatientID:   id,
		FirstName:   first,
		LastName:    last,
		FullName:    full,
		DateOfBirth: dob,
		Gender:      fieldScalar(pid, 8),
		Address:     parseAddress(pid),
		PhoneNumber: phone,
		Metadata: map[string]any{
			"source_format":  clinical.SourceHL7,
			"source_segment": "PID",
		},
	}
}

// patientFromRawPID is a textual fallback for messages whose embedded PID
// never got promoted into a real segment: it cuts the span between |PID| and
// the next segment marker out of the first raw segment and indexes the
// pipe-split elements directly.
func patientFromRawPID(first string) clinical.Patient {
	idx := strings.Index(first, "|PID|")
	if idx < 0 {
		return clinical.Patient{}
	}
	data := first[idx+len("|PID|"):]
	if next := segmentMarker.FindStringIndex(data); next != nil {
		data = data[:next[0]]
	}

	elems := strings.Split(data, fieldSep)
	if len(elems) < 8 {
		return clinical.Patient{}
	}

	firstName, lastName, fullName := parseNameString(elems[4])
	dob := ""
	if d, ok := ParseDate(elems[6]); ok {
		dob = d
	}

	return clinical.Patient{
		PatientID:   elems[2],
		FirstName:   firstName,
		LastName:    lastName,
		FullName:    fullName,
		DateOfBirth: dob,
		Gender:      elems[7],
		Metadata: map[string]any{
			"source_format":  clinical.SourceHL7,
			"source_segment": "PID_EMBEDDED",
		},
	}
}

// patientFromPV1 builds a minimal patient from the visit segment. Field 19
// (visit number) stands in for the patient ID, overridden by the first
// component of field 20 when that is composite; sentinels fill the rest.
func patientFromPV1(pv1 Segment) clinical.Patient {
	id := fieldScalar(pv1, 19)
	if f, ok := pv1.FieldAt(20); ok && f.Kind == KindComposite {
		if v := f.ComponentValue(0); v != "" {
			id = v
		}
	}
	if id == "" {
		id = pv1PatientID
	}

	return clinical.Patient{
		PatientID:   id,
		FullName:    pv1PatientName,
		DateOfBirth: pv1DateOfBirth,
		Metadata: map[string]any{
			"source_format":  clinical.SourceHL7,
			"source_segment": "PV1",
		},
	}
}

// parseRXA reads a pharmacy administration segment. Field 5 carries the
// coded drug: component 1 is the display name, component 0 the code, and
// component 4 an alternate name used as a last resort.
func parseRXA(seg Segment) clinical.DrugRecord {
	name := ""
	if f, ok := seg.FieldAt(5); ok {
		if f.Kind == KindComposite {
			if len(f.Components) > 1 {
				name = f.ComponentValue(1)
			} else if len(f.Components) > 0 {
				name = f.ComponentValue(0)
			}
			if name == "" && len(f.Components) > 4 {
				name = f.ComponentValue(4)
			}
		} else {
			name = f.Value
		}
	}

	rawDate := fieldScalar(seg, 3)
	adminDate := ""
	if d, ok := ParseDate(rawDate); ok {
		adminDate = d
	}

	dosage := fieldScalar(seg, 6)

	return clinical.DrugRecord{
		DrugName: name,
		Dosage:   dosage,
		Quantity: clinical.ParseQuantity(dosage),
		Metadata: map[string]any{
			"source_format":       clinical.SourceHL7,
			"segment_type":        "RXA",
			"administration_date": rawDate,
			"administered_on":     adminDate,
			"completion_status":   fieldScalar(seg, 21),
			"administration_info": fieldText(seg, 9),
		},
	}
}

// parseRXE reads a pharmacy encoded order segment: drug name from component
// 1 of field 1, dosage from field 4, strength from field 2, quantity from
// field 5.
func parseRXE(seg Segment) clinical.DrugRecord {
	name := ""
	if f, ok := seg.FieldAt(1); ok {
		if f.Kind == KindComposite {
			name = f.ComponentValue(1)
		} else {
			name = f.Value
		}
	}

	return clinical.DrugRecord{
		DrugName: name,
		Dosage:   fieldScalar(seg, 4),
		Strength: fieldScalar(seg, 2),
		Quantity: clinical.ParseQuantity(fieldScalar(seg, 5)),
		Metadata: map[string]any{
			"source_format": clinical.SourceHL7,
			"segment_type":  "RXE",
		},
	}
}

// prescriptionInfo is the per-ORC order detail paired positionally with drug
// segments.
type prescriptionInfo struct {
	id       string
	metadata map[string]any
}

func extractPrescriptionInfo(msg *Message) []prescriptionInfo {
	var infos []prescriptionInfo
	for _, orc := range msg.All("ORC") {
		infos = append(infos, prescriptionInfo{
			id: fieldScalar(orc, 2),
			metadata: map[string]any{
				"prescription_id":     fieldScalar(orc, 2),
				"order_control":       fieldScalar(orc, 1),
				"filler_order_number": fieldScalar(orc, 3),
				"order_status":        fieldScalar(orc, 5),
				"quantity_timing":     fieldText(orc, 7),
			},
		})
	}
	return infos
}

// parseNameField reads an HL7 name composite: component 0 is the last name,
// component 1 the first name. A primitive field is kept whole.
func parseNameField(f Field) (first, last, full string) {
	if f.Kind != KindComposite {
		return "", "", f.Value
	}
	last = f.ComponentValue(0)
	first = f.ComponentValue(1)
	return first, last, strings.TrimSpace(first + " " + last)
}

// parseNameString is the raw-text sibling of parseNameField, used by the
// embedded-PID fallback where no field model exists.
func parseNameString(raw string) (first, last, full string) {
	if raw == "" {
		return "", "", ""
	}
	if !strings.Contains(raw, componentSep) {
		return "", "", raw
	}
	parts := strings.Split(raw, componentSep)
	last = parts[0]
	if len(parts) > 1 {
		first = parts[1]
	}
	return first, last, strings.TrimSpace(first + " " + last)
}

// parseAddress joins the street, city, state and zip components of PID
// field 11 with ", ", dropping empty components.
func parseAddress(pid Segment) string {
	f, ok := pid.FieldAt(11)
	if !ok {
		return ""
	}
	if f.Kind != KindComposite {
		return f.Value
	}
	var parts []string
	for i := 0; i < len(f.Components) && i < 4; i++ {
		if v := f.ComponentValue(i); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// ParseDate converts an HL7 timestamp prefix (YYYYMMDD...) to an ISO date.
// The first eight characters must be numeric groups with the year in
// [1900,2100], month in [1,12] and day in [1,31]; no days-in-month check is
// applied. Violations yield ok=false, absence rather than error.
func ParseDate(s string) (string, bool) {
	if len(s) < 8 {
		return "", false
	}
	if !numeric(s[:4]) || !numeric(s[4:6]) || !numeric(s[6:8]) {
		return "", false
	}
	year, _ := strconv.Atoi(s[:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])
	if year < 1900 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%d-%02d-%02d", year, month, day), true
}

func numeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fieldScalar returns the single-valued form of a field, or empty when the
// field is absent.
func fieldScalar(seg Segment, i int) string {
	f, ok := seg.FieldAt(i)
	if !ok {
		return ""
	}
	return f.Scalar()
}

// fieldText returns the reconstructed raw text of a field, or empty when the
// field is absent.
func fieldText(seg Segment, i int) string {
	f, ok := seg.FieldAt(i)
	if !ok {
		return ""
	}
	return f.Text()
}
