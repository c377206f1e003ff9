package cxml

import (
	"strings"

	"github.com/medbridge/go-clinconv/internal/clinical"
)

// drug record classification inputs for the heuristic scan
var (
	drugFieldKeys = []string{"name", "dosage", "strength", "quantity"}
	drugKeywords  = []string{"drug", "medication", "medicine"}
)

// Extract walks a normalized tree and produces patient and drug facts. Two
// complementary passes run on every document: a generic heuristic scan that
// classifies drug-shaped mappings anywhere in the tree, then the
// prescription/patient/medications schema walk. Their results concatenate.
func Extract(root *Node) clinical.ExtractionResult {
	var result clinical.ExtractionResult
	scanForDrugs(root, &result)
	walkPrescriptions(root, &result)
	return result
}

// scanForDrugs recursively visits every mapping in key order. A mapping is a
// drug record when it carries at least one drug field, its serialized text
// mentions a drug keyword, and it is not itself a patient wrapper.
func scanForDrugs(node *Node, result *clinical.ExtractionResult) {
	for _, key := range node.Keys() {
		v, _ := node.Get(key)
		switch v.Kind {
		case KindNode:
			if isDrugRecord(v.Node) {
				result.DrugRecords = append(result.DrugRecords, normalizeDrug(v.Node, nil, nil))
			} else {
				scanForDrugs(v.Node, result)
			}
		case KindList:
			for _, item := range v.List {
				if item.Kind == KindNode {
					scanForDrugs(item.Node, result)
				}
			}
		}
	}
}

func isDrugRecord(node *Node) bool {
	if _, ok := node.Get("patient_id"); ok {
		return false
	}
	hasField := false
	for _, key := range drugFieldKeys {
		if _, ok := node.Get(key); ok {
			hasField = true
			break
		}
	}
	if !hasField {
		return false
	}
	text := strings.ToLower(serialize(node))
	for _, kw := range drugKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// serialize flattens a node into searchable text, keys and values alike.
func serialize(node *Node) string {
	var sb strings.Builder
	for _, key := range node.Keys() {
		v, _ := node.Get(key)
		sb.WriteString(key)
		sb.WriteByte(' ')
		serializeValue(v, &sb)
	}
	return sb.String()
}

func serializeValue(v Value, sb *strings.Builder) {
	switch v.Kind {
	case KindText:
		sb.WriteString(v.Text)
		sb.WriteByte(' ')
	case KindNode:
		sb.WriteString(serialize(v.Node))
	case KindList:
		for _, item := range v.List {
			serializeValue(item, sb)
		}
	}
}

// walkPrescriptions handles the prescription schema. A `prescriptions` root
// holds repeated `prescription` entries each with a single `medication`; a
// bare `prescription` root nests its list under `medications/medication`.
func walkPrescriptions(root *Node, result *clinical.ExtractionResult) {
	if v, ok := root.Get("prescriptions"); ok && v.Kind == KindNode {
		inner, ok := v.Node.Get("prescription")
		if !ok {
			return
		}
		for _, p := range asList(inner) {
			if p.Kind != KindNode {
				continue
			}
			patient := patientOf(p.Node, result)
			if med, ok := p.Node.Get("medication"); ok && med.Kind == KindNode {
				result.DrugRecords = append(result.DrugRecords, normalizeDrug(med.Node, patient, p.Node))
			}
		}
		return
	}

	if v, ok := root.Get("prescription"); ok && v.Kind == KindNode {
		patient := patientOf(v.Node, result)
		meds, ok := v.Node.Get("medications")
		if !ok || meds.Kind != KindNode {
			return
		}
		inner, ok := meds.Node.Get("medication")
		if !ok {
			return
		}
		for _, med := range asList(inner) {
			if med.Kind != KindNode {
				continue
			}
			result.DrugRecords = append(result.DrugRecords, normalizeDrug(med.Node, patient, v.Node))
		}
	}
}

// patientOf normalizes a prescription's nested patient, appending it to the
// result when it resolves to a non-empty patient ID.
func patientOf(prescription *Node, result *clinical.ExtractionResult) *Node {
	v, ok := prescription.Get("patient")
	if !ok || v.Kind != KindNode {
		return nil
	}
	patient := normalizePatient(v.Node)
	if patient.PatientID != "" {
		result.Patients = append(result.Patients, patient)
	}
	return v.Node
}

func normalizePatient(info *Node) clinical.Patient {
	name := info.Text("name")
	first, last := clinical.SplitName(name)

	return clinical.Patient{
		PatientID:   info.Text("id"),
		FirstName:   first,
		LastName:    last,
		FullName:    name,
		Age:         clinical.ParseQuantity(info.Text("age")),
		Gender:      info.Text("gender"),
		Address:     info.Text("address"),
		PhoneNumber: info.Text("phone"),
		Metadata: map[string]any{
			"source_format": clinical.SourceXML,
		},
	}
}

// normalizeDrug maps a drug-shaped node onto the normalized record, trying
// the field aliases in a fixed order. The sibling patient supplies the
// patient ID when the record has none of its own.
func normalizeDrug(data, patientInfo, prescriptionInfo *Node) clinical.DrugRecord {
	patientID := data.Text("patient_id")
	if patientID == "" && patientInfo != nil {
		patientID = patientInfo.Text("id")
	}

	prescriptionID := data.Text("prescription_id")
	if prescriptionID == "" {
		prescriptionID = data.Text("id")
	}

	metadata := map[string]any{
		"source_format": clinical.SourceXML,
	}
	if patientInfo != nil {
		metadata["patient_info"] = textFields(patientInfo)
	}
	if prescriptionInfo != nil {
		metadata["prescription_info"] = textFields(prescriptionInfo)
	}

	return clinical.DrugRecord{
		DrugName:       firstText(data, "name", "drug_name", "medication_name"),
		Dosage:         firstText(data, "dosage", "dose"),
		Strength:       firstText(data, "strength", "potency"),
		Quantity:       clinical.ParseQuantity(data.Text("quantity")),
		PatientID:      patientID,
		PrescriptionID: prescriptionID,
		Metadata:       metadata,
	}
}

func firstText(node *Node, keys ...string) string {
	for _, key := range keys {
		if v := node.Text(key); v != "" {
			return v
		}
	}
	return ""
}

// textFields projects a node's text-valued children into a plain map for
// metadata storage.
func textFields(node *Node) map[string]string {
	out := make(map[string]string)
	for _, key := range node.Keys() {
		if v, _ := node.Get(key); v.Kind == KindText {
			out[key] = v.Text
		}
	}
	return out
}

// asList yields a value's occurrence list: a one-element list for a single
// occurrence, the underlying list otherwise.
func asList(v Value) []Value {
	if v.Kind == KindList {
		return v.List
	}
	return []Value{v}
}
