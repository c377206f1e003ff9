package engine_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/medbridge/go-clinconv/internal/clinical"
	"github.com/medbridge/go-clinconv/internal/cxml"
	"github.com/medbridge/go-clinconv/internal/domain/conversion"
	"github.com/medbridge/go-clinconv/internal/engine"
	"github.com/medbridge/go-clinconv/internal/hl7"
)

const sampleHL7 = "MSH|^~\\&|HIS|LAB|LAB|LAB|202308221200||ORM^O01|MSG00001|P|2.3|\n" +
	"PID|||PAT001||DOE^JOHN||19800101|M\n" +
	"ORC|NW|ORD001||IP\n" +
	"RXE|^Aspirin^81MG^TAB|81MG|TAB|Q6H|30\n" +
	"RXE|^Lisinopril^10MG^TAB|10MG|TAB|QD|60"

const sampleXML = `<prescription>
	<patient><id>PAT001</id><name>John Doe</name></patient>
	<medications>
		<medication><name>Aspirin</name><dosage>81mg</dosage><quantity>30</quantity></medication>
	</medications>
</prescription>`

// memStore is an in-memory Store recording every status transition.
type memStore struct {
	mu          sync.Mutex
	conversions map[string]*conversion.Conversion
	records     map[string][]conversion.DrugRecord
	transitions map[string][]conversion.Status
	nextID      int64
}

func newMemStore() *memStore {
	return &memStore{
		conversions: make(map[string]*conversion.Conversion),
		records:     make(map[string][]conversion.DrugRecord),
		transitions: make(map[string][]conversion.Status),
	}
}

func (s *memStore) CreateConversion(ctx context.Context, id, conversionType, sourceData string) (*conversion.Conversion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &conversion.Conversion{ID: id, Type: conversionType, SourceData: sourceData, Status: conversion.StatusPending}
	s.conversions[id] = c
	return c, nil
}

func (s *memStore) GetConversion(ctx context.Context, id string) (*conversion.Conversion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversions[id]
	if !ok {
		return nil, conversion.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id string, status conversion.Status, converted []byte, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversions[id]
	if !ok {
		return conversion.ErrNotFound
	}
	c.Status = status
	if converted != nil {
		c.ConvertedData = converted
	}
	c.ErrorMessage = errorMessage
	s.transitions[id] = append(s.transitions[id], status)
	return nil
}

func (s *memStore) CreateDrugRecords(ctx context.Context, conversionID string, result clinical.ExtractionResult) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, rec := range result.DrugRecords {
		s.nextID++
		s.records[conversionID] = append(s.records[conversionID], conversion.DrugRecord{
			ID:             s.nextID,
			ConversionID:   conversionID,
			DrugName:       rec.DrugName,
			Dosage:         rec.Dosage,
			Strength:       rec.Strength,
			Quantity:       rec.Quantity,
			PatientID:      rec.PatientID,
			PrescriptionID: rec.PrescriptionID,
			Metadata:       rec.Metadata,
		})
		ids = append(ids, s.nextID)
	}
	return ids, nil
}

func (s *memStore) ListDrugRecords(ctx context.Context, conversionID string) ([]conversion.DrugRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[conversionID], nil
}

func (s *memStore) GetOrCreatePatient(ctx context.Context, p clinical.Patient) (int64, error) {
	return 1, nil
}

func (s *memStore) CountDrugRecords(ctx context.Context, conversionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[conversionID]), nil
}

func newTestManager(store *memStore) *engine.Manager {
	processor := engine.NewProcessor(store, nil, nil)
	manager := engine.NewManager(store, processor, nil, nil)
	manager.RegisterParser(hl7.NewParser())
	manager.RegisterParser(cxml.NewParser())
	return manager
}

func TestConvertHL7(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	result, err := manager.Convert(context.Background(), engine.FormatHL7, sampleHL7)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != conversion.StatusCompleted {
		t.Fatalf("status: got %s", result.Status)
	}
	if result.DrugRecordsCount != 2 || result.PatientsCount != 1 {
		t.Errorf("counts: got %d records, %d patients", result.DrugRecordsCount, result.PatientsCount)
	}
	if result.MessageType != "ORM" {
		t.Errorf("message type: got %q", result.MessageType)
	}

	got := store.transitions[result.ConversionID]
	want := []conversion.Status{conversion.StatusProcessing, conversion.StatusCompleted}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("transitions: got %v, want %v", got, want)
	}

	c, _ := store.GetConversion(context.Background(), result.ConversionID)
	var summary conversion.Summary
	if err := json.Unmarshal(c.ConvertedData, &summary); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.DrugRecordsCount != 2 || summary.PatientsCount != 1 || summary.MessageType != "ORM" {
		t.Errorf("summary: got %+v", summary)
	}
}

func TestConvertXML(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	result, err := manager.Convert(context.Background(), engine.FormatXML, sampleXML)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != conversion.StatusCompleted {
		t.Fatalf("status: got %s", result.Status)
	}
	if result.DrugRecordsCount != 1 || result.PatientsCount != 1 {
		t.Errorf("counts: got %d records, %d patients", result.DrugRecordsCount, result.PatientsCount)
	}
	if result.MessageType != "" {
		t.Errorf("XML conversions have no message type, got %q", result.MessageType)
	}

	records, _ := store.ListDrugRecords(context.Background(), result.ConversionID)
	if len(records) != 1 || records[0].DrugName != "Aspirin" || records[0].PatientID != "PAT001" {
		t.Errorf("persisted records: got %+v", records)
	}
}

func TestConvertInvalidInputFails(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	result, err := manager.Convert(context.Background(), engine.FormatHL7, "Invalid HL7 data")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != conversion.StatusFailed {
		t.Fatalf("status: got %s", result.Status)
	}
	if result.ErrorMessage == "" {
		t.Fatal("expected an error message")
	}

	// The stored conversion retains the engine's error text verbatim.
	c, _ := store.GetConversion(context.Background(), result.ConversionID)
	if c.Status != conversion.StatusFailed {
		t.Errorf("stored status: got %s", c.Status)
	}
	if c.ErrorMessage != result.ErrorMessage {
		t.Errorf("stored error %q differs from result error %q", c.ErrorMessage, result.ErrorMessage)
	}
	if !strings.Contains(c.ErrorMessage, "invalid HL7 data") {
		t.Errorf("error message: got %q", c.ErrorMessage)
	}
}

func TestConvertMalformedXMLKeepsDiagnostic(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	result, err := manager.Convert(context.Background(), engine.FormatXML, "<invalid>xml")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != conversion.StatusFailed {
		t.Fatalf("status: got %s", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "invalid XML data") {
		t.Errorf("error message: got %q", result.ErrorMessage)
	}
}

func TestCreateConversionUnsupportedType(t *testing.T) {
	manager := newTestManager(newMemStore())
	if _, err := manager.CreateConversion(context.Background(), "CSV", "a,b,c"); err == nil {
		t.Fatal("expected error for unregistered format")
	}
}

func TestGetConversionStatus(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	result, err := manager.Convert(context.Background(), engine.FormatHL7, sampleHL7)
	if err != nil {
		t.Fatal(err)
	}

	view, err := manager.GetConversionStatus(context.Background(), result.ConversionID)
	if err != nil {
		t.Fatal(err)
	}
	if view.Status != conversion.StatusCompleted {
		t.Errorf("status: got %s", view.Status)
	}
	if view.DrugRecordsCount != 2 {
		t.Errorf("record count: got %d", view.DrugRecordsCount)
	}
	if view.ErrorMessage != "" {
		t.Errorf("completed conversions carry no error message, got %q", view.ErrorMessage)
	}

	if _, err := manager.GetConversionStatus(context.Background(), "missing"); err != conversion.ErrNotFound {
		t.Errorf("unknown ID: got %v", err)
	}

	failed, err := manager.Convert(context.Background(), engine.FormatHL7, "garbage")
	if err != nil {
		t.Fatal(err)
	}
	view, err = manager.GetConversionStatus(context.Background(), failed.ConversionID)
	if err != nil {
		t.Fatal(err)
	}
	if view.ErrorMessage == "" {
		t.Error("failed conversions surface their error message")
	}
}

func TestProcessConversionTwice(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	id, err := manager.CreateConversion(context.Background(), engine.FormatXML, sampleXML)
	if err != nil {
		t.Fatal(err)
	}
	first, err := manager.ProcessConversion(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	second, err := manager.ProcessConversion(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != second.Status || first.DrugRecordsCount != second.DrugRecordsCount {
		t.Errorf("reprocessing diverged: %+v vs %+v", first, second)
	}
}
