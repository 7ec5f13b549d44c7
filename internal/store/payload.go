package store

import (
	"encoding/json"
	"time"
)

// Payload field names. These are the persisted schema; renaming any of them
// orphans existing collections.
const (
	fieldID          = "id"
	fieldFilename    = "document_filename"
	fieldPath        = "document_path"
	fieldPageNumber  = "page_number"
	fieldWidth       = "width"
	fieldHeight      = "height"
	fieldSizeBytes   = "size_bytes"
	fieldCaption     = "caption"
	fieldKeywords    = "keywords"
	fieldRawMetadata = "raw_metadata"
	fieldCreatedAt   = "created_at"
)

func payloadFromRecord(r *PageRecord) map[string]interface{} {
	payload := map[string]interface{}{
		fieldID:         r.ID,
		fieldFilename:   r.DocumentFilename,
		fieldPath:       r.DocumentPath,
		fieldPageNumber: int64(r.PageNumber),
		fieldWidth:      int64(r.Width),
		fieldHeight:     int64(r.Height),
		fieldSizeBytes:  r.SizeBytes,
		fieldCaption:    r.Caption,
		fieldCreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if len(r.Keywords) > 0 {
		payload[fieldKeywords] = r.Keywords
	}
	if len(r.RawMetadata) > 0 {
		payload[fieldRawMetadata] = string(r.RawMetadata)
	}
	return payload
}

func recordFromPayload(payload map[string]interface{}) PageRecord {
	record := PageRecord{
		ID:               stringField(payload, fieldID),
		DocumentFilename: stringField(payload, fieldFilename),
		DocumentPath:     stringField(payload, fieldPath),
		PageNumber:       int(intField(payload, fieldPageNumber)),
		Width:            int(intField(payload, fieldWidth)),
		Height:           int(intField(payload, fieldHeight)),
		SizeBytes:        intField(payload, fieldSizeBytes),
		Caption:          stringField(payload, fieldCaption),
		Keywords:         stringListField(payload, fieldKeywords),
	}

	if raw := stringField(payload, fieldRawMetadata); raw != "" {
		record.RawMetadata = json.RawMessage(raw)
	}
	if created, ok := createdAtFromPayload(payload); ok {
		record.CreatedAt = created
	}

	return record
}

func createdAtFromPayload(payload map[string]interface{}) (time.Time, bool) {
	raw := stringField(payload, fieldCreatedAt)
	if raw == "" {
		return time.Time{}, false
	}
	created, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return created, true
}

func stringField(payload map[string]interface{}, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

func intField(payload map[string]interface{}, key string) int64 {
	switch v := payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func stringListField(payload map[string]interface{}, key string) []string {
	items, ok := payload[key].([]interface{})
	if !ok {
		// The in-memory fake used in tests stores []string directly.
		if direct, ok := payload[key].([]string); ok {
			return direct
		}
		return nil
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}
