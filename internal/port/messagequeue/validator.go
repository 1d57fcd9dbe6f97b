package messagequeue

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var target any
	switch subject {
	case SubjectRoadmapGenerated:
		target = &RoadmapGeneratedPayload{}
	case SubjectRoadmapProgress:
		target = &RoadmapProgressPayload{}
	case SubjectRoadmapDeleted:
		target = &RoadmapDeletedPayload{}
	case SubjectReminderSent:
		target = &ReminderSentPayload{}
	case SubjectInsightUpdated:
		target = &InsightUpdatedPayload{}
	default:
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	return nil
}
