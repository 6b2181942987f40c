// internal/domain/homework/verdict.go
package homework

import (
	"encoding/json"
	"fmt"
)

// Status is a review status code reported by the API.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusReviewing Status = "reviewing"
	StatusRejected  Status = "rejected"
)

// Verdicts maps every known status to the sentence shown to the student.
var Verdicts = map[Status]string{
	StatusApproved:  "The work has been reviewed: the reviewer liked everything. Hooray!",
	StatusReviewing: "The work has been taken for review by the reviewer.",
	StatusRejected:  "The work has been reviewed: the reviewer has comments.",
}

// Translate renders the status-change message for a record.
func Translate(rec Record) (string, error) {
	name, err := rec.stringField(keyName)
	if err != nil {
		return "", err
	}
	status, err := rec.stringField(keyStatus)
	if err != nil {
		return "", err
	}

	verdict, ok := Verdicts[Status(status)]
	if !ok {
		return "", &UnknownStatusError{Status: status}
	}
	return fmt.Sprintf(`Status changed for submission "%s". %s`, name, verdict), nil
}

func (r Record) stringField(key string) (string, error) {
	raw, ok := r[key]
	if !ok {
		return "", &FieldMissingError{Field: key}
	}
	var v string
	if isNull(raw) || json.Unmarshal(raw, &v) != nil {
		return "", &ShapeError{Reason: fmt.Sprintf("key %q is not a string", key)}
	}
	return v, nil
}
