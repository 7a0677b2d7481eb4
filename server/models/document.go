package models

import (
	"strings"
	"time"
)

const StatusVerified = "verified"

type KeyField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Document struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	Type           DocumentType `json:"type"`
	DocNumber      *string      `json:"docNumber"`
	Holder         string       `json:"holder"`
	ExpiryDate     *string      `json:"expiryDate"`
	Status         string       `json:"status"`
	IssuingCountry string       `json:"issuingCountry"`
	ImageURL       string       `json:"imageUrl,omitempty"`
	ImageKey       string       `json:"imageKey,omitempty"`
	KeyFields      []KeyField   `json:"keyFields"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Public is the form of a document sent to its owner. The storage key of
// the payload stays internal.
func (d Document) Public() Document {
	d.ImageKey = ""
	d.KeyFields = append([]KeyField{}, d.KeyFields...)
	return d
}

// Summary is the listing form of a document: everything but the payload.
func (d Document) Summary() Document {
	d = d.Public()
	d.ImageURL = ""
	return d
}

// ShapeKeyFields trims and de-duplicates fields (first label wins,
// case-insensitively), drops empty ones, and orders the canonical labels
// for docType first. The result is never nil.
func ShapeKeyFields(docType DocumentType, fields []KeyField) []KeyField {
	seen := make(map[string]bool)
	cleaned := make([]KeyField, 0, len(fields))

	for _, field := range fields {
		label := strings.TrimSpace(field.Label)
		value := strings.TrimSpace(field.Value)
		if label == "" || value == "" || seen[strings.ToLower(label)] {
			continue
		}

		seen[strings.ToLower(label)] = true
		cleaned = append(cleaned, KeyField{Label: label, Value: value})
	}

	canonical := docType.KeyFieldLabels()
	if len(canonical) == 0 {
		return cleaned
	}

	shaped := make([]KeyField, 0, len(cleaned))
	used := make([]bool, len(cleaned))
	for _, label := range canonical {
		for i, field := range cleaned {
			if !used[i] && strings.EqualFold(field.Label, label) {
				shaped = append(shaped, KeyField{Label: label, Value: field.Value})
				used[i] = true
				break
			}
		}
	}

	for i, field := range cleaned {
		if !used[i] {
			shaped = append(shaped, field)
		}
	}

	return shaped
}
