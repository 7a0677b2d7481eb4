package oracle

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/IMINABO1/Vault/server/models"
	"github.com/pkg/errors"
)

const notADocument = "not_a_document"

// rawAnalysis mirrors the structure the model is asked to produce. Every
// field is optional on the wire.
type rawAnalysis struct {
	IsDocument           *bool             `json:"isDocument"`
	DetectedType         *string           `json:"detectedType"`
	CorrectedType        *string           `json:"correctedType"`
	UserSelectionCorrect *bool             `json:"userSelectionCorrect"`
	HolderName           *string           `json:"holderName"`
	DocumentNumber       *string           `json:"documentNumber"`
	ExpiryDate           *string           `json:"expiryDate"`
	IssuingCountry       *string           `json:"issuingCountry"`
	RejectionReason      *string           `json:"rejectionReason"`
	KeyFields            []models.KeyField `json:"keyFields"`
}

// DecodeAnalysis parses the model's reply. The text is first read as
// strict JSON; failing that, one recovery attempt strips markdown fences
// or surrounding prose. Anything else is ErrExtractionFailed.
func DecodeAnalysis(text string) (*Analysis, error) {
	raw, err := decodeStrict(text)
	if err != nil {
		logg.Debugf("strict decode failed, unwrapping reply: %v", err)
		raw, err = decodeStrict(unwrap(text))
	}

	if err != nil {
		logg.Warnf("unusable extraction reply: %v", err)
		return nil, ErrExtractionFailed.WithDetails(err.Error())
	}

	return raw.normalize(), nil
}

func decodeStrict(text string) (*rawAnalysis, error) {
	raw := &rawAnalysis{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), raw); err != nil {
		return nil, errors.Wrap(err, "decode reply")
	}

	if raw.IsDocument == nil {
		return nil, errors.New("reply has no isDocument verdict")
	}

	return raw, nil
}

// unwrap removes a markdown fence and its language tag, then keeps the
// outermost {...} span.
func unwrap(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimLeftFunc(strings.TrimPrefix(text, "```"), unicode.IsLetter)
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}

	return text
}

func (raw *rawAnalysis) normalize() *Analysis {
	analysis := &Analysis{
		IsDocument:           *raw.IsDocument,
		UserSelectionCorrect: true,
		HolderName:           trimmed(raw.HolderName),
		DocumentNumber:       trimmed(raw.DocumentNumber),
		ExpiryDate:           isoDate(raw.ExpiryDate),
		IssuingCountry:       trimmed(raw.IssuingCountry),
		RejectionReason:      trimmed(raw.RejectionReason),
		KeyFields:            raw.KeyFields,
	}

	if raw.UserSelectionCorrect != nil {
		analysis.UserSelectionCorrect = *raw.UserSelectionCorrect
	}

	detected := trimmed(raw.DetectedType)
	if detected == notADocument {
		analysis.IsDocument = false
	}

	analysis.DetectedType = documentType(detected)
	analysis.CorrectedType = documentType(trimmed(raw.CorrectedType))
	if raw.CorrectedType == nil || trimmed(raw.CorrectedType) == "" || trimmed(raw.CorrectedType) == notADocument {
		analysis.CorrectedType = analysis.DetectedType
	}

	if analysis.KeyFields == nil {
		analysis.KeyFields = []models.KeyField{}
	}

	return analysis
}

func documentType(value string) models.DocumentType {
	if docType, ok := models.ParseDocumentType(value); ok {
		return docType
	}
	return models.OtherDocument
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}

	v := strings.TrimSpace(*value)
	if strings.EqualFold(v, "null") {
		return ""
	}
	return v
}

func isoDate(value *string) *string {
	v := trimmed(value)
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return nil
	}
	return &v
}
