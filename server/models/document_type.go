package models

import "strings"

type DocumentType string

const (
	Passport            DocumentType = "passport"
	DriversLicense      DocumentType = "drivers_license"
	NationalID          DocumentType = "national_id"
	Visa                DocumentType = "visa"
	ImmigrationPapers   DocumentType = "immigration_papers"
	VehicleRegistration DocumentType = "vehicle_registration"
	BirthCertificate    DocumentType = "birth_certificate"
	OtherDocument       DocumentType = "other"
)

var DocumentTypes = []DocumentType{
	Passport,
	DriversLicense,
	NationalID,
	Visa,
	ImmigrationPapers,
	VehicleRegistration,
	BirthCertificate,
	OtherDocument,
}

// Canonical key-field labels, in display order. Types without an entry
// get whatever identifying fields the extractor finds most relevant.
var keyFieldLabels = map[DocumentType][]string{
	DriversLicense:      {"Full Name", "Date of Birth", "Address", "License Number", "Class", "Expiration", "State", "Sex"},
	Passport:            {"Full Name", "Nationality", "Date of Birth", "Passport Number", "Expiration", "Place of Birth", "Sex"},
	ImmigrationPapers:   {"SEVIS ID", "Full Name", "Country of Citizenship", "Date of Birth", "School Name", "Class of Admission", "Program Start Date", "Program End Date"},
	VehicleRegistration: {"Owner Name", "VIN", "Make/Model/Year", "License Plate", "Registration Expiration", "State"},
	Visa:                {"Full Name", "Visa Type", "Visa Number", "Nationality", "Expiration", "Entries Allowed"},
}

var documentTypeAliases = map[string]DocumentType{
	"passport":                Passport,
	"drivers_license":         DriversLicense,
	"driver_license":          DriversLicense,
	"drivers_licence":         DriversLicense,
	"license":                 DriversLicense,
	"national_id":             NationalID,
	"national_id_card":        NationalID,
	"id_card":                 NationalID,
	"visa":                    Visa,
	"immigration_papers":      ImmigrationPapers,
	"immigration":             ImmigrationPapers,
	"i_20":                    ImmigrationPapers,
	"i20":                     ImmigrationPapers,
	"vehicle_registration":    VehicleRegistration,
	"birth_certificate":       BirthCertificate,
	"other":                   OtherDocument,
	"other_official_document": OtherDocument,
	"other_document":          OtherDocument,
}

// ParseDocumentType maps free-form labels ("Driver's License", "i-20",
// "other_official_document") onto the closed enumeration.
func ParseDocumentType(value string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "'", "")
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	docType, ok := documentTypeAliases[normalized]
	return docType, ok
}

// KeyFieldLabels returns the canonical labels for t, or nil when t has none.
func (t DocumentType) KeyFieldLabels() []string {
	return keyFieldLabels[t]
}

func (t DocumentType) Valid() bool {
	for _, docType := range DocumentTypes {
		if t == docType {
			return true
		}
	}
	return false
}

// DisplayName is the human form used in user-facing messages.
func (t DocumentType) DisplayName() string {
	switch t {
	case DriversLicense:
		return "driver's license"
	case NationalID:
		return "national ID"
	default:
		return strings.ReplaceAll(string(t), "_", " ")
	}
}
