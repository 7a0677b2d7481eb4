package oracle

import (
	"context"
	"mime"
	"strings"

	"github.com/IMINABO1/Vault/server/apperrors"
	"github.com/IMINABO1/Vault/server/logger"
	"github.com/IMINABO1/Vault/server/models"
)

var logg = logger.NewLogger("oracle")

var (
	ErrEmptyImage          = apperrors.New(apperrors.BadRequest, "No file uploaded.")
	ErrUnsupportedMimeType = apperrors.New(apperrors.BadRequest, "Unsupported file type. Upload a JPEG, PNG, WEBP or HEIC image.")
	ErrExtractionFailed    = apperrors.New(apperrors.ExtractionFailed, apperrors.GenericFailureMessage)
)

var supportedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// Request is one image to classify. TypeHint is the user's own label for it.
type Request struct {
	Image    []byte
	MimeType string
	TypeHint string
}

// Analysis is the normalised verdict on one image. Types are always
// members of the closed enumeration, absent text fields are empty and
// ExpiryDate is nil unless it is a valid YYYY-MM-DD date.
type Analysis struct {
	IsDocument           bool
	DetectedType         models.DocumentType
	CorrectedType        models.DocumentType
	UserSelectionCorrect bool
	HolderName           string
	DocumentNumber       string
	ExpiryDate           *string
	IssuingCountry       string
	RejectionReason      string
	KeyFields            []models.KeyField
}

// Analyzer classifies a document image and extracts its fields.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Analysis, error)
}

// NormalizeMimeType lower-cases t and strips parameters. "image/jpg" is
// accepted as an alias of "image/jpeg".
func NormalizeMimeType(t string) string {
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(t))
	}

	if mediaType == "image/jpg" || mediaType == "image/pjpeg" {
		return "image/jpeg"
	}

	return mediaType
}

// ValidateRequest checks the input constraints shared by every Analyzer.
func ValidateRequest(req Request) error {
	if len(req.Image) == 0 {
		return ErrEmptyImage
	}

	if !supportedMimeTypes[NormalizeMimeType(req.MimeType)] {
		return ErrUnsupportedMimeType
	}

	return nil
}
