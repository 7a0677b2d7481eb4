package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IMINABO1/Vault/server/apperrors"
	"github.com/IMINABO1/Vault/server/blob"
	"github.com/IMINABO1/Vault/server/logger"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/IMINABO1/Vault/server/oracle"
	"github.com/IMINABO1/Vault/server/store"
)

var logg = logger.NewLogger("intake")

const (
	defaultRejectionReason = "This image does not appear to be an official document. Please upload a clear photo of a valid document."
	defaultOracleTimeout   = 30 * time.Second
)

var (
	ErrNoFile           = apperrors.New(apperrors.BadRequest, "No file uploaded.")
	ErrNoTypeHint       = apperrors.New(apperrors.BadRequest, "Document type is required.")
	ErrRejected         = apperrors.New(apperrors.Rejected, "Invalid Upload")
	ErrDocumentNotFound = apperrors.New(apperrors.NotFound, "Document not found.")
)

// Upload is one submitted image plus the user's own label for it.
type Upload struct {
	Data     []byte
	MimeType string
	TypeHint string
}

type TypeCorrection struct {
	Selected string              `json:"selected"`
	Actual   models.DocumentType `json:"actual"`
	Message  string              `json:"message"`
}

type Result struct {
	Document             models.Document
	UserSelectionCorrect bool
	TypeCorrection       *TypeCorrection
}

type Options struct {
	DefaultIssuingCountry string
	OracleTimeout         time.Duration
}

// Pipeline turns uploads into verified document records: validate, ask
// the oracle, reject or build a record, then persist it.
type Pipeline struct {
	store          store.Store
	analyzer       oracle.Analyzer
	blobs          blob.Store
	defaultCountry string
	oracleTimeout  time.Duration
}

func NewPipeline(st store.Store, analyzer oracle.Analyzer, blobs blob.Store, options Options) *Pipeline {
	if options.OracleTimeout <= 0 {
		options.OracleTimeout = defaultOracleTimeout
	}

	return &Pipeline{
		store:          st,
		analyzer:       analyzer,
		blobs:          blobs,
		defaultCountry: options.DefaultIssuingCountry,
		oracleTimeout:  options.OracleTimeout,
	}
}

// Upload verifies an image and appends the resulting record to the
// owner's documents.
func (p *Pipeline) Upload(ctx context.Context, owner models.Owner, upload Upload) (*Result, error) {
	analysis, err := p.analyze(ctx, upload)
	if err != nil {
		return nil, err
	}

	doc := p.newDocument(owner, analysis)
	if err := p.attachImage(ctx, &doc, upload); err != nil {
		return nil, err
	}

	err = p.store.Update(ctx, func(db *models.Database) error {
		db.Documents = append(db.Documents, doc)
		return nil
	})
	if err != nil {
		p.discardImage(doc.ImageKey)
		return nil, processingFailure(err)
	}

	logg.Infof("Document %v (%v) added for %v", doc.ID, doc.Type, owner.ID)
	return newResult(doc, upload.TypeHint, analysis), nil
}

// Replace runs the same verification as Upload and overwrites an existing
// record in place, keeping its id and creation time.
func (p *Pipeline) Replace(ctx context.Context, owner models.Owner, id string, upload Upload) (*Result, error) {
	if err := validateUpload(upload); err != nil {
		return nil, err
	}

	if _, err := p.Get(ctx, owner, id); err != nil {
		return nil, err
	}

	analysis, err := p.analyze(ctx, upload)
	if err != nil {
		return nil, err
	}

	doc := p.newDocument(owner, analysis)
	doc.ID = id
	if err := p.attachImage(ctx, &doc, upload); err != nil {
		return nil, err
	}

	var previous models.Document
	err = p.store.Update(ctx, func(db *models.Database) error {
		index := db.DocumentIndex(owner.ID, id)
		if index < 0 {
			return ErrDocumentNotFound
		}

		previous = db.Documents[index]
		doc.CreatedAt = previous.CreatedAt
		db.Documents[index] = doc
		return nil
	})
	if err != nil {
		p.discardImage(doc.ImageKey)
		if apperrors.Is(err, apperrors.NotFound) {
			return nil, err
		}
		return nil, processingFailure(err)
	}

	if previous.ImageKey != doc.ImageKey {
		p.discardImage(previous.ImageKey)
	}

	logg.Infof("Document %v replaced for %v", doc.ID, owner.ID)
	return newResult(doc, upload.TypeHint, analysis), nil
}

// List returns the owner's documents without their payloads.
func (p *Pipeline) List(ctx context.Context, owner models.Owner) ([]models.Document, error) {
	db, err := p.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	docs := db.DocumentsFor(owner.ID)
	for i := range docs {
		docs[i] = docs[i].Summary()
	}

	return docs, nil
}

func (p *Pipeline) Get(ctx context.Context, owner models.Owner, id string) (*models.Document, error) {
	db, err := p.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	index := db.DocumentIndex(owner.ID, id)
	if index < 0 {
		return nil, ErrDocumentNotFound
	}

	doc := db.Documents[index]
	return &doc, nil
}

func (p *Pipeline) Delete(ctx context.Context, owner models.Owner, id string) error {
	var removed models.Document

	err := p.store.Update(ctx, func(db *models.Database) error {
		index := db.DocumentIndex(owner.ID, id)
		if index < 0 {
			return ErrDocumentNotFound
		}

		removed = db.RemoveDocument(index)
		return nil
	})
	if err != nil {
		return err
	}

	p.discardImage(removed.ImageKey)
	logg.Infof("Document %v deleted for %v", id, owner.ID)
	return nil
}

func validateUpload(upload Upload) error {
	if len(upload.Data) == 0 {
		return ErrNoFile
	}

	if strings.TrimSpace(upload.TypeHint) == "" {
		return ErrNoTypeHint
	}

	return oracle.ValidateRequest(oracle.Request{Image: upload.Data, MimeType: upload.MimeType})
}

// analyze validates the upload, asks the oracle and turns a negative
// verdict into a rejection.
func (p *Pipeline) analyze(ctx context.Context, upload Upload) (*oracle.Analysis, error) {
	if err := validateUpload(upload); err != nil {
		return nil, err
	}

	oracleCtx, cancel := context.WithTimeout(ctx, p.oracleTimeout)
	defer cancel()

	analysis, err := p.analyzer.Analyze(oracleCtx, oracle.Request{
		Image:    upload.Data,
		MimeType: oracle.NormalizeMimeType(upload.MimeType),
		TypeHint: strings.TrimSpace(upload.TypeHint),
	})
	if err != nil {
		if apperrors.Is(err, apperrors.BadRequest) {
			return nil, err
		}
		return nil, processingFailure(err)
	}

	if !analysis.IsDocument {
		reason := analysis.RejectionReason
		if reason == "" {
			reason = defaultRejectionReason
		}
		logg.Infof("Upload rejected: %v", reason)
		return nil, ErrRejected.WithDetails(reason)
	}

	// the caller may have gone away while the oracle was working
	if err := ctx.Err(); err != nil {
		return nil, processingFailure(err)
	}

	return analysis, nil
}

func (p *Pipeline) newDocument(owner models.Owner, analysis *oracle.Analysis) models.Document {
	now := models.Now()

	docType := analysis.CorrectedType
	if !docType.Valid() {
		docType = models.OtherDocument
	}

	holder := analysis.HolderName
	if holder == "" {
		holder = owner.FullName
	}

	country := analysis.IssuingCountry
	if country == "" {
		country = p.defaultCountry
	}

	var docNumber *string
	if analysis.DocumentNumber != "" {
		number := analysis.DocumentNumber
		docNumber = &number
	}

	return models.Document{
		ID:             models.NewID(),
		UserID:         owner.ID,
		Type:           docType,
		DocNumber:      docNumber,
		Holder:         holder,
		ExpiryDate:     analysis.ExpiryDate,
		Status:         models.StatusVerified,
		IssuingCountry: country,
		KeyFields:      models.ShapeKeyFields(docType, analysis.KeyFields),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (p *Pipeline) attachImage(ctx context.Context, doc *models.Document, upload Upload) error {
	mimeType := oracle.NormalizeMimeType(upload.MimeType)

	obj, err := p.blobs.Put(ctx, blob.DocumentKey(doc.UserID, doc.ID, mimeType), mimeType, upload.Data)
	if err != nil {
		return processingFailure(err)
	}

	doc.ImageURL = obj.URL
	doc.ImageKey = obj.Key
	return nil
}

// discardImage removes a stored payload. Failures only leave an orphan
// object behind, so they are logged and ignored.
func (p *Pipeline) discardImage(key string) {
	if key == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.blobs.Delete(ctx, key); err != nil {
		logg.Warnf("unable to delete blob %v: %v", key, err)
	}
}

func newResult(doc models.Document, typeHint string, analysis *oracle.Analysis) *Result {
	correct := analysis.UserSelectionCorrect
	if hinted, ok := models.ParseDocumentType(typeHint); ok && hinted != doc.Type {
		correct = false
	}

	result := &Result{Document: doc, UserSelectionCorrect: correct}
	if !correct {
		selected := strings.TrimSpace(typeHint)
		result.TypeCorrection = &TypeCorrection{
			Selected: selected,
			Actual:   doc.Type,
			Message: fmt.Sprintf("You selected %q but this appears to be a %s. We've corrected this for you.",
				selected, doc.Type.DisplayName()),
		}
	}

	return result
}

// processingFailure keeps the kind of a classified error but replaces any
// client-facing text with the generic failure message.
func processingFailure(err error) error {
	logg.Errorf("document processing failed: %v", err)

	kind := apperrors.KindOf(err)
	switch kind {
	case apperrors.ExtractionFailed, apperrors.StorageUnavailable:
	default:
		kind = apperrors.Internal
	}

	return apperrors.Wrap(kind, err, apperrors.GenericFailureMessage)
}
