package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/IMINABO1/Vault/server/apperrors"
	"github.com/IMINABO1/Vault/server/auth/key"
	"github.com/IMINABO1/Vault/server/contacts"
	"github.com/IMINABO1/Vault/server/intake"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/IMINABO1/Vault/server/safety"
	"github.com/gorilla/mux"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to disk.
const multipartMemory = 8 << 20

const incorrectPinMessage = "Incorrect PIN. Device remains in Lockdown."

var (
	errUploadTooLarge  = apperrors.New(apperrors.BadRequest, "File is too large.")
	errMalformedUpload = apperrors.New(apperrors.BadRequest, "Upload must be a multipart form.")
	errContactNotFound = apperrors.New(apperrors.NotFound, "Contact not found.")
)

type documentPayload struct {
	Message              string                 `json:"message"`
	Verified             bool                   `json:"verified"`
	Document             models.Document        `json:"document"`
	UserSelectionCorrect bool                   `json:"userSelectionCorrect"`
	TypeCorrection       *intake.TypeCorrection `json:"typeCorrection,omitempty"`
}

type lockdownPayload struct {
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (app *App) handler() http.Handler {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)
	router.NotFoundHandler = http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		writeResponse(rw, errorPayload{Error: "Not found."}, http.StatusNotFound)
	})

	router.HandleFunc("/api/health", health).Methods("GET")
	router.HandleFunc("/jwks", app.jwks).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(app.authMiddleware)

	api.HandleFunc("/documents/upload", app.uploadDocument).Methods("POST")
	api.HandleFunc("/documents", app.listDocuments).Methods("GET")
	api.HandleFunc("/documents/{id}", app.findDocument).Methods("GET")
	api.HandleFunc("/documents/{id}", app.replaceDocument).Methods("PUT")
	api.HandleFunc("/documents/{id}", app.deleteDocument).Methods("DELETE")

	api.HandleFunc("/emergency-contacts", app.listContacts).Methods("GET")
	api.HandleFunc("/emergency-contacts", app.addContact).Methods("POST")
	api.HandleFunc("/emergency-contacts/{id}", app.removeContact).Methods("DELETE")

	api.HandleFunc("/privacy/set-pin", app.setPin).Methods("POST")
	api.HandleFunc("/privacy/exit-lockdown", app.exitLockdown).Methods("POST")

	api.HandleFunc("/safety/trigger", app.triggerBeacon).Methods("POST")

	return corsMiddleware(app.config.Vault.CorsOrigin)(router)
}

func health(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, map[string]string{
		"status":    "ok",
		"timestamp": models.Now().Format(time.RFC3339),
	}, http.StatusOK)
}

func (app *App) jwks(rw http.ResponseWriter, r *http.Request) {
	jwk, err := app.keyPair.JWK()
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, key.ExportJWKAsJWKS(jwk), http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Documents
// --------------------------------------------------------------------------------//

func (app *App) uploadDocument(rw http.ResponseWriter, r *http.Request) {
	upload, err := app.readUpload(rw, r)
	if err != nil {
		writeError(rw, err)
		return
	}

	result, err := app.pipeline.Upload(r.Context(), ownerFrom(r), *upload)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, newDocumentPayload("Document verified and added to Vault", result), http.StatusOK)
}

func (app *App) replaceDocument(rw http.ResponseWriter, r *http.Request) {
	upload, err := app.readUpload(rw, r)
	if err != nil {
		writeError(rw, err)
		return
	}

	result, err := app.pipeline.Replace(r.Context(), ownerFrom(r), mux.Vars(r)["id"], *upload)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, newDocumentPayload("Document verified and updated", result), http.StatusOK)
}

func (app *App) listDocuments(rw http.ResponseWriter, r *http.Request) {
	docs, err := app.pipeline.List(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, map[string]interface{}{"documents": docs}, http.StatusOK)
}

func (app *App) findDocument(rw http.ResponseWriter, r *http.Request) {
	doc, err := app.pipeline.Get(r.Context(), ownerFrom(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, map[string]interface{}{"document": doc.Public()}, http.StatusOK)
}

func (app *App) deleteDocument(rw http.ResponseWriter, r *http.Request) {
	err := app.pipeline.Delete(r.Context(), ownerFrom(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, messagePayload{Message: "Document deleted successfully"}, http.StatusOK)
}

// readUpload pulls the image and the user's type label out of a multipart
// form. A missing file is left for the pipeline to report.
func (app *App) readUpload(rw http.ResponseWriter, r *http.Request) (*intake.Upload, error) {
	r.Body = http.MaxBytesReader(rw, r.Body, app.config.Vault.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errUploadTooLarge
		}
		return nil, apperrors.Wrap(apperrors.BadRequest, err, errMalformedUpload.Message)
	}
	defer r.MultipartForm.RemoveAll()

	upload := &intake.Upload{TypeHint: r.FormValue("documentType")}

	file, header, err := r.FormFile("document")
	if errors.Is(err, http.ErrMissingFile) {
		return upload, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.BadRequest, err, errMalformedUpload.Message)
	}
	defer file.Close()

	upload.Data, err = io.ReadAll(file)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.BadRequest, err, errMalformedUpload.Message)
	}

	upload.MimeType = header.Header.Get("Content-Type")
	if upload.MimeType == "" || upload.MimeType == "application/octet-stream" {
		upload.MimeType = http.DetectContentType(upload.Data)
	}

	return upload, nil
}

func newDocumentPayload(message string, result *intake.Result) documentPayload {
	return documentPayload{
		Message:              message,
		Verified:             true,
		Document:             result.Document.Public(),
		UserSelectionCorrect: result.UserSelectionCorrect,
		TypeCorrection:       result.TypeCorrection,
	}
}

// ---------------------------------------------------------------------------------//
// Emergency contacts
// --------------------------------------------------------------------------------//

func (app *App) listContacts(rw http.ResponseWriter, r *http.Request) {
	list, err := app.contacts.List(r.Context(), ownerFrom(r).ID)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, map[string]interface{}{"contacts": list}, http.StatusOK)
}

func (app *App) addContact(rw http.ResponseWriter, r *http.Request) {
	input := contacts.NewContact{}
	if err := decodeJSON(r, &input); err != nil {
		writeError(rw, err)
		return
	}

	contact, err := app.contacts.Add(r.Context(), ownerFrom(r).ID, input)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, map[string]interface{}{
		"message": "Emergency contact added successfully",
		"contact": contact,
	}, http.StatusCreated)
}

func (app *App) removeContact(rw http.ResponseWriter, r *http.Request) {
	removed, err := app.contacts.Remove(r.Context(), ownerFrom(r).ID, mux.Vars(r)["id"])
	if err != nil {
		writeError(rw, err)
		return
	}

	if !removed {
		writeError(rw, errContactNotFound)
		return
	}

	writeResponse(rw, messagePayload{Message: "Contact removed successfully"}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Lockdown
// --------------------------------------------------------------------------------//

func (app *App) setPin(rw http.ResponseWriter, r *http.Request) {
	data := struct {
		Pin string `json:"pin"`
	}{}
	if err := decodeJSON(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	if err := app.gate.SetPin(r.Context(), ownerFrom(r).ID, data.Pin); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, messagePayload{Message: "Privacy Shield PIN set successfully."}, http.StatusOK)
}

func (app *App) exitLockdown(rw http.ResponseWriter, r *http.Request) {
	data := struct {
		InputPin string `json:"inputPin"`
	}{}
	if err := decodeJSON(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	ok, err := app.gate.Verify(r.Context(), ownerFrom(r).ID, data.InputPin)
	if err != nil {
		writeError(rw, err)
		return
	}

	if !ok {
		writeResponse(rw, lockdownPayload{Error: incorrectPinMessage}, http.StatusUnauthorized)
		return
	}

	writeResponse(rw, lockdownPayload{
		Authenticated: true,
		Message:       "Lockdown lifted. Returning to Dashboard.",
	}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Safety beacon
// --------------------------------------------------------------------------------//

func (app *App) triggerBeacon(rw http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{}
	if err := decodeJSON(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	coords, err := safety.ParseCoordinates(data["latitude"], data["longitude"])
	if err != nil {
		writeError(rw, err)
		return
	}

	result, err := app.beacons.Trigger(r.Context(), ownerFrom(r), coords)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, map[string]interface{}{
		"success":          true,
		"contactsNotified": result.ContactsSnapshotted,
	}, http.StatusOK)
}
