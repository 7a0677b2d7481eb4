package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/IMINABO1/Vault/server/apperrors"
)

type errorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type messagePayload struct {
	Message string `json:"message"`
}

const invalidJSONMessage = "Request body must be valid JSON."

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payload interface{}, statusCode int) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)

	if err := json.NewEncoder(rw).Encode(payload); err != nil {
		logg.Errorf("writeResponse: %v", err)
	}
}

// writeError maps err onto a status code. Server side failures are logged
// in full while the client only gets the generic message.
func writeError(rw http.ResponseWriter, err error) {
	appErr := apperrors.From(err)
	statusCode := apperrors.HTTPStatus(appErr.Kind)

	if statusCode >= http.StatusInternalServerError {
		logg.Error(err)
		writeResponse(rw, errorPayload{Error: apperrors.GenericFailureMessage}, statusCode)
		return
	}

	logg.Info(err)
	writeResponse(rw, errorPayload{Error: appErr.Message, Details: appErr.Details}, statusCode)
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return nil
	}

	if err != nil {
		return apperrors.Wrap(apperrors.BadRequest, err, invalidJSONMessage)
	}

	return nil
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Vault server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(app *App, server *http.Server) {
	// Stop accepting requests before the pool stops
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Errorf("Vault server shutdown failed:%+s", err)
	}

	// Drain queued notifications & stop periodic jobs
	app.workers.Stop()

	if err := app.store.Close(); err != nil {
		logg.Error(err)
	}
	closeBlobStore(app.blobs)

	logg.Infof("Vault server stopped properly")
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
