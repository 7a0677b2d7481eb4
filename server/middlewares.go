package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/IMINABO1/Vault/colors"
	"github.com/IMINABO1/Vault/server/auth"
	"github.com/IMINABO1/Vault/server/models"
)

type RequestContextKey string

const ownerContextKey = RequestContextKey("owner")

var (
	errNoToken      = errors.New("no token provided")
	errInvalidToken = errors.New("invalid token provided")
)

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{
			ResponseWriter: w,
			Status:         http.StatusOK,
		}

		defer func() {
			logg.Infof("%v %v %v %v",
				r.Method,
				r.URL.Path,
				colors.Status(responseWriter.Status),
				colors.Yellow(fmt.Sprintf("[%v]", time.Since(start))))
		}()

		next.ServeHTTP(responseWriter, r)
	})
}

// corsMiddleware lets the configured frontend origin call the API and
// answers preflight requests itself.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (app *App) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := app.authenticate(r.Header.Get("Authorization"))
		if err != nil {
			writeResponse(w, errorPayload{Error: err.Error()}, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ownerContextKey, *owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate resolves the caller from a bearer token. Without a token the
// caller is the demo user, if one is configured.
func (app *App) authenticate(authHeaderValue string) (*models.Owner, error) {
	if strings.TrimSpace(authHeaderValue) == "" {
		if app.demoOwner != nil {
			return app.demoOwner, nil
		}
		return nil, errNoToken
	}

	authHeaderList := strings.Split(authHeaderValue, "Bearer ")
	if len(authHeaderList) < 2 {
		return nil, errInvalidToken
	}

	claims, err := auth.DecodeJWT(authHeaderList[1], app.keyPair)
	if err != nil {
		return nil, errInvalidToken
	}

	return &models.Owner{ID: claims.Subject, FullName: claims.FullName, Email: claims.Email}, nil
}

func ownerFrom(r *http.Request) models.Owner {
	owner, _ := r.Context().Value(ownerContextKey).(models.Owner)
	return owner
}
