package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IMINABO1/Vault/server/auth"
	"github.com/IMINABO1/Vault/server/auth/key"
	"github.com/IMINABO1/Vault/server/blob"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/IMINABO1/Vault/server/oracle"
	"github.com/IMINABO1/Vault/server/safety"
	"github.com/IMINABO1/Vault/server/store"
	"github.com/IMINABO1/Vault/server/work"
	"github.com/IMINABO1/Vault/shared"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image")

type fakeAnalyzer struct {
	mu       sync.Mutex
	analysis *oracle.Analysis
	err      error
	calls    int
}

func (fa *fakeAnalyzer) Analyze(ctx context.Context, req oracle.Request) (*oracle.Analysis, error) {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	fa.calls++
	if fa.err != nil {
		return nil, fa.err
	}

	analysis := *fa.analysis
	return &analysis, nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []work.JobParams
}

func (fd *fakeDispatcher) Perform(job work.JobParams) error {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.jobs = append(fd.jobs, job)
	return nil
}

type recordingBlobs struct {
	blob.DataURIStore
	keys []string
	data [][]byte
}

func (rb *recordingBlobs) Put(ctx context.Context, key, contentType string, data []byte) (blob.Object, error) {
	rb.keys = append(rb.keys, key)
	rb.data = append(rb.data, data)
	return blob.Object{Key: key, URL: "https://blobs.example/" + key}, nil
}

type testApp struct {
	*App
	store      *store.MemoryStore
	analyzer   *fakeAnalyzer
	dispatcher *fakeDispatcher
	handler    http.Handler
}

func testConfig() *shared.ServerConfig {
	config := &shared.ServerConfig{}
	config.Vault.CorsOrigin = "http://localhost:5173"
	config.Vault.MaxUploadBytes = 1 << 20
	config.Vault.DefaultIssuingCountry = "USA"
	config.Vault.BcryptCost = 4
	config.Vault.DemoUser = shared.DemoUserConfig{Enabled: true, ID: "demo-user-001", FullName: "Demo User"}
	config.Oracle.Timeout = 5 * time.Second
	return config
}

func driversLicense() *oracle.Analysis {
	number := "D1234567"
	expiry := "2030-01-31"

	return &oracle.Analysis{
		IsDocument:           true,
		DetectedType:         models.DriversLicense,
		CorrectedType:        models.DriversLicense,
		UserSelectionCorrect: false,
		HolderName:           "Jane Roe",
		DocumentNumber:       number,
		ExpiryDate:           &expiry,
		IssuingCountry:       "USA",
		KeyFields:            []models.KeyField{{Label: "License Number", Value: number}},
	}
}

func newTestApp(t *testing.T, config *shared.ServerConfig) *testApp {
	keyPair, err := key.GenerateKeyPair()
	require.Nil(t, err)

	st := store.NewMemoryStore()
	analyzer := &fakeAnalyzer{analysis: driversLicense()}
	dispatcher := &fakeDispatcher{}

	app := buildApp(config, st, analyzer, blob.DataURIStore{}, dispatcher, keyPair)
	return &testApp{App: app, store: st, analyzer: analyzer, dispatcher: dispatcher, handler: app.handler()}
}

func (ta *testApp) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)

	body := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}

	return rec, body
}

func jsonRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, method, url, typeHint, contentType string, data []byte) *http.Request {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	if typeHint != "" {
		require.Nil(t, writer.WriteField("documentType", typeHint))
	}

	if data != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="document"; filename="id.png"`)
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		require.Nil(t, err)
		_, err = part.Write(data)
		require.Nil(t, err)
	}

	require.Nil(t, writer.Close())

	req := httptest.NewRequest(method, url, buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	ta := newTestApp(t, testConfig())

	rec, body := ta.do(t, httptest.NewRequest("GET", "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestJWKS(t *testing.T) {
	ta := newTestApp(t, testConfig())

	rec, body := ta.do(t, httptest.NewRequest("GET", "/jwks", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	keys := body["keys"].([]interface{})
	require.Len(t, keys, 1)
	assert.Equal(t, "vault-key-id", keys[0].(map[string]interface{})["kid"])
}

func TestCORSPreflight(t *testing.T) {
	ta := newTestApp(t, testConfig())

	rec, _ := ta.do(t, httptest.NewRequest("OPTIONS", "/api/documents", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthentication(t *testing.T) {
	t.Run("rejects a bad token even when the demo user is enabled", func(t *testing.T) {
		ta := newTestApp(t, testConfig())
		req := httptest.NewRequest("GET", "/api/documents", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		rec, body := ta.do(t, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid token provided", body["error"])
	})

	t.Run("requires a token without a demo user", func(t *testing.T) {
		config := testConfig()
		config.Vault.DemoUser.Enabled = false
		ta := newTestApp(t, config)

		rec, body := ta.do(t, httptest.NewRequest("GET", "/api/documents", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "no token provided", body["error"])
	})

	t.Run("scopes records to the token subject", func(t *testing.T) {
		ta := newTestApp(t, testConfig())
		token, err := auth.EncodeJWT(auth.VaultTokenClaims{
			FullName:       "Ada Lovelace",
			StandardClaims: jwt.StandardClaims{Subject: "user-42", ExpiresAt: time.Now().Add(time.Hour).Unix()},
		}, ta.keyPair)
		require.Nil(t, err)

		req := uploadRequest(t, "POST", "/api/documents/upload", "drivers_license", "image/png", pngBytes)
		req.Header.Set("Authorization", "Bearer "+token)
		rec, body := ta.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, "user-42", body["document"].(map[string]interface{})["userId"])

		_, body = ta.do(t, httptest.NewRequest("GET", "/api/documents", nil))
		assert.Empty(t, body["documents"], "the demo user must not see user-42's documents")
	})
}

func TestUploadDocument(t *testing.T) {
	t.Run("stores the corrected type and explains the correction", func(t *testing.T) {
		ta := newTestApp(t, testConfig())

		rec, body := ta.do(t, uploadRequest(t, "POST", "/api/documents/upload", "passport", "image/png", pngBytes))
		require.Equal(t, http.StatusOK, rec.Code, body)

		assert.Equal(t, "Document verified and added to Vault", body["message"])
		assert.Equal(t, true, body["verified"])
		assert.Equal(t, false, body["userSelectionCorrect"])

		doc := body["document"].(map[string]interface{})
		assert.Equal(t, "drivers_license", doc["type"])
		assert.Equal(t, "verified", doc["status"])
		assert.Equal(t, "demo-user-001", doc["userId"])
		assert.True(t, strings.HasPrefix(doc["imageUrl"].(string), "data:image/png;base64,"))

		correction := body["typeCorrection"].(map[string]interface{})
		assert.Equal(t, "passport", correction["selected"])
		assert.Equal(t, "drivers_license", correction["actual"])
		assert.Contains(t, correction["message"], "passport")
		assert.Contains(t, correction["message"], "driver's license")

		db, err := ta.store.Load(context.Background())
		require.Nil(t, err)
		require.Len(t, db.Documents, 1)
		assert.Equal(t, models.DriversLicense, db.Documents[0].Type)
	})

	t.Run("reports a rejection with its reason", func(t *testing.T) {
		ta := newTestApp(t, testConfig())
		ta.analyzer.analysis = &oracle.Analysis{IsDocument: false, RejectionReason: "This is a photo of a cat."}

		rec, body := ta.do(t, uploadRequest(t, "POST", "/api/documents/upload", "passport", "image/png", pngBytes))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid Upload", body["error"])
		assert.Equal(t, "This is a photo of a cat.", body["details"])

		db, err := ta.store.Load(context.Background())
		require.Nil(t, err)
		assert.Empty(t, db.Documents)
	})

	t.Run("requires a file", func(t *testing.T) {
		ta := newTestApp(t, testConfig())

		rec, body := ta.do(t, uploadRequest(t, "POST", "/api/documents/upload", "passport", "", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No file uploaded.", body["error"])
		assert.Equal(t, 0, ta.analyzer.calls)
	})

	t.Run("rejects non multipart bodies", func(t *testing.T) {
		ta := newTestApp(t, testConfig())

		rec, _ := ta.do(t, jsonRequest("POST", "/api/documents/upload", `{}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects oversized uploads", func(t *testing.T) {
		config := testConfig()
		config.Vault.MaxUploadBytes = 64
		ta := newTestApp(t, config)

		rec, _ := ta.do(t, uploadRequest(t, "POST", "/api/documents/upload", "passport", "image/png", bytes.Repeat([]byte("x"), 1024)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, ta.analyzer.calls)
	})

	t.Run("hides oracle failures behind a generic message", func(t *testing.T) {
		ta := newTestApp(t, testConfig())
		ta.analyzer.err = errors.New("upstream said: quota exceeded for key AIza...")

		rec, body := ta.do(t, uploadRequest(t, "POST", "/api/documents/upload", "passport", "image/png", pngBytes))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, map[string]interface{}{"error": "Processing failed"}, body)
	})

	t.Run("hides storage failures behind a generic message", func(t *testing.T) {
		ta := newTestApp(t, testConfig())
		ta.store.FailWith(errors.New("disk full"))

		rec, body := ta.do(t, uploadRequest(t, "POST", "/api/documents/upload", "drivers_license", "image/png", pngBytes))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Processing failed", body["error"])
	})
}

func TestDocumentLifecycle(t *testing.T) {
	ta := newTestApp(t, testConfig())

	_, body := ta.do(t, uploadRequest(t, "POST", "/api/documents/upload", "drivers_license", "image/png", pngBytes))
	doc := body["document"].(map[string]interface{})
	id := doc["id"].(string)

	rec, body := ta.do(t, httptest.NewRequest("GET", "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	docs := body["documents"].([]interface{})
	require.Len(t, docs, 1)
	assert.NotContains(t, docs[0], "imageUrl", "listings leave the payload out")

	rec, body = ta.do(t, httptest.NewRequest("GET", "/api/documents/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["document"], "imageUrl")

	ta.analyzer.analysis.UserSelectionCorrect = true
	rec, body = ta.do(t, uploadRequest(t, "PUT", "/api/documents/"+id, "drivers_license", "image/png", pngBytes))
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, id, body["document"].(map[string]interface{})["id"])
	assert.Equal(t, doc["createdAt"], body["document"].(map[string]interface{})["createdAt"])
	assert.Equal(t, true, body["userSelectionCorrect"])
	assert.NotContains(t, body, "typeCorrection")

	rec, _ = ta.do(t, uploadRequest(t, "PUT", "/api/documents/missing", "drivers_license", "image/png", pngBytes))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = ta.do(t, httptest.NewRequest("DELETE", "/api/documents/"+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = ta.do(t, httptest.NewRequest("GET", "/api/documents/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Document not found.", body["error"])

	rec, _ = ta.do(t, httptest.NewRequest("DELETE", "/api/documents/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentResponsesHideStorageKey(t *testing.T) {
	keyPair, err := key.GenerateKeyPair()
	require.Nil(t, err)

	st := store.NewMemoryStore()
	blobs := &recordingBlobs{}
	app := buildApp(testConfig(), st, &fakeAnalyzer{analysis: driversLicense()}, blobs, &fakeDispatcher{}, keyPair)
	ta := &testApp{App: app, store: st, handler: app.handler()}

	rec, body := ta.do(t, uploadRequest(t, "POST", "/api/documents/upload", "drivers_license", "image/png", pngBytes))
	require.Equal(t, http.StatusOK, rec.Code, body)
	doc := body["document"].(map[string]interface{})
	assert.NotContains(t, doc, "imageKey")
	assert.Contains(t, doc, "imageUrl")

	rec, body = ta.do(t, httptest.NewRequest("GET", "/api/documents/"+doc["id"].(string), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, body["document"], "imageKey")

	db, err := st.Load(context.Background())
	require.Nil(t, err)
	require.Len(t, db.Documents, 1)
	require.Len(t, blobs.keys, 1)
	assert.Equal(t, blobs.keys[0], db.Documents[0].ImageKey)
}

func TestEmergencyContacts(t *testing.T) {
	ta := newTestApp(t, testConfig())

	rec, body := ta.do(t, jsonRequest("POST", "/api/emergency-contacts", `{"name":"  Ada ","phone":"+15551234567","email":""}`))
	require.Equal(t, http.StatusCreated, rec.Code, body)
	assert.Equal(t, "Emergency contact added successfully", body["message"])

	contact := body["contact"].(map[string]interface{})
	assert.Equal(t, "Ada", contact["name"])
	assert.Nil(t, contact["email"])

	rec, body = ta.do(t, jsonRequest("POST", "/api/emergency-contacts", `{"phone":"+15551234567"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Contact name is required.", body["error"])

	rec, _ = ta.do(t, jsonRequest("POST", "/api/emergency-contacts", `{"name":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, body = ta.do(t, httptest.NewRequest("GET", "/api/emergency-contacts", nil))
	assert.Len(t, body["contacts"], 1)

	rec, body = ta.do(t, httptest.NewRequest("DELETE", "/api/emergency-contacts/"+contact["id"].(string), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Contact removed successfully", body["message"])

	rec, body = ta.do(t, httptest.NewRequest("DELETE", "/api/emergency-contacts/"+contact["id"].(string), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Contact not found.", body["error"])
}

func TestLockdown(t *testing.T) {
	ta := newTestApp(t, testConfig())

	rec, body := ta.do(t, jsonRequest("POST", "/api/privacy/exit-lockdown", `{"inputPin":"1234"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No PIN has been set. Set a PIN first.", body["error"])

	rec, body = ta.do(t, jsonRequest("POST", "/api/privacy/set-pin", `{"pin":"12a4"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PIN must be 4 digits.", body["error"])

	rec, body = ta.do(t, jsonRequest("POST", "/api/privacy/set-pin", `{"pin":"1234"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Privacy Shield PIN set successfully.", body["message"])

	db, err := ta.store.Load(context.Background())
	require.Nil(t, err)
	assert.NotEqual(t, "1234", db.Pins["demo-user-001"])

	rec, body = ta.do(t, jsonRequest("POST", "/api/privacy/exit-lockdown", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PIN is required.", body["error"])

	rec, body = ta.do(t, jsonRequest("POST", "/api/privacy/exit-lockdown", `{"inputPin":"4321"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, "Incorrect PIN. Device remains in Lockdown.", body["error"])

	rec, body = ta.do(t, jsonRequest("POST", "/api/privacy/exit-lockdown", `{"inputPin":"1234"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "Lockdown lifted. Returning to Dashboard.", body["message"])
}

func TestSafetyBeacon(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"missing coordinates", `{}`, safety.ErrCoordinatesRequired.Message},
		{"string coordinates", `{"latitude":"43.6","longitude":"-79.3"}`, safety.ErrCoordinatesNotNumbers.Message},
		{"latitude out of range", `{"latitude":90.0001,"longitude":0}`, safety.ErrLatitudeOutOfRange.Message},
		{"longitude out of range", `{"latitude":0,"longitude":-180.5}`, safety.ErrLongitudeOutOfRange.Message},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ta := newTestApp(t, testConfig())

			rec, body := ta.do(t, jsonRequest("POST", "/api/safety/trigger", tc.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.expected, body["error"])

			db, err := ta.store.Load(context.Background())
			require.Nil(t, err)
			assert.Empty(t, db.Beacons)
		})
	}

	t.Run("records the beacon and queues notifications", func(t *testing.T) {
		ta := newTestApp(t, testConfig())
		ta.do(t, jsonRequest("POST", "/api/emergency-contacts", `{"name":"Ada","phone":"+15551234567","email":"ada@example.com"}`))

		rec, body := ta.do(t, jsonRequest("POST", "/api/safety/trigger", `{"latitude":90,"longitude":-180}`))

		require.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(1), body["contactsNotified"])
		assert.Len(t, ta.dispatcher.jobs, 2)

		db, err := ta.store.Load(context.Background())
		require.Nil(t, err)
		require.Len(t, db.Beacons, 1)
		assert.Equal(t, "demo-user-001", db.Beacons[0].UserID)
	})
}

func TestUnknownRoute(t *testing.T) {
	ta := newTestApp(t, testConfig())

	rec, body := ta.do(t, httptest.NewRequest("GET", "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found.", body["error"])
}

func TestBackupStore(t *testing.T) {
	ta := newTestApp(t, testConfig())
	blobs := &recordingBlobs{}
	ta.blobs = blobs

	ta.do(t, jsonRequest("POST", "/api/emergency-contacts", `{"name":"Ada","phone":"+15551234567"}`))
	require.Nil(t, ta.backupStore(nil))

	require.Len(t, blobs.keys, 1)
	assert.True(t, strings.HasPrefix(blobs.keys[0], "backups/vault-"))

	db := models.NewDatabase()
	require.Nil(t, json.Unmarshal(blobs.data[0], db))
	assert.Len(t, db.EmergencyContacts["demo-user-001"], 1)
}
