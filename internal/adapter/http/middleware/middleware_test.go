package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeCredentialRepo is a hand-rolled in-memory stand-in for
// ports.RestaurantCredentialRepository.
type fakeCredentialRepo struct {
	byAccessKey map[string]*domain.RestaurantCredential
}

func (f *fakeCredentialRepo) GetByAccessKey(ctx context.Context, accessKey string) (*domain.RestaurantCredential, error) {
	return f.byAccessKey[accessKey], nil
}

type fakeEncryption struct {
	decrypted map[string]string
}

func (f *fakeEncryption) Encrypt(plaintext string) (string, error) { return plaintext, nil }
func (f *fakeEncryption) Decrypt(ciphertext string) (string, error) {
	return f.decrypted[ciphertext], nil
}

type fakeSignature struct {
	canonical string
	verifyOK  bool
}

func (f *fakeSignature) Sign(secretKey, payload string) string { return "" }
func (f *fakeSignature) Verify(secretKey, payload, signature string) bool {
	return f.verifyOK && payload == f.canonical
}
func (f *fakeSignature) BuildCanonicalString(method, path string, timestamp int64, nonce, body string) string {
	return f.canonical
}

type fakeNonceStore struct {
	seen map[string]bool
}

func (f *fakeNonceStore) CheckAndSet(ctx context.Context, scopeID, nonce string, ttl time.Duration) (bool, error) {
	key := scopeID + ":" + nonce
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

type fakeTokenService struct {
	validClaims map[string]*ports.TokenClaims
}

func (f *fakeTokenService) GenerateForRestaurant(restaurantID uuid.UUID, accessKey string) (string, time.Time, error) {
	return "", time.Time{}, nil
}
func (f *fakeTokenService) GenerateForService(serviceName string) (string, time.Time, error) {
	return "", time.Time{}, nil
}
func (f *fakeTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	claims, ok := f.validClaims[tokenString]
	if !ok {
		return nil, assert.AnError
	}
	return claims, nil
}

func TestHMACAuth_MissingHeaders(t *testing.T) {
	log := zerolog.Nop()
	router := gin.New()
	router.POST("/test", HMACAuth(&fakeCredentialRepo{}, &fakeEncryption{}, &fakeSignature{}, &fakeNonceStore{seen: map[string]bool{}}, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHMACAuth_ExpiredTimestamp(t *testing.T) {
	log := zerolog.Nop()
	router := gin.New()
	router.POST("/test", HMACAuth(&fakeCredentialRepo{}, &fakeEncryption{}, &fakeSignature{}, &fakeNonceStore{seen: map[string]bool{}}, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set(HeaderAccessKey, "ak_test")
	req.Header.Set(HeaderSignature, "sig")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(time.Now().Add(-120*time.Second).Unix(), 10))
	req.Header.Set(HeaderNonce, "nonce123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHMACAuth_InvalidAccessKey(t *testing.T) {
	log := zerolog.Nop()
	router := gin.New()
	router.POST("/test", HMACAuth(&fakeCredentialRepo{byAccessKey: map[string]*domain.RestaurantCredential{}}, &fakeEncryption{}, &fakeSignature{}, &fakeNonceStore{seen: map[string]bool{}}, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set(HeaderAccessKey, "invalid_key")
	req.Header.Set(HeaderSignature, "sig")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set(HeaderNonce, "nonce123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHMACAuth_Success(t *testing.T) {
	log := zerolog.Nop()

	restaurantID := uuid.New()
	credentialRepo := &fakeCredentialRepo{byAccessKey: map[string]*domain.RestaurantCredential{
		"ak_valid": {
			RestaurantID:    restaurantID,
			AccessKey:       "ak_valid",
			EncryptedSecret: "enc_secret",
			Active:          true,
		},
	}}
	encSvc := &fakeEncryption{decrypted: map[string]string{"enc_secret": "raw_secret"}}
	sigSvc := &fakeSignature{canonical: "canonical", verifyOK: true}
	nonceStore := &fakeNonceStore{seen: map[string]bool{}}

	nowTs := time.Now().Unix()
	body := `{"amount":50000}`

	var capturedID uuid.UUID
	router := gin.New()
	router.POST("/test", HMACAuth(credentialRepo, encSvc, sigSvc, nonceStore, log), func(c *gin.Context) {
		id, _ := c.Get(CtxRestaurantID)
		capturedID = id.(uuid.UUID)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(body))
	req.Header.Set(HeaderAccessKey, "ak_valid")
	req.Header.Set(HeaderSignature, "valid_sig")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(nowTs, 10))
	req.Header.Set(HeaderNonce, "nonce-ok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, restaurantID, capturedID)
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	log := zerolog.Nop()
	router := gin.New()
	router.GET("/test", JWTAuth(&fakeTokenService{}, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	log := zerolog.Nop()
	router := gin.New()
	router.GET("/test", JWTAuth(&fakeTokenService{validClaims: map[string]*ports.TokenClaims{}}, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer bad_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_Success(t *testing.T) {
	log := zerolog.Nop()

	restaurantID := uuid.New()
	tokenSvc := &fakeTokenService{validClaims: map[string]*ports.TokenClaims{
		"good_token": {Kind: ports.SubjectKindRestaurant, RestaurantID: restaurantID, AccessKey: "ak_test"},
	}}

	var capturedID uuid.UUID
	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, log), func(c *gin.Context) {
		id, _ := c.Get(CtxRestaurantID)
		capturedID = id.(uuid.UUID)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, restaurantID, capturedID)
}

func TestServiceAuth_Success(t *testing.T) {
	log := zerolog.Nop()

	tokenSvc := &fakeTokenService{validClaims: map[string]*ports.TokenClaims{
		"service_token": {Kind: ports.SubjectKindService, ServiceName: "auth-worker"},
	}}

	var capturedName string
	router := gin.New()
	router.GET("/test", ServiceAuth(tokenSvc, log), func(c *gin.Context) {
		name, _ := c.Get(CtxServiceName)
		capturedName = name.(string)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderServiceAuth, "service_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "auth-worker", capturedName)
}

func TestServiceAuth_WrongSubjectKind(t *testing.T) {
	log := zerolog.Nop()

	restaurantID := uuid.New()
	tokenSvc := &fakeTokenService{validClaims: map[string]*ports.TokenClaims{
		"restaurant_token": {Kind: ports.SubjectKindRestaurant, RestaurantID: restaurantID},
	}}

	router := gin.New()
	router.GET("/test", ServiceAuth(tokenSvc, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderServiceAuth, "restaurant_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecovery_PanicRecovered(t *testing.T) {
	log := zerolog.Nop()

	router := gin.New()
	router.Use(Recovery(log))
	router.GET("/panic", func(c *gin.Context) {
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYS_001", resp["error_code"])
}
