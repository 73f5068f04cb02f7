package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"ephemeral-account-service/internal/core/domain"
	"ephemeral-account-service/internal/core/ports"
	"ephemeral-account-service/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type hmacTestDeps struct {
	clientRepo *mocks.MockClientRepository
	encSvc     *mocks.MockEncryptionService
	sigSvc     *mocks.MockSignatureService
	nonceStore *mocks.MockNonceStore
	router     *gin.Engine
	ctrl       *gomock.Controller
}

func setupHMACAuth(t *testing.T) *hmacTestDeps {
	ctrl := gomock.NewController(t)
	d := &hmacTestDeps{
		clientRepo: mocks.NewMockClientRepository(ctrl),
		encSvc:     mocks.NewMockEncryptionService(ctrl),
		sigSvc:     mocks.NewMockSignatureService(ctrl),
		nonceStore: mocks.NewMockNonceStore(ctrl),
		ctrl:       ctrl,
	}
	d.router = gin.New()
	d.router.POST("/test", HMACAuth(d.clientRepo, d.encSvc, d.sigSvc, d.nonceStore, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	return d
}

func signedRequest(accessKey, signature, nonce string, ts int64) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{}`))
	req.Header.Set(HeaderAccessKey, accessKey)
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderNonce, nonce)
	return req
}

func TestHMACAuth_MissingHeaders(t *testing.T) {
	d := setupHMACAuth(t)
	defer d.ctrl.Finish()

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHMACAuth_ExpiredTimestamp(t *testing.T) {
	d := setupHMACAuth(t)
	defer d.ctrl.Finish()

	req := signedRequest("ak_test", "sig", "nonce123", time.Now().Add(-120*time.Second).Unix())
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHMACAuth_InvalidAccessKey(t *testing.T) {
	d := setupHMACAuth(t)
	defer d.ctrl.Finish()

	d.clientRepo.EXPECT().GetByAccessKey(gomock.Any(), "invalid_key").Return(nil, nil)

	req := signedRequest("invalid_key", "sig", "nonce123", time.Now().Unix())
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHMACAuth_SuspendedClient(t *testing.T) {
	d := setupHMACAuth(t)
	defer d.ctrl.Finish()

	client := &domain.APIClient{ID: uuid.New(), AccessKey: "ak_test", Status: domain.ClientStatusSuspended}
	d.clientRepo.EXPECT().GetByAccessKey(gomock.Any(), "ak_test").Return(client, nil)

	req := signedRequest("ak_test", "sig", "nonce123", time.Now().Unix())
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHMACAuth_ReplayedNonce(t *testing.T) {
	d := setupHMACAuth(t)
	defer d.ctrl.Finish()

	client := &domain.APIClient{ID: uuid.New(), AccessKey: "ak_test", Status: domain.ClientStatusActive}
	d.clientRepo.EXPECT().GetByAccessKey(gomock.Any(), "ak_test").Return(client, nil)
	d.nonceStore.EXPECT().CheckAndSet(gomock.Any(), client.ID.String(), "nonce123", gomock.Any()).Return(false, nil)

	req := signedRequest("ak_test", "sig", "nonce123", time.Now().Unix())
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHMACAuth_InvalidSignature(t *testing.T) {
	d := setupHMACAuth(t)
	defer d.ctrl.Finish()

	client := &domain.APIClient{ID: uuid.New(), AccessKey: "ak_test", SecretKeyEnc: "enc", Status: domain.ClientStatusActive}
	d.clientRepo.EXPECT().GetByAccessKey(gomock.Any(), "ak_test").Return(client, nil)
	d.nonceStore.EXPECT().CheckAndSet(gomock.Any(), client.ID.String(), "nonce123", gomock.Any()).Return(true, nil)
	d.encSvc.EXPECT().Decrypt("enc").Return("secret", nil)
	d.sigSvc.EXPECT().BuildCanonicalString(http.MethodPost, "/test", gomock.Any(), "nonce123", "{}").Return("canonical")
	d.sigSvc.EXPECT().Verify("secret", "canonical", "bad_sig").Return(false)

	req := signedRequest("ak_test", "bad_sig", "nonce123", time.Now().Unix())
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHMACAuth_Success(t *testing.T) {
	d := setupHMACAuth(t)
	defer d.ctrl.Finish()

	client := &domain.APIClient{ID: uuid.New(), AccessKey: "ak_test", SecretKeyEnc: "enc", Status: domain.ClientStatusActive}
	d.clientRepo.EXPECT().GetByAccessKey(gomock.Any(), "ak_test").Return(client, nil)
	d.nonceStore.EXPECT().CheckAndSet(gomock.Any(), client.ID.String(), "nonce123", gomock.Any()).Return(true, nil)
	d.encSvc.EXPECT().Decrypt("enc").Return("secret", nil)
	d.sigSvc.EXPECT().BuildCanonicalString(http.MethodPost, "/test", gomock.Any(), "nonce123", "{}").Return("canonical")
	d.sigSvc.EXPECT().Verify("secret", "canonical", "good_sig").Return(true)

	req := signedRequest("ak_test", "good_sig", "nonce123", time.Now().Unix())
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_ValidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clientID := uuid.New()
	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("valid_token").Return(&ports.TokenClaims{ClientID: clientID, AccessKey: "ak"}, nil)

	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		id, _ := c.Get(CtxClientID)
		assert.Equal(t, clientID, id)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer valid_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		assert.NotEmpty(t, c.GetString(CtxRequestID))
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_PropagatesHeader(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestRecovery_PanicReturns500(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
