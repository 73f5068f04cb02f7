package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	creator      = "GCREATOR"
	recoveryAddr = "GRECOVERY"
)

// initializeAccount creates an account through the signed collaborator API.
// The expiry is one hour past the app clock unless overridden.
func initializeAccount(t *testing.T, app *testApp, accessKey, secretKey string, accountID uuid.UUID, sweepDest *string, expiresAt time.Time) *http.Response {
	t.Helper()

	payload := map[string]interface{}{
		"account_id":       accountID.String(),
		"creator":          creator,
		"recovery_address": recoveryAddr,
		"expires_at":       expiresAt.Format(time.RFC3339),
		"proof":            app.authorizer.Sign(accountID, creator, ""),
	}
	if sweepDest != nil {
		payload["sweep_destination"] = *sweepDest
	}
	body, _ := json.Marshal(payload)
	return signedPost(t, app, accessKey, secretKey, "/api/v1/accounts", body)
}

func recordPayment(t *testing.T, app *testApp, accessKey, secretKey string, accountID uuid.UUID, amount int64) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"amount": amount,
		"asset":  "USDC",
	})
	return signedPost(t, app, accessKey, secretKey, fmt.Sprintf("/api/v1/accounts/%s/payment", accountID), body)
}

func sweepAccount(t *testing.T, app *testApp, accessKey, secretKey string, accountID uuid.UUID, destination string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"destination": destination,
		"proof":       app.authorizer.Sign(accountID, creator, destination),
	})
	return signedPost(t, app, accessKey, secretKey, fmt.Sprintf("/api/v1/accounts/%s/sweep", accountID), body)
}

func TestIntegration_FullLifecycle_Sweep(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	accessKey, secretKey := registerAndGetKeys(t, app, "lifecycle_client")
	token := loginAndGetToken(t, app, "lifecycle_client", "StrongPass123!")

	accountID := uuid.New()
	expiresAt := app.clock.Now().Add(time.Hour)

	// Initialize
	resp := initializeAccount(t, app, accessKey, secretKey, accountID, nil, expiresAt)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, "ACTIVE", data["status"])

	// Status via JWT query API
	reqStatus, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/accounts/"+accountID.String()+"/status", nil)
	reqStatus.Header.Set("Authorization", "Bearer "+token)
	respStatus, err := http.DefaultClient.Do(reqStatus)
	require.NoError(t, err)
	defer respStatus.Body.Close()
	require.Equal(t, http.StatusOK, respStatus.StatusCode)
	assert.Equal(t, "ACTIVE", decodeData(t, respStatus)["status"])

	// Record the payment
	respPay := recordPayment(t, app, accessKey, secretKey, accountID, 50000)
	defer respPay.Body.Close()
	require.Equal(t, http.StatusOK, respPay.StatusCode)
	payData := decodeData(t, respPay)
	assert.Equal(t, "PAYMENT_RECEIVED", payData["status"])
	assert.Equal(t, float64(50000), payData["payment_amount"])

	// Sweep to a destination
	respSweep := sweepAccount(t, app, accessKey, secretKey, accountID, "GDEST")
	defer respSweep.Body.Close()
	require.Equal(t, http.StatusOK, respSweep.StatusCode)
	sweepData := decodeData(t, respSweep)
	assert.Equal(t, "SWEPT", sweepData["status"])
	assert.Equal(t, "GDEST", sweepData["swept_to"])

	// Audit trail: created, payment, sweep, reserve reclaim
	reqEvents, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/accounts/"+accountID.String()+"/events", nil)
	reqEvents.Header.Set("Authorization", "Bearer "+token)
	respEvents, err := http.DefaultClient.Do(reqEvents)
	require.NoError(t, err)
	defer respEvents.Body.Close()

	var eventsEnvelope struct {
		Data []struct {
			Type string `json:"type"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(respEvents.Body).Decode(&eventsEnvelope))
	require.Len(t, eventsEnvelope.Data, 4)
	assert.Equal(t, "ACCOUNT_CREATED", eventsEnvelope.Data[0].Type)
	assert.Equal(t, "PAYMENT_RECEIVED", eventsEnvelope.Data[1].Type)
	assert.Equal(t, "SWEEP_EXECUTED", eventsEnvelope.Data[2].Type)
	assert.Equal(t, "RESERVE_RECLAIMED", eventsEnvelope.Data[3].Type)

	// Reserve was reclaimed with the sweep
	reqReserve, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/accounts/"+accountID.String()+"/reserve", nil)
	reqReserve.Header.Set("Authorization", "Bearer "+token)
	respReserve, err := http.DefaultClient.Do(reqReserve)
	require.NoError(t, err)
	defer respReserve.Body.Close()
	reserveData := decodeData(t, respReserve)
	assert.Equal(t, true, reserveData["reclaimed"])
	assert.Equal(t, float64(0), reserveData["remaining"])
}

func TestIntegration_Expire_NoPayment(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	accessKey, secretKey := registerAndGetKeys(t, app, "expire_client")

	accountID := uuid.New()
	resp := initializeAccount(t, app, accessKey, secretKey, accountID, nil, app.clock.Now().Add(time.Hour))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Not yet expired
	respEarly, err := http.Post(app.server.URL+"/api/v1/accounts/"+accountID.String()+"/expire", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, respEarly.StatusCode)
	assert.Equal(t, "SWP_004", errCode(t, respEarly))
	respEarly.Body.Close()

	// Cross the deadline. Expiry is inclusive at the boundary.
	app.clock.Advance(time.Hour)

	respExpire, err := http.Post(app.server.URL+"/api/v1/accounts/"+accountID.String()+"/expire", "application/json", nil)
	require.NoError(t, err)
	defer respExpire.Body.Close()
	require.Equal(t, http.StatusOK, respExpire.StatusCode)
	data := decodeData(t, respExpire)
	assert.Equal(t, "EXPIRED", data["status"])
	assert.Equal(t, recoveryAddr, data["destination"])
	assert.Equal(t, float64(0), data["amount"])

	// Repeating expire on a terminal account fails
	respAgain, err := http.Post(app.server.URL+"/api/v1/accounts/"+accountID.String()+"/expire", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, respAgain.StatusCode)
	assert.Equal(t, "SWP_005", errCode(t, respAgain))
	respAgain.Body.Close()
}

func TestIntegration_Expire_UsesFixedSweepDestination(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	accessKey, secretKey := registerAndGetKeys(t, app, "expire_dest_client")

	accountID := uuid.New()
	dest := "GFIXEDDEST"
	resp := initializeAccount(t, app, accessKey, secretKey, accountID, &dest, app.clock.Now().Add(time.Hour))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	respPay := recordPayment(t, app, accessKey, secretKey, accountID, 25000)
	respPay.Body.Close()
	require.Equal(t, http.StatusOK, respPay.StatusCode)

	app.clock.Advance(2 * time.Hour)

	respExpire, err := http.Post(app.server.URL+"/api/v1/accounts/"+accountID.String()+"/expire", "application/json", nil)
	require.NoError(t, err)
	defer respExpire.Body.Close()
	require.Equal(t, http.StatusOK, respExpire.StatusCode)
	data := decodeData(t, respExpire)
	assert.Equal(t, dest, data["destination"])
	assert.Equal(t, float64(25000), data["amount"])
}

func TestIntegration_SecondPaymentRejected(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	accessKey, secretKey := registerAndGetKeys(t, app, "double_pay_client")

	accountID := uuid.New()
	resp := initializeAccount(t, app, accessKey, secretKey, accountID, nil, app.clock.Now().Add(time.Hour))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	respPay := recordPayment(t, app, accessKey, secretKey, accountID, 1000)
	respPay.Body.Close()
	require.Equal(t, http.StatusOK, respPay.StatusCode)

	respPay2 := recordPayment(t, app, accessKey, secretKey, accountID, 2000)
	defer respPay2.Body.Close()
	assert.Equal(t, http.StatusConflict, respPay2.StatusCode)
	assert.Equal(t, "PAY_001", errCode(t, respPay2))
}

func TestIntegration_InitializeTwiceRejected(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	accessKey, secretKey := registerAndGetKeys(t, app, "double_init_client")

	accountID := uuid.New()
	resp := initializeAccount(t, app, accessKey, secretKey, accountID, nil, app.clock.Now().Add(time.Hour))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp2 := initializeAccount(t, app, accessKey, secretKey, accountID, nil, app.clock.Now().Add(2*time.Hour))
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)
	assert.Equal(t, "ACC_001", errCode(t, resp2))
}

func TestIntegration_InitializeTwice_StaleExpiryStillConflicts(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	accessKey, secretKey := registerAndGetKeys(t, app, "stale_init_client")

	accountID := uuid.New()
	resp := initializeAccount(t, app, accessKey, secretKey, accountID, nil, app.clock.Now().Add(time.Hour))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// A replayed initialize whose expiry is now in the past reports the
	// duplicate, not the stale expiry.
	resp2 := initializeAccount(t, app, accessKey, secretKey, accountID, nil, app.clock.Now().Add(-time.Hour))
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)
	assert.Equal(t, "ACC_001", errCode(t, resp2))
}

func TestIntegration_SweepAfterExpiryRejected(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	accessKey, secretKey := registerAndGetKeys(t, app, "late_sweep_client")

	accountID := uuid.New()
	resp := initializeAccount(t, app, accessKey, secretKey, accountID, nil, app.clock.Now().Add(time.Hour))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	respPay := recordPayment(t, app, accessKey, secretKey, accountID, 1000)
	respPay.Body.Close()
	require.Equal(t, http.StatusOK, respPay.StatusCode)

	app.clock.Advance(time.Hour)

	respSweep := sweepAccount(t, app, accessKey, secretKey, accountID, "GDEST")
	defer respSweep.Body.Close()
	assert.Equal(t, http.StatusGone, respSweep.StatusCode)
	assert.Equal(t, "SWP_003", errCode(t, respSweep))
}

func TestIntegration_ReclaimAfterExpire_IsZero(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	accessKey, secretKey := registerAndGetKeys(t, app, "reclaim_client")

	accountID := uuid.New()
	resp := initializeAccount(t, app, accessKey, secretKey, accountID, nil, app.clock.Now().Add(time.Hour))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	app.clock.Advance(2 * time.Hour)

	respExpire, err := http.Post(app.server.URL+"/api/v1/accounts/"+accountID.String()+"/expire", "application/json", nil)
	require.NoError(t, err)
	respExpire.Body.Close()
	require.Equal(t, http.StatusOK, respExpire.StatusCode)

	// Expire already claimed the full reserve; a manual reclaim is a no-op.
	respReclaim, err := http.Post(app.server.URL+"/api/v1/accounts/"+accountID.String()+"/reserve/reclaim", "application/json", nil)
	require.NoError(t, err)
	defer respReclaim.Body.Close()
	require.Equal(t, http.StatusOK, respReclaim.StatusCode)
	data := decodeData(t, respReclaim)
	assert.Equal(t, float64(0), data["amount"])
	assert.Equal(t, true, data["fully_reclaimed"])
	assert.Equal(t, float64(0), data["remaining_reserve"])
}

// TestIntegration_ConcurrentSweeps fires many sweeps at the same account.
// Exactly one may win; the rest must observe the terminal state.
func TestIntegration_ConcurrentSweeps(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	accessKey, secretKey := registerAndGetKeys(t, app, "race_client")

	accountID := uuid.New()
	resp := initializeAccount(t, app, accessKey, secretKey, accountID, nil, app.clock.Now().Add(time.Hour))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	respPay := recordPayment(t, app, accessKey, secretKey, accountID, 5000)
	respPay.Body.Close()
	require.Equal(t, http.StatusOK, respPay.StatusCode)

	concurrency := 20
	var wg sync.WaitGroup
	var wins atomic.Int64
	var conflicts atomic.Int64
	var other atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r := sweepAccount(t, app, accessKey, secretKey, accountID, "GDEST")
			defer r.Body.Close()
			body, _ := io.ReadAll(r.Body)

			switch {
			case r.StatusCode == http.StatusOK:
				wins.Add(1)
			case r.StatusCode == http.StatusConflict:
				conflicts.Add(1)
			default:
				t.Logf("unexpected sweep response %d: %s", r.StatusCode, string(body))
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load(), "exactly one sweep must win")
	assert.Equal(t, int64(concurrency-1), conflicts.Load(), "losers must see the already-swept conflict")
	assert.Equal(t, int64(0), other.Load())
}
