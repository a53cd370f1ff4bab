package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmygitz3/final-project/internal/middleware"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/mpesa"
	"github.com/jimmygitz3/final-project/internal/repository/memory"
	"github.com/jimmygitz3/final-project/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	st := memory.New()
	tokens := middleware.NewTokens("handler-secret", time.Hour)
	access := service.NewConnectionService(st.Connections, st.Listings, st.Users, st.Payments)
	svc := Services{
		Auth:        service.NewAuthService(st.Users, tokens),
		Listings:    service.NewListingService(st.Listings, st.Users, st.Photos, access),
		Connections: access,
		Reviews:     service.NewReviewService(st.Reviews, st.Listings, st.Connections),
		Activity:    service.NewActivityService(st.Listings, st.Payments, st.Reviews, st.Users),
		Payments: service.NewPaymentService(service.PaymentDeps{
			Payments:    st.Payments,
			Listings:    st.Listings,
			Users:       st.Users,
			Connections: st.Connections,
			Gateway:     mpesa.NewSimulator(),
			Journal:     st.Journal,
			Pricing:     model.DefaultPricing(),
		}),
	}
	return NewRouter(svc, tokens, nil)
}

func do(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func register(t *testing.T, r http.Handler, email string, role model.Role) string {
	t.Helper()
	w := do(r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":       "Test User",
		"email":      email,
		"password":   "secret1",
		"phone":      "0712345678",
		"userType":   role,
		"university": "Kenyatta University",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func listingBody(title, town, propertyType string) gin.H {
	return gin.H{
		"title":        title,
		"description":  "Close to campus",
		"price":        6000,
		"location":     gin.H{"county": "Kiambu", "town": town},
		"propertyType": propertyType,
	}
}

func TestRegisterLoginMe(t *testing.T) {
	r := newTestRouter(t)
	register(t, r, "wanjiru@example.com", model.RoleTenant)

	w := do(r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":       "Again",
		"email":      "wanjiru@example.com",
		"password":   "secret1",
		"phone":      "0712345678",
		"userType":   "tenant",
		"university": "KU",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decode(t, w)["error"])

	w = do(r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "wanjiru@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "wanjiru@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	w = do(r, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "wanjiru@example.com", me["email"])
	assert.NotContains(t, me, "password")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/payments/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No token, authorization denied", decode(t, w)["error"])

	w = do(r, http.MethodGet, "/api/payments/history", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token is not valid", decode(t, w)["error"])
}

func TestCallbackAlwaysAcknowledged(t *testing.T) {
	r := newTestRouter(t)
	for _, body := range []string{"not json", `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_unknown","ResultCode":0}}}`, ""} {
		w := do(r, http.MethodPost, "/api/payments/mpesa/callback", "", body)
		require.Equal(t, http.StatusOK, w.Code)
		got := decode(t, w)
		assert.Equal(t, float64(0), got["ResultCode"])
		assert.Equal(t, "Accepted", got["ResultDesc"])
	}
}

func TestPricingAndGatewayStatus(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/payments/pricing", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{
		"listingFee":      float64(500),
		"connectionFee":   float64(100),
		"subscriptionFee": float64(1000),
	}, decode(t, w))

	w = do(r, http.MethodGet, "/api/payments/mpesa/test", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	assert.Equal(t, "demo_mode", status["status"])
	assert.Equal(t, false, status["configured"])
}

func TestListingOwnershipAndIDs(t *testing.T) {
	r := newTestRouter(t)
	owner := register(t, r, "owner@example.com", model.RoleLandlord)
	other := register(t, r, "other@example.com", model.RoleLandlord)

	w := do(r, http.MethodPost, "/api/listings", owner, listingBody("Bedsitter near KU", "Kahawa Wendani", "bedsitter"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = do(r, http.MethodPatch, "/api/listings/"+id+"/mark-unavailable", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPatch, "/api/listings/"+id+"/mark-unavailable", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode(t, w)["scheduledDeletionAt"])

	w = do(r, http.MethodPatch, "/api/listings/not-an-id/mark-unavailable", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid id", decode(t, w)["error"])

	w = do(r, http.MethodGet, "/api/listings/"+id, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDemoPaymentFlow(t *testing.T) {
	r := newTestRouter(t)
	owner := register(t, r, "owner@example.com", model.RoleLandlord)

	w := do(r, http.MethodPost, "/api/listings", owner, listingBody("Hostel room", "Juja", "shared-room"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	listingID := decode(t, w)["id"].(string)

	w = do(r, http.MethodPost, "/api/payments/mpesa/initiate", owner, gin.H{
		"amount":      500,
		"paymentType": "listing_fee",
		"listingId":   listingID,
		"phoneNumber": "0712345678",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	initiated := decode(t, w)
	assert.Equal(t, true, initiated["demo"])
	tx := initiated["transactionId"].(string)

	w = do(r, http.MethodPost, "/api/payments/demo/complete", owner, gin.H{"transactionId": tx})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	payment := decode(t, w)["payment"].(map[string]interface{})
	assert.Equal(t, "completed", payment["status"])

	w = do(r, http.MethodGet, "/api/payments/status/"+tx, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/api/payments/demo/complete", owner, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaintenanceRoutesKeepContactsGated(t *testing.T) {
	r := newTestRouter(t)
	owner := register(t, r, "landlord@example.com", model.RoleLandlord)
	other := register(t, r, "neighbour@example.com", model.RoleLandlord)
	tenant := register(t, r, "student@example.com", model.RoleTenant)

	w := do(r, http.MethodPost, "/api/listings", owner, listingBody("Single room", "Ruiru", "single-room"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)
	w = do(r, http.MethodPatch, "/api/listings/"+id+"/mark-unavailable", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/connections/check/"+id, tenant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["hasAccess"])

	w = do(r, http.MethodGet, "/api/maintenance/pending-deletion?window=24h", tenant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "landlord@example.com")
	w = do(r, http.MethodPost, "/api/maintenance/cleanup", tenant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/api/maintenance/pending-deletion?window=24h", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = do(r, http.MethodGet, "/api/maintenance/pending-deletion?window=24h", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])
	assert.NotContains(t, w.Body.String(), "0712345678")

	w = do(r, http.MethodGet, "/api/maintenance/pending-deletion?window=720h", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
