package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dan9191/studio-billing/internal/config"
	"github.com/Dan9191/studio-billing/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSummary(t *testing.T) {
	router := newTestRouter(t, &stubBilling{}, nil)
	admin := token(t, 1, middleware.RoleAdmin)

	rec := do(router, "GET", "/admin/reports/summary?month=2025-03", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "2025-03", body["month"])
	assert.Equal(t, "200", body["total_paid"])
	assert.Equal(t, "250", body["total_pending"])
	assert.Equal(t, "120", body["total_expenses"])
	assert.Equal(t, "80", body["net_result"])

	rec = do(router, "GET", "/admin/reports/summary", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-01", decodeBody(t, rec)["month"])

	assert.Equal(t, http.StatusBadRequest, do(router, "GET", "/admin/reports/summary?month=03-2025", admin, "").Code)
}

func TestExportFees(t *testing.T) {
	stub := &stubBilling{}
	router := newTestRouter(t, stub, nil)
	admin := token(t, 1, middleware.RoleAdmin)

	rec := do(router, "GET", "/admin/export/fees?status=overdue&days_overdue=3&format=json", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, stub.minDays)
	assert.Equal(t, "overdue", string(stub.filter.Status))
	assert.Contains(t, rec.Body.String(), `"days_overdue":5`)

	rec = do(router, "GET", "/admin/export/fees", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fees-2025-01-15.xlsx")
	assert.Equal(t, "xlsx-bytes", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(router, "GET", "/admin/export/fees?format=csv", admin, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(router, "GET", "/admin/export/fees?format=json&days_overdue=-1", admin, "").Code)
	assert.Equal(t, http.StatusForbidden, do(router, "GET", "/admin/export/fees", token(t, 70, ""), "").Code)
}

func TestExportFeesWithExportToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("nightly"), bcrypt.MinCost)
	require.NoError(t, err)
	router := newTestRouter(t, &stubBilling{}, &config.Config{ExportTokenHash: string(hash)})

	req := httptest.NewRequest("GET", "/admin/export/fees?format=json", nil)
	req.Header.Set("X-Export-Token", "nightly")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotifications(t *testing.T) {
	router := newTestRouter(t, &stubBilling{}, nil)
	user := token(t, 70, "")

	rec := do(router, "GET", "/notifications?unread=true", user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":70`)
	assert.Contains(t, rec.Body.String(), `"read":false`)

	rec = do(router, "POST", "/notifications/3/read", user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["read"])

	rec = do(router, "POST", "/notifications/3/read", token(t, 80, ""), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
