package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cbms_backend/internal/dashboard"
	"cbms_backend/internal/db/dbtest"
	"cbms_backend/internal/domain"
	"cbms_backend/internal/ledger"
	"cbms_backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

type fixture struct {
	router *gin.Engine
	db     *gorm.DB
	media  string
	admin  *domain.User
	leader *domain.User
	member *domain.User
	other  *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.New(t)
	l := ledger.New(gdb, nil, ledger.WithBatchSize(2))
	f := &fixture{db: gdb, media: t.TempDir()}
	f.admin = dbtest.CreateUser(t, gdb, "admin", domain.RoleAdmin)
	f.leader = dbtest.CreateUser(t, gdb, "leader", domain.RoleResponsibleMember)
	f.member = dbtest.CreateUser(t, gdb, "member", domain.RoleMember, dbtest.WithLeader(f.leader))
	f.other = dbtest.CreateUser(t, gdb, "other", domain.RoleMember)
	f.router = NewRouter(Deps{
		Ledger:         l,
		Dashboard:      dashboard.NewService(gdb, nil, decimal.NewFromInt(5000), time.Minute),
		Tokens:         TokenConfig{Secret: secret, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour},
		MediaRoot:      f.media,
		CacheTTL:       time.Minute,
		TrustedProxies: []string{"192.0.2.1", "10.0.0.0/8"}, // httptest requests come from 192.0.2.1
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, as *domain.User, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		tok, err := utils.GenerateJWT(as.ID, utils.AccessToken, secret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestLoginAndRefresh(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/token/", nil, gin.H{"username": "Member", "password": dbtest.Password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	auth := decode[AuthResponse](t, w)
	assert.Equal(t, "member", auth.User.Username)
	assert.NotEmpty(t, auth.Access)

	w = f.do(t, http.MethodPost, "/api/token/refresh/", nil, gin.H{"refresh": auth.Refresh})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode[map[string]string](t, w)["access"])

	// An access token is not a refresh token
	w = f.do(t, http.MethodPost, "/api/token/refresh/", nil, gin.H{"refresh": auth.Access})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/token/", nil, gin.H{"username": "member", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/payments/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentScoping(t *testing.T) {
	f := newFixture(t)

	// A leader records for an assigned member
	w := f.do(t, http.MethodPost, "/api/payments/", f.leader, gin.H{"user": f.member.ID, "amount": "1500", "date": "2024-03-15"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[PaymentResponse](t, w)
	assert.Equal(t, domain.PaymentCollect, created.TransactionType)
	assert.Equal(t, "2024-03-15", created.Date)

	// But not for someone outside the downline
	w = f.do(t, http.MethodPost, "/api/payments/", f.leader, gin.H{"user": f.other.ID, "amount": "100", "date": "2024-03-15"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Members cannot disburse
	w = f.do(t, http.MethodPost, "/api/payments/", f.member, gin.H{"amount": "100", "transaction_type": "DISBURSE", "date": "2024-03-15"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	dbtest.CreatePayment(t, f.db, f.other, domain.PaymentCollect, 700, time.Now())

	list := decode[[]PaymentResponse](t, f.do(t, http.MethodGet, "/api/payments/", f.member, nil))
	require.Len(t, list, 1)
	assert.Equal(t, f.member.ID, list[0].User)

	list = decode[[]PaymentResponse](t, f.do(t, http.MethodGet, "/api/payments/", f.admin, nil))
	assert.Len(t, list, 2)

	// Out of scope reads look like missing rows
	w = f.do(t, http.MethodGet, "/api/payments/"+itoa(created.ID)+"/", f.other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentValidation(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/payments/", f.admin, gin.H{"user": f.member.ID, "amount": "-5", "date": "not-a-date"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.Contains(t, body.Fields, "amount")
	assert.Contains(t, body.Fields, "date")
}

func TestPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		dbtest.CreatePayment(t, f.db, f.member, domain.PaymentCollect, 100, time.Now())
	}
	w := f.do(t, http.MethodGet, "/api/payments/?page=2&page_size=2", f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get(TotalCountHeader))
	assert.Len(t, decode[[]PaymentResponse](t, w), 1)
}

func TestFundRequestApproveTwice(t *testing.T) {
	f := newFixture(t)
	fr := dbtest.CreateFundRequest(t, f.db, f.member, 50000)
	path := "/api/fund-requests/" + itoa(fr.ID)

	w := f.do(t, http.MethodPost, path+"/approve/", f.member, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, path+"/approve/", f.admin, gin.H{"payment_date": "2024-04-01"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "approved", decode[map[string]any](t, w)["status"])

	w = f.do(t, http.MethodPost, path+"/approve/", f.admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	got := decode[FundRequestResponse](t, f.do(t, http.MethodGet, path+"/", f.member, nil))
	assert.Equal(t, domain.RequestApproved, got.Status)
	require.NotNil(t, got.ScheduledPaymentDate)
	assert.Equal(t, "2024-04-01", *got.ScheduledPaymentDate)

	var notes int64
	require.NoError(t, f.db.Model(&domain.Notification{}).Where("user_id = ?", f.member.ID).Count(&notes).Error)
	assert.EqualValues(t, 1, notes)
}

func TestFundRequestDecline(t *testing.T) {
	f := newFixture(t)
	fr := dbtest.CreateFundRequest(t, f.db, f.member, 50000)
	path := "/api/fund-requests/" + itoa(fr.ID)

	w := f.do(t, http.MethodPost, path+"/decline/", f.admin, gin.H{"reason": "Insufficient funds"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[FundRequestResponse](t, f.do(t, http.MethodGet, path+"/", f.admin, nil))
	assert.Equal(t, domain.RequestDeclined, got.Status)
	assert.Equal(t, "Insufficient funds", got.RejectionReason)
}

func TestWalletApproveCreatesPayment(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/wallet-transactions/", f.member, gin.H{
		"amount": "2500", "payment_method": "upi", "transaction_id": "UPI-1", "date": "2024-03-15",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	wt := decode[WalletTransactionResponse](t, w)
	assert.Equal(t, domain.WalletPending, wt.Status)

	path := "/api/wallet-transactions/" + itoa(wt.ID) + "/approve/"
	w = f.do(t, http.MethodPost, path, f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.Equal(t, "approved", body["status"])

	var payments []domain.Payment
	require.NoError(t, f.db.Where("user_id = ?", f.member.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(2500)))
	assert.EqualValues(t, body["payment_id"], payments[0].ID)

	w = f.do(t, http.MethodPost, path, f.admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestNotificationsFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/notifications/announce/", f.member, gin.H{"title": "Hi", "message": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/notifications/announce/", f.admin, gin.H{"title": "Wedding", "message": "Saturday"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 4, decode[map[string]any](t, w)["recipients"])

	list := decode[[]NotificationResponse](t, f.do(t, http.MethodGet, "/api/notifications/", f.member, nil))
	require.Len(t, list, 1)
	assert.False(t, list[0].IsRead)
	assert.Equal(t, domain.NotifyAnnouncement, list[0].NotificationType)

	// Someone else's notification is invisible
	w = f.do(t, http.MethodPost, "/api/notifications/"+itoa(list[0].ID)+"/mark_read/", f.other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/notifications/"+itoa(list[0].ID)+"/mark_read/", f.member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "marked as read", decode[map[string]any](t, w)["status"])

	w = f.do(t, http.MethodPost, "/api/notifications/mark_all_read/", f.other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = decode[[]NotificationResponse](t, f.do(t, http.MethodGet, "/api/notifications/?is_read=false", f.other, nil))
	assert.Empty(t, list)
}

func TestUsersEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/users/me/", f.member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[UserResponse](t, w)
	assert.Equal(t, "member", me.Username)
	require.NotNil(t, me.ResponsibleMember)
	assert.Equal(t, f.leader.ID, *me.ResponsibleMember)

	w = f.do(t, http.MethodGet, "/api/users/my_members/", f.member, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	members := decode[[]UserResponse](t, f.do(t, http.MethodGet, "/api/users/my_members/", f.leader, nil))
	require.Len(t, members, 1)
	assert.Equal(t, f.member.ID, members[0].ID)

	public := decode[[]PublicUserResponse](t, f.do(t, http.MethodGet, "/api/users/all_public/", f.other, nil))
	assert.Len(t, public, 4)

	w = f.do(t, http.MethodPost, "/api/users/", f.member, gin.H{"username": "x", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/users/", f.admin, gin.H{
		"username": "NewUser", "password": "password123", "first_name": "New", "responsible_member": f.leader.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[UserResponse](t, w)
	assert.Equal(t, "newuser", created.Username)
	assert.Equal(t, domain.RoleMember, created.Role)

	// Members edit their own profile only
	w = f.do(t, http.MethodPatch, "/api/users/"+itoa(f.member.ID)+"/", f.member, gin.H{"first_name": "Asha"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Asha", decode[UserResponse](t, w).FirstName)

	w = f.do(t, http.MethodPatch, "/api/users/"+itoa(f.member.ID)+"/", f.admin, gin.H{"responsible_member": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decode[UserResponse](t, w).ResponsibleMember)
}

func TestRejectedUserUploadLeavesNoPhoto(t *testing.T) {
	f := newFixture(t)
	upload := func(username, password string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("username", username))
		require.NoError(t, mw.WriteField("password", password))
		part, err := mw.CreateFormFile("profile_photo", "me.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/users/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		tok, err := utils.GenerateJWT(f.admin.ID, utils.AccessToken, secret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w
	}
	photos := func() []os.DirEntry {
		entries, err := os.ReadDir(filepath.Join(f.media, ProfilePhotoDir))
		require.NoError(t, err)
		return entries
	}

	w := upload("photo.user", "short")
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Empty(t, photos())

	w = upload("photo.user", "password123")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, photos(), 1)
}

func TestTermsOnce(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/terms/", nil)
	tok, err := utils.GenerateJWT(f.member.ID, utils.AccessToken, secret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "test-agent")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ack := decode[TermsResponse](t, w)
	require.NotNil(t, ack.IPAddress)
	assert.Equal(t, "203.0.113.7", *ack.IPAddress)
	assert.Equal(t, "test-agent", ack.UserAgent)

	w = f.do(t, http.MethodPost, "/api/terms/", f.member, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Forwarded headers from an untrusted peer are ignored
	req = httptest.NewRequest(http.MethodPost, "/api/terms/", nil)
	tok, err = utils.GenerateJWT(f.leader.ID, utils.AccessToken, secret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.RemoteAddr = "198.51.100.9:5555"
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ack = decode[TermsResponse](t, w)
	require.NotNil(t, ack.IPAddress)
	assert.Equal(t, "198.51.100.9", *ack.IPAddress)

	assert.Len(t, decode[[]TermsResponse](t, f.do(t, http.MethodGet, "/api/terms/", f.other, nil)), 0)
	assert.Len(t, decode[[]TermsResponse](t, f.do(t, http.MethodGet, "/api/terms/", f.admin, nil)), 2)
}

func TestDashboardEndpoints(t *testing.T) {
	f := newFixture(t)
	dbtest.CreatePayment(t, f.db, f.member, domain.PaymentCollect, 3000, time.Now())

	w := f.do(t, http.MethodGet, "/api/dashboard/stats/", f.member, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decode[map[string]any](t, w)
	assert.Contains(t, stats, "financials")
	assert.Contains(t, stats, "teams")

	w = f.do(t, http.MethodGet, "/api/teams/", f.member, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	teams := decode[[]map[string]any](t, w)
	require.Len(t, teams, 1)
	assert.Contains(t, teams[0], "teamTotalPaid")
}

func itoa(id uint) string {
	return decimal.NewFromInt(int64(id)).String()
}
