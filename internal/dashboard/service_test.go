package dashboard

import (
	"context"
	"testing"
	"time"

	"cbms_backend/internal/db/dbtest"
	"cbms_backend/internal/domain"
	"cbms_backend/internal/notify"
	"cbms_backend/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, gdb *gorm.DB) (admin, leader *domain.User) {
	t.Helper()
	admin = dbtest.CreateUser(t, gdb, "admin", domain.RoleAdmin)
	leader = dbtest.CreateUser(t, gdb, "leader", domain.RoleResponsibleMember, dbtest.WithMarital(domain.MaritalMarried))
	asha := dbtest.CreateUser(t, gdb, "asha", domain.RoleMember, dbtest.WithLeader(leader))
	dbtest.CreateUser(t, gdb, "bala", domain.RoleMember, dbtest.WithLeader(leader), dbtest.WithMarital(domain.MaritalMarried))
	chitra := dbtest.CreateUser(t, gdb, "chitra", domain.RoleMember)

	dbtest.CreatePayment(t, gdb, leader, domain.PaymentCollect, 4000, day)
	dbtest.CreatePayment(t, gdb, asha, domain.PaymentCollect, 6000, day)
	dbtest.CreatePayment(t, gdb, chitra, domain.PaymentCollect, 1000, day)
	dbtest.CreatePayment(t, gdb, chitra, domain.PaymentDisburse, 2500, day.AddDate(1, 0, 0))
	return admin, leader
}

func TestStats(t *testing.T) {
	gdb := dbtest.New(t)
	admin, _ := seed(t, gdb)
	n := notify.Announcement(admin.ID, admin.ID, "Wedding", "Join us", domain.PriorityHigh)
	require.NoError(t, notify.Create(gdb, &n))

	svc := NewService(gdb, nil, d(5000), time.Minute)
	stats, err := svc.Stats(context.Background(), admin)
	require.NoError(t, err)

	assert.Equal(t, 11000.0, stats.Financials.Collected)
	// Future dated disbursements count too
	assert.Equal(t, 2500.0, stats.Financials.Disbursed)
	assert.Equal(t, 8500.0, stats.Financials.Balance)
	assert.Equal(t, Demographics{Married: 2, Unmarried: 2}, stats.Demographics)
	assert.Equal(t, 15000.0, stats.SystemTarget)

	require.Len(t, stats.Teams, 1)
	assert.Equal(t, 45000.0, stats.Teams[0].Target)
	assert.Equal(t, 10000.0, stats.Teams[0].TotalPaid)
	assert.InDelta(t, 22.2, stats.Teams[0].Progress, 0.1)

	require.Len(t, stats.Announcements, 1)
	assert.Equal(t, "Wedding", stats.Announcements[0].Title)
}

func TestStatsAnnouncementsAreTheViewers(t *testing.T) {
	gdb := dbtest.New(t)
	admin, leader := seed(t, gdb)
	for i := 0; i < 7; i++ {
		n := notify.Announcement(leader.ID, admin.ID, "News", "msg", domain.PriorityLow)
		require.NoError(t, notify.Create(gdb, &n))
	}
	info := domain.Notification{UserID: leader.ID, Title: "info", Message: "x", NotificationType: domain.NotifyInfo, Priority: domain.PriorityLow}
	require.NoError(t, gdb.Create(&info).Error)

	svc := NewService(gdb, nil, d(5000), time.Minute)
	stats, err := svc.Stats(context.Background(), leader)
	require.NoError(t, err)
	assert.Len(t, stats.Announcements, 5)

	stats, err = svc.Stats(context.Background(), admin)
	require.NoError(t, err)
	assert.Empty(t, stats.Announcements)
}

func TestTeams(t *testing.T) {
	gdb := dbtest.New(t)
	seed(t, gdb)

	teams, err := NewService(gdb, nil, d(5000), time.Minute).Teams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, 45000.0, teams[0].TeamTotalTarget)
	assert.Equal(t, 35000.0, teams[0].TeamTotalToCollect)
	assert.Len(t, teams[0].Members, 2)
}

func TestStatsCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	admin, leader := seed(t, gdb)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := NewService(gdb, rdb, d(5000), time.Minute)
	_, err := svc.Stats(ctx, admin)
	require.NoError(t, err)
	assert.True(t, mr.Exists(utils.DashboardStatsKey))

	dbtest.CreatePayment(t, gdb, leader, domain.PaymentCollect, 5000, day)
	stats, err := svc.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 11000.0, stats.Financials.Collected, "served from cache")

	require.NoError(t, svc.Invalidate(ctx))
	stats, err = svc.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 16000.0, stats.Financials.Collected)
}
