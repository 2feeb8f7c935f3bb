package dashboard

import (
	"context" // Request scoped cancellation
	"time"    // Cache TTL and timestamps

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/utils"  // Redis cache helpers

	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Fixed-precision amounts
	"github.com/sirupsen/logrus"    // Logging library
	"golang.org/x/sync/errgroup"    // Concurrent loads
	"gorm.io/gorm"                  // GORM ORM library
)

// Financials summarizes the pool
type Financials struct {
	Balance   float64 `json:"balance"`
	Collected float64 `json:"collected"`
	Disbursed float64 `json:"disbursed"`
}

// Demographics counts non-admin users by marital status
type Demographics struct {
	Married   int `json:"married"`
	Unmarried int `json:"unmarried"`
}

// Announcement is a recent ANNOUNCEMENT or WEDDING notification of the viewer
type Announcement struct {
	ID               uint      `json:"id"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	NotificationType string    `json:"notification_type"`
	Priority         string    `json:"priority"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
}

// Aggregate is the viewer independent part of the stats, cached as a whole
type Aggregate struct {
	Financials   Financials    `json:"financials"`
	Demographics Demographics  `json:"demographics"`
	Teams        []TeamRanking `json:"teams"`
	SystemTarget float64       `json:"system_target"`
}

// Stats is the /api/dashboard/stats/ payload
type Stats struct {
	Aggregate
	Announcements []Announcement `json:"announcements"`
}

// Service loads dashboard views from the database with a Redis read-through cache
type Service struct {
	db        *gorm.DB
	rdb       *redis.Client
	perMember decimal.Decimal
	ttl       time.Duration
}

// NewService creates a dashboard Service; a nil Redis client disables caching
func NewService(db *gorm.DB, rdb *redis.Client, perMember decimal.Decimal, ttl time.Duration) *Service {
	return &Service{db: db, rdb: rdb, perMember: perMember, ttl: ttl}
}

// ledgerTotals is the payment side of a snapshot
type ledgerTotals struct {
	paid      map[uint]decimal.Decimal
	collected decimal.Decimal
	disbursed decimal.Decimal
}

// loadMembers reads the roster
func (s *Service) loadMembers(ctx context.Context) ([]Member, error) {
	var users []domain.User
	err := s.db.WithContext(ctx).
		Select("id", "username", "first_name", "last_name", "role", "marital_status", "responsible_member_id", "assigned_monthly_amount").
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	members := make([]Member, len(users))
	for i, u := range users {
		members[i] = Member{
			ID:             u.ID,
			Name:           u.DisplayName(),
			Username:       u.Username,
			Role:           u.Role,
			MaritalStatus:  u.MaritalStatus,
			LeaderID:       u.ResponsibleMemberID,
			AssignedTarget: u.AssignedMonthlyAmount,
		}
	}
	return members, nil
}

// loadTotals sums payments per user in Go so decimal precision is kept
func (s *Service) loadTotals(ctx context.Context) (*ledgerTotals, error) {
	var rows []struct {
		UserID          uint
		Amount          decimal.Decimal
		TransactionType string
	}
	err := s.db.WithContext(ctx).Model(&domain.Payment{}).
		Select("user_id", "amount", "transaction_type").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	t := &ledgerTotals{paid: make(map[uint]decimal.Decimal), collected: decimal.Zero, disbursed: decimal.Zero}
	for _, r := range rows {
		switch r.TransactionType {
		case domain.PaymentCollect:
			t.collected = t.collected.Add(r.Amount)
			t.paid[r.UserID] = t.paid[r.UserID].Add(r.Amount)
		case domain.PaymentDisburse:
			t.disbursed = t.disbursed.Add(r.Amount)
		}
	}
	return t, nil
}

// loadAnnouncements reads the viewer's five latest announcements
func (s *Service) loadAnnouncements(ctx context.Context, viewer *domain.User) ([]Announcement, error) {
	var rows []domain.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND notification_type IN ?", viewer.ID, []string{domain.NotifyAnnouncement, domain.NotifyWedding}).
		Order("created_at DESC, id DESC").
		Limit(5).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Announcement, len(rows))
	for i, n := range rows {
		out[i] = Announcement{
			ID:               n.ID,
			Title:            n.Title,
			Message:          n.Message,
			NotificationType: n.NotificationType,
			Priority:         n.Priority,
			IsRead:           n.IsRead,
			CreatedAt:        n.CreatedAt,
		}
	}
	return out, nil
}

// snapshot loads the roster and the payment totals concurrently
func (s *Service) snapshot(ctx context.Context) (Snapshot, *ledgerTotals, error) {
	var (
		members []Member
		totals  *ledgerTotals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.loadMembers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.loadTotals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, nil, err
	}
	return Snapshot{Members: members, Paid: totals.paid}, totals, nil
}

// aggregate computes the viewer independent stats
func (s *Service) aggregate(ctx context.Context) (*Aggregate, error) {
	var cached Aggregate
	if found, err := utils.GetCache(ctx, s.rdb, utils.DashboardStatsKey, &cached); err == nil && found {
		return &cached, nil
	} else if err != nil {
		logrus.WithError(err).Warn("Dashboard cache read failed")
	}

	snap, totals, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	individual := IndividualTarget(snap.nonAdmins(), s.perMember)
	agg := &Aggregate{
		Financials: Financials{
			Balance:   totals.collected.Sub(totals.disbursed).InexactFloat64(),
			Collected: totals.collected.InexactFloat64(),
			Disbursed: totals.disbursed.InexactFloat64(),
		},
		Teams:        TeamRankings(snap, individual),
		SystemTarget: individual.InexactFloat64(),
	}
	for _, m := range snap.Members {
		if m.Role == domain.RoleAdmin {
			continue
		}
		switch m.MaritalStatus {
		case domain.MaritalMarried:
			agg.Demographics.Married++
		case domain.MaritalUnmarried:
			agg.Demographics.Unmarried++
		}
	}
	if err := utils.SetCache(ctx, s.rdb, utils.DashboardStatsKey, agg, s.ttl); err != nil {
		logrus.WithError(err).Warn("Dashboard cache write failed")
	}
	return agg, nil
}

// Stats returns the dashboard snapshot for viewer
func (s *Service) Stats(ctx context.Context, viewer *domain.User) (*Stats, error) {
	var (
		agg           *Aggregate
		announcements []Announcement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agg, err = s.aggregate(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		announcements, err = s.loadAnnouncements(gctx, viewer)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Stats{Aggregate: *agg, Announcements: announcements}, nil
}

// Teams returns the detailed team structure
func (s *Service) Teams(ctx context.Context) ([]Team, error) {
	var cached []Team
	if found, err := utils.GetCache(ctx, s.rdb, utils.DashboardTeamsKey, &cached); err == nil && found {
		return cached, nil
	} else if err != nil {
		logrus.WithError(err).Warn("Dashboard cache read failed")
	}
	snap, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	teams := TeamStructure(snap, IndividualTarget(snap.nonAdmins(), s.perMember))
	if err := utils.SetCache(ctx, s.rdb, utils.DashboardTeamsKey, teams, s.ttl); err != nil {
		logrus.WithError(err).Warn("Dashboard cache write failed")
	}
	return teams, nil
}

// Invalidate drops every cached dashboard view
func (s *Service) Invalidate(ctx context.Context) error {
	return utils.DeletePrefix(ctx, s.rdb, utils.DashboardPrefix)
}
