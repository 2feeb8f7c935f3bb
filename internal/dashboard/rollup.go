// Package dashboard computes the read-only reporting views over the payment
// ledger: balance, demographics, team rankings and the team structure.
package dashboard

import (
	"sort" // Ranking order

	"cbms_backend/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Fixed-precision amounts
)

var hundred = decimal.NewFromInt(100)

// Member is the roster slice the rollups need
type Member struct {
	ID             uint
	Name           string // Full name, or username when unset
	Username       string
	Role           string
	MaritalStatus  string
	LeaderID       *uint
	AssignedTarget decimal.Decimal // assigned_monthly_amount
}

// Snapshot is the roster plus each user's COLLECT total
type Snapshot struct {
	Members []Member
	Paid    map[uint]decimal.Decimal
}

func (s Snapshot) paid(id uint) decimal.Decimal {
	if p, ok := s.Paid[id]; ok {
		return p
	}
	return decimal.Zero
}

// nonAdmins counts members that are not admins
func (s Snapshot) nonAdmins() int {
	n := 0
	for _, m := range s.Members {
		if m.Role != domain.RoleAdmin {
			n++
		}
	}
	return n
}

// downlines groups members by leader, dropping self loops. Leaders head their
// own team and never count inside another one.
func (s Snapshot) downlines() map[uint][]Member {
	teams := make(map[uint][]Member)
	for _, m := range s.Members {
		if m.LeaderID == nil || *m.LeaderID == m.ID || m.Role == domain.RoleResponsibleMember {
			continue
		}
		teams[*m.LeaderID] = append(teams[*m.LeaderID], m)
	}
	return teams
}

func (s Snapshot) leaders() []Member {
	var out []Member
	for _, m := range s.Members {
		if m.Role == domain.RoleResponsibleMember {
			out = append(out, m)
		}
	}
	return out
}

// IndividualTarget is (nonAdmins - 1) x perMember, or zero for one member or fewer
func IndividualTarget(nonAdmins int, perMember decimal.Decimal) decimal.Decimal {
	if nonAdmins <= 1 {
		return decimal.Zero
	}
	return perMember.Mul(decimal.NewFromInt(int64(nonAdmins - 1)))
}

// Progress is paid/target as a percentage, 0 when the target is not positive
func Progress(paid, target decimal.Decimal) float64 {
	if !target.IsPositive() {
		return 0
	}
	return paid.Div(target).Mul(hundred).InexactFloat64()
}

// TeamRanking is one leader's row in the dashboard rankings
type TeamRanking struct {
	LeaderID    uint    `json:"leader_id"`
	LeaderName  string  `json:"leader_name"`
	MemberCount int     `json:"member_count"` // Leader included
	TotalPaid   float64 `json:"total_paid"`
	Target      float64 `json:"target"`
	Progress    float64 `json:"progress"`
}

// TeamRankings rolls personal and downline COLLECT totals up per leader, sorted by total paid
func TeamRankings(s Snapshot, individual decimal.Decimal) []TeamRanking {
	teams := s.downlines()
	type row struct {
		TeamRanking
		paid decimal.Decimal
	}
	var rows []row
	for _, leader := range s.leaders() {
		members := teams[leader.ID]
		paid := s.paid(leader.ID)
		for _, m := range members {
			paid = paid.Add(s.paid(m.ID))
		}
		size := len(members) + 1
		target := individual.Mul(decimal.NewFromInt(int64(size)))
		rows = append(rows, row{
			TeamRanking: TeamRanking{
				LeaderID:    leader.ID,
				LeaderName:  leader.Name,
				MemberCount: size,
				TotalPaid:   paid.InexactFloat64(),
				Target:      target.InexactFloat64(),
				Progress:    Progress(paid, target),
			},
			paid: paid,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].paid.GreaterThan(rows[j].paid) })
	out := make([]TeamRanking, len(rows))
	for i, r := range rows {
		out[i] = r.TeamRanking
	}
	return out
}

// MemberProgress is one member's line in the team structure
type MemberProgress struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	Username      string  `json:"username"`
	MaritalStatus string  `json:"marital_status"`
	TotalPaid     float64 `json:"total_paid"`
	Target        float64 `json:"target"`
	Progress      float64 `json:"progress"`
}

// LeaderInfo identifies the leader of a team
type LeaderInfo struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	MaritalStatus string `json:"marital_status"`
}

// Team is one leader's detailed rollup
type Team struct {
	Leader               LeaderInfo       `json:"responsible_member"`
	LeaderTotalPaid      float64          `json:"leaderTotalPaid"`
	LeaderTotalTarget    float64          `json:"leaderTotalTarget"`
	TeamMembersTotalPaid float64          `json:"teamMembersTotalPaid"`
	TeamTotalPaid        float64          `json:"teamTotalPaid"`
	TeamTotalTarget      float64          `json:"teamTotalTarget"`
	TeamTotalToCollect   float64          `json:"teamTotalToCollect"`
	TeamProgress         float64          `json:"teamProgress"`
	Members              []MemberProgress `json:"members"`
}

// memberTarget prefers an explicit assigned amount over the individual target
func memberTarget(m Member, individual decimal.Decimal) decimal.Decimal {
	if m.AssignedTarget.IsPositive() {
		return m.AssignedTarget
	}
	return individual
}

// TeamStructure details every team member's progress, sorted by team paid
func TeamStructure(s Snapshot, individual decimal.Decimal) []Team {
	teams := s.downlines()
	type row struct {
		Team
		paid decimal.Decimal
	}
	var rows []row
	for _, leader := range s.leaders() {
		leaderPaid := s.paid(leader.ID)
		leaderTarget := memberTarget(leader, individual)
		membersPaid := decimal.Zero
		teamTarget := leaderTarget
		members := make([]MemberProgress, 0, len(teams[leader.ID]))
		for _, m := range teams[leader.ID] {
			paid := s.paid(m.ID)
			target := memberTarget(m, individual)
			membersPaid = membersPaid.Add(paid)
			teamTarget = teamTarget.Add(target)
			members = append(members, MemberProgress{
				ID:            m.ID,
				Name:          m.Name,
				Username:      m.Username,
				MaritalStatus: m.MaritalStatus,
				TotalPaid:     paid.InexactFloat64(),
				Target:        target.InexactFloat64(),
				Progress:      Progress(paid, target),
			})
		}
		teamPaid := leaderPaid.Add(membersPaid)
		toCollect := decimal.Max(decimal.Zero, teamTarget.Sub(teamPaid))
		rows = append(rows, row{
			Team: Team{
				Leader:               LeaderInfo{ID: leader.ID, Name: leader.Name, MaritalStatus: leader.MaritalStatus},
				LeaderTotalPaid:      leaderPaid.InexactFloat64(),
				LeaderTotalTarget:    leaderTarget.InexactFloat64(),
				TeamMembersTotalPaid: membersPaid.InexactFloat64(),
				TeamTotalPaid:        teamPaid.InexactFloat64(),
				TeamTotalTarget:      teamTarget.InexactFloat64(),
				TeamTotalToCollect:   toCollect.InexactFloat64(),
				TeamProgress:         Progress(teamPaid, teamTarget),
				Members:              members,
			},
			paid: teamPaid,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].paid.GreaterThan(rows[j].paid) })
	out := make([]Team, len(rows))
	for i, r := range rows {
		out[i] = r.Team
	}
	return out
}
