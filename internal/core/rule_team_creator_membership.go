package core

import (
	"context"
	"fmt"

	"taskmate/pkg/domain"
)

// NewTeamCreatorMembershipRule warns when a written team does not list its
// creator as a member.
func NewTeamCreatorMembershipRule() domain.Rule {
	return teamCreatorMembershipRule{}
}

type teamCreatorMembershipRule struct{}

func (teamCreatorMembershipRule) Name() string { return "team_creator_membership" }

func (teamCreatorMembershipRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, team := range changedAfter[domain.Team](changes, domain.EntityTeam) {
		if team.CreatedBy == "" || team.HasMember(team.CreatedBy) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "team_creator_membership",
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("team %s creator %s is not a member", team.Name, team.CreatedBy),
			Entity:   domain.EntityTeam,
			EntityID: team.ID,
		})
	}
	return res, nil
}
