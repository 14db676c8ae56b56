package core

import (
	"context"
	"fmt"

	"taskmate/pkg/domain"
)

// NewJoinCodeFormatRule blocks teams whose join code is not 8 characters of
// the join code alphabet.
func NewJoinCodeFormatRule() domain.Rule {
	return joinCodeFormatRule{}
}

type joinCodeFormatRule struct{}

func (joinCodeFormatRule) Name() string { return "join_code_format" }

func (joinCodeFormatRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, team := range changedAfter[domain.Team](changes, domain.EntityTeam) {
		if domain.ValidJoinCode(team.JoinCode) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "join_code_format",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("team %s has malformed join code %q", team.ID, team.JoinCode),
			Entity:   domain.EntityTeam,
			EntityID: team.ID,
		})
	}
	return res, nil
}

// NewJoinCodeUniqueRule blocks two teams sharing a join code.
func NewJoinCodeUniqueRule() domain.Rule {
	return joinCodeUniqueRule{}
}

type joinCodeUniqueRule struct{}

func (joinCodeUniqueRule) Name() string { return "join_code_unique" }

func (joinCodeUniqueRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	written := changedAfter[domain.Team](changes, domain.EntityTeam)
	if len(written) == 0 {
		return res, nil
	}
	owners := map[string][]string{}
	for _, team := range view.ListTeams() {
		owners[team.JoinCode] = append(owners[team.JoinCode], team.ID)
	}
	for _, team := range written {
		if len(owners[team.JoinCode]) < 2 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "join_code_unique",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("join code %s is shared by teams %v", team.JoinCode, owners[team.JoinCode]),
			Entity:   domain.EntityTeam,
			EntityID: team.ID,
		})
	}
	return res, nil
}
