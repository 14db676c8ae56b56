package core

import (
	"context"
	"fmt"
	"slices"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"taskmate/pkg/domain"
)

// CreateTeam persists a new team with a fresh join code. The first team
// created becomes the current team.
func (s *Service) CreateTeam(ctx context.Context, team Team) (Team, Result, error) {
	var created Team
	res, err := s.run(ctx, "create_team", func(tx Transaction) (string, error) {
		if err := required("name", team.Name); err != nil {
			return "", err
		}
		first := len(tx.Snapshot().ListTeams()) == 0
		var err error
		created, err = tx.CreateTeam(team)
		if err != nil {
			return "", err
		}
		if first {
			if err := tx.SetCurrentTeam(created.ID); err != nil {
				return created.ID, err
			}
		}
		return created.ID, nil
	})
	return created, res, err
}

// UpdateTeam mutates a team.
func (s *Service) UpdateTeam(ctx context.Context, id string, mutator func(*Team) error) (Team, Result, error) {
	var updated Team
	res, err := s.run(ctx, "update_team", func(tx Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateTeam(id, func(t *Team) error {
			if err := mutator(t); err != nil {
				return err
			}
			return required("name", t.Name)
		})
		return id, err
	})
	return updated, res, err
}

// DeleteTeam removes a team with its projects and tasks, clearing the current
// team when it pointed there.
func (s *Service) DeleteTeam(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_team", func(tx Transaction) (string, error) {
		return id, tx.DeleteTeam(id)
	})
}

// JoinTeamByCode adds userID to the team whose join code matches code and
// makes that team current. Joining a team twice is a no-op besides
// selecting it.
func (s *Service) JoinTeamByCode(ctx context.Context, code, userID string) (Team, Result, error) {
	var joined Team
	res, err := s.run(ctx, "join_team", func(tx Transaction) (string, error) {
		if err := required("userId", userID); err != nil {
			return "", err
		}
		normalized := domain.NormalizeJoinCode(code)
		if normalized == "" {
			return "", ErrNotFound{Entity: EntityTeam, ID: code}
		}
		var match *Team
		for _, t := range tx.Snapshot().ListTeams() {
			if strings.EqualFold(t.JoinCode, normalized) {
				match = &t
				break
			}
		}
		if match == nil {
			return "", ErrNotFound{Entity: EntityTeam, ID: normalized}
		}
		joined = *match
		if !joined.HasMember(userID) {
			var err error
			joined, err = tx.UpdateTeam(joined.ID, func(t *Team) error {
				t.Members = append(t.Members, userID)
				return nil
			})
			if err != nil {
				return joined.ID, err
			}
		}
		return joined.ID, tx.SetCurrentTeam(joined.ID)
	})
	if err != nil {
		return Team{}, res, err
	}
	return joined, res, nil
}

// AddMemberToTeam adds userID to the team and sends them a team_invite
// notification. Adding an existing member changes nothing.
func (s *Service) AddMemberToTeam(ctx context.Context, teamID, userID string) (Team, Result, error) {
	var updated Team
	res, err := s.run(ctx, "add_team_member", func(tx Transaction) (string, error) {
		if err := required("userId", userID); err != nil {
			return teamID, err
		}
		team, ok := tx.FindTeam(teamID)
		if !ok {
			return teamID, ErrNotFound{Entity: EntityTeam, ID: teamID}
		}
		if team.HasMember(userID) {
			updated = team
			return teamID, nil
		}
		var err error
		updated, err = tx.UpdateTeam(teamID, func(t *Team) error {
			t.Members = append(t.Members, userID)
			return nil
		})
		if err != nil {
			return teamID, err
		}
		_, err = tx.CreateNotification(Notification{
			UserID:    userID,
			Type:      domain.NotificationTeamInvite,
			Title:     "Team invitation",
			Message:   fmt.Sprintf("You were added to %s", team.Name),
			RelatedID: teamID,
		})
		return teamID, err
	})
	return updated, res, err
}

// RemoveMemberFromTeam drops userID from the team's members.
func (s *Service) RemoveMemberFromTeam(ctx context.Context, teamID, userID string) (Team, Result, error) {
	var updated Team
	res, err := s.run(ctx, "remove_team_member", func(tx Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateTeam(teamID, func(t *Team) error {
			t.Members = slices.DeleteFunc(t.Members, func(m string) bool { return m == userID })
			return nil
		})
		return teamID, err
	})
	return updated, res, err
}

// SetCurrentTeam selects the active team. An empty id clears the selection.
func (s *Service) SetCurrentTeam(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "set_current_team", func(tx Transaction) (string, error) {
		return id, tx.SetCurrentTeam(id)
	})
}

// CurrentTeam returns the selected team, if any.
func (s *Service) CurrentTeam(ctx context.Context) (Team, bool, error) {
	var (
		team Team
		ok   bool
	)
	err := s.view(ctx, func(v TransactionView) error {
		if id := v.CurrentTeamID(); id != "" {
			team, ok = v.FindTeam(id)
		}
		return nil
	})
	return team, ok, err
}

// TeamInviteQR renders the team's join code as a PNG QR code of size pixels.
func (s *Service) TeamInviteQR(ctx context.Context, teamID string, size int) ([]byte, error) {
	code, err := s.joinCode(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode invite qr: %w", err)
	}
	return png, nil
}

// TeamInviteQRText renders the team's join code as a terminal QR code.
func (s *Service) TeamInviteQRText(ctx context.Context, teamID string) (string, error) {
	code, err := s.joinCode(ctx, teamID)
	if err != nil {
		return "", err
	}
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode invite qr: %w", err)
	}
	return q.ToSmallString(false), nil
}

func (s *Service) joinCode(ctx context.Context, teamID string) (string, error) {
	var code string
	err := s.view(ctx, func(v TransactionView) error {
		team, ok := v.FindTeam(teamID)
		if !ok {
			return ErrNotFound{Entity: EntityTeam, ID: teamID}
		}
		code = team.JoinCode
		return nil
	})
	return code, err
}
