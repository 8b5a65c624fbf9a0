package moderator

import (
	"errors"
	"fmt"
	"strings"

	"resistance-moderator/internal/game"
	"resistance-moderator/internal/ids"
	"resistance-moderator/internal/protocol"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var ErrInvalidRequest = errors.New("invalid_request")

// Candidate is one roster entry; Human seats get the longer reply deadline.
type Candidate struct {
	Name  string `json:"name" validate:"required,excludesall=#"`
	Human bool   `json:"human"`
}

func (c Candidate) String() string {
	if c.Human {
		return protocol.HumanTag + c.Name
	}
	return c.Name
}

// MatchRequest is a resolved PLAY directive: Roster always holds exactly
// five seats once Resolve succeeded.
type MatchRequest struct {
	ID        string      `json:"id" validate:"required"`
	Count     int         `json:"count" validate:"min=1,max=10000"`
	Requested []string    `json:"requested" validate:"min=1,dive,required"`
	Roster    []Candidate `json:"roster" validate:"len=5,dive"`
}

// RosterError rejects a request whose candidates cannot form a table.
type RosterError struct {
	Missing []string
	Known   []string
	Reason  string
}

func (e *RosterError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s was not found in [%s]", strings.Join(e.Missing, " "), strings.Join(e.Known, ", "))
	}
	return e.Reason
}

// Report renders an error for the lobby channel.
func Report(err error) string {
	var re *RosterError
	if errors.As(err, &re) {
		return "ERROR. " + re.Error() + "."
	}
	return "ERROR. " + err.Error() + "."
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Resolve turns the body of a PLAY directive into a match request against
// the live roster. Untagged candidates must be present in the lobby.
func Resolve(text string, competitors *Competitors) (MatchRequest, error) {
	count, tokens, err := protocol.ParsePlay(text)
	if err != nil {
		return MatchRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if len(tokens) == 0 {
		return MatchRequest{}, fmt.Errorf("%w: no candidates", ErrInvalidRequest)
	}
	candidates := lo.Map(tokens, func(tok string, _ int) Candidate {
		return Candidate{Name: protocol.StripTag(tok), Human: protocol.IsHuman(tok)}
	})
	bots := lo.FilterMap(candidates, func(c Candidate, _ int) (Candidate, bool) {
		return c, !c.Human
	})
	if missing := competitors.Missing(lo.Map(bots, func(c Candidate, _ int) string { return c.Name })); len(missing) > 0 {
		return MatchRequest{}, &RosterError{Missing: missing, Known: competitors.List()}
	}

	roster, err := fillRoster(candidates, bots)
	if err != nil {
		return MatchRequest{}, err
	}
	req := MatchRequest{
		ID:        ids.Prefixed("match"),
		Count:     count,
		Requested: tokens,
		Roster:    roster,
	}
	if err := validate.Struct(req); err != nil {
		return MatchRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return req, nil
}

// fillRoster pads short rosters with the requested bots, without repeats
// inside one pass, and samples five seats out of longer ones.
func fillRoster(candidates, bots []Candidate) ([]Candidate, error) {
	roster := append([]Candidate(nil), candidates...)
	for len(roster) < game.NumPlayers {
		if len(bots) == 0 {
			return nil, &RosterError{Reason: fmt.Sprintf("need %d players but only %d were named and none are bots", game.NumPlayers, len(roster))}
		}
		need := min(game.NumPlayers-len(roster), len(bots))
		roster = append(roster, lo.Samples(bots, need)...)
	}
	if len(roster) > game.NumPlayers {
		roster = lo.Samples(roster, game.NumPlayers)
	}
	return roster, nil
}

// Announce is the lobby line confirming a request.
func (r MatchRequest) Announce() string {
	return fmt.Sprintf("PLAYING %s!", strings.Join(r.Requested, " "))
}

func (r MatchRequest) Names() []string {
	return lo.Map(r.Roster, func(c Candidate, _ int) string { return c.Name })
}
