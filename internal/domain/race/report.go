package race

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Report is a finished-race report as sent by the game client. Players are expected in
// finishing order; ranks are derived from that order.
type Report struct {
	Mode    Mode           `json:"mode"`
	Track   NamedRef       `json:"track"`
	Players []PlayerResult `json:"players"`
}

// PlayerResult is one entry of a report. ID is the external user id and is empty for bots
// that have no account.
type PlayerResult struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Character NamedRef `json:"character"`
	Kart      NamedRef `json:"kart"`
	Wheel     NamedRef `json:"wheel"`
	Glider    NamedRef `json:"glider"`
	Position  int      `json:"position"`
	Stats     Stats    `json:"stats"`
}

// Choices flattens the four equipment references.
func (p PlayerResult) Choices() Choices {
	return Choices{
		Character: p.Character.Name,
		Kart:      p.Kart.Name,
		Wheel:     p.Wheel.Name,
		Glider:    p.Glider.Name,
	}
}

// ExternalUserID returns nil when the player has no user id.
func (p PlayerResult) ExternalUserID() *string {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return nil
	}
	return &id
}

// NamedRef is a `{ "name": ... }` catalog reference. Older clients send a bare string or
// the Portuguese "Nome" key; both decode to the same value.
type NamedRef struct {
	Name string `json:"name"`
}

func (r *NamedRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = NamedRef{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = NamedRef{Name: s}
		return nil
	}
	var raw struct {
		Name string `json:"name"`
		Nome string `json:"Nome"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	name := raw.Name
	if name == "" {
		name = raw.Nome
	}
	*r = NamedRef{Name: name}
	return nil
}

// Stats are the aggregate weight/speed/acceleration totals of a runner's build.
type Stats struct {
	WeightTotal int `json:"weightTotal"`
	SpeedTotal  int `json:"speedTotal"`
	AccelTotal  int `json:"accelTotal"`
}

// UnmarshalJSON also accepts the legacy peso_total/velocidade/aceleracao keys.
func (s *Stats) UnmarshalJSON(b []byte) error {
	var raw struct {
		WeightTotal *int `json:"weightTotal"`
		SpeedTotal  *int `json:"speedTotal"`
		AccelTotal  *int `json:"accelTotal"`
		PesoTotal   *int `json:"peso_total"`
		Velocidade  *int `json:"velocidade"`
		Aceleracao  *int `json:"aceleracao"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = Stats{
		WeightTotal: firstInt(raw.WeightTotal, raw.PesoTotal),
		SpeedTotal:  firstInt(raw.SpeedTotal, raw.Velocidade),
		AccelTotal:  firstInt(raw.AccelTotal, raw.Aceleracao),
	}
	return nil
}

func firstInt(vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}
