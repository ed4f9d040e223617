package delegation

import (
	"errors"
	"fmt"
	"strings"
)

// Level identifies an approval authority. Values are ordered by rank.
type Level int

const (
	Branch Level = iota
	Zone
	CommercialPole
	RiskPole
	DeputyGeneralManager
	Committee
)

// ErrUnknownLevel is returned when a level code cannot be parsed.
var ErrUnknownLevel = errors.New("unknown approval level")

// LevelInfo is the display metadata attached to a level.
type LevelInfo struct {
	Level   Level   `json:"-"`
	Code    string  `json:"code"`
	Label   string  `json:"label"`
	Ceiling string  `json:"ceiling"`
	Limit   float64 `json:"limit"`
	Circuit string  `json:"circuit"`
}

var levelTable = [...]LevelInfo{
	Branch: {
		Level:   Branch,
		Code:    "DA",
		Label:   "Branch Manager (DA)",
		Ceiling: "100 kDT",
		Limit:   100,
		Circuit: "CC DA → Risk Analyst",
	},
	Zone: {
		Level:   Zone,
		Code:    "DZ",
		Label:   "Zone Director (DZ)",
		Ceiling: "200 kDT",
		Limit:   200,
		Circuit: "CC DA → DZ Risk Analyst",
	},
	CommercialPole: {
		Level:   CommercialPole,
		Code:    "CPC",
		Label:   "Commercial Pole Head (CPC)",
		Ceiling: "300 kDT (revolving)",
		Limit:   300,
		Circuit: "CC DA → DZ Risk Analyst → CPC",
	},
	RiskPole: {
		Level:   RiskPole,
		Code:    "CPR",
		Label:   "Risk Pole Head (CPR)",
		Ceiling: "650 kDT",
		Limit:   650,
		Circuit: "CC DA → DZ Risk Analyst → CPC → CPR",
	},
	DeputyGeneralManager: {
		Level:   DeputyGeneralManager,
		Code:    "DGA",
		Label:   "Deputy General Manager (DGA)",
		Ceiling: "800 kDT",
		Limit:   800,
		Circuit: "CC DA → ... → CPR → DGA",
	},
	Committee: {
		Level:   Committee,
		Code:    "COMITE",
		Label:   "Financing Committee / General Management",
		Ceiling: "> 800 kDT",
		Circuit: "Chaired by the DGA (below 2 MDT) or the DG",
	},
}

// Levels returns the metadata of every level, lowest rank first.
func Levels() []LevelInfo {
	out := make([]LevelInfo, len(levelTable))
	copy(out, levelTable[:])
	return out
}

// Valid reports whether l is one of the six known levels.
func (l Level) Valid() bool {
	return l >= Branch && l <= Committee
}

// Info returns the display metadata for the level.
func (l Level) Info() LevelInfo {
	if !l.Valid() {
		panic(fmt.Sprintf("delegation: unknown level %d", int(l)))
	}
	return levelTable[l]
}

// Code returns the short organisational code (DA, DZ, ...).
func (l Level) Code() string {
	return l.Info().Code
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelTable[l].Code
}

// MarshalText encodes the level as its code.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, int(l))
	}
	return []byte(levelTable[l].Code), nil
}

// UnmarshalText decodes a level code.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel resolves a level from its code, case-insensitively.
// "COMMITTEE" is accepted as a synonym for COMITE.
func ParseLevel(value string) (Level, error) {
	code := strings.ToUpper(strings.TrimSpace(value))
	if code == "COMMITTEE" {
		return Committee, nil
	}
	for _, info := range levelTable {
		if info.Code == code {
			return info.Level, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, value)
}
