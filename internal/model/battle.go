package model

import "encoding/json"

type MoveCategory string

const (
	CategoryPhysical MoveCategory = "Physical"
	CategorySpecial  MoveCategory = "Special"
	CategoryStatus   MoveCategory = "Status"
)

type BaseStats struct {
	HP      int `json:"hp"`
	Attack  int `json:"attack"`
	SpAtk   int `json:"spAtk"`
	Defence int `json:"defence"`
	SpDef   int `json:"spDef"`
	Speed   int `json:"speed"`
}

// Pokemon is a species resolved from reference data for a single request.
type Pokemon struct {
	ID    int       `json:"id"`
	Name  string    `json:"name"`
	Stats BaseStats `json:"stats"`
	Types []string  `json:"types"`
}

type Move struct {
	Code     string       `json:"code"`
	Name     string       `json:"name"`
	Power    *int         `json:"power"`
	Accuracy *int         `json:"accuracy"`
	Category MoveCategory `json:"category"`
	Type     string       `json:"type"`
}

// TypeChart lists the defending types an attacking type hits for double
// (Strengths) and for half (Weaknesses) damage.
type TypeChart struct {
	Name       string
	Strengths  []string
	Weaknesses []string
}

type DamageRequest struct {
	Attacker string      `json:"attacker"`
	Defender string      `json:"defender"`
	Move     string      `json:"move"`
	Level    json.Number `json:"level"`
}

type DamageBreakdown struct {
	BaseDamage     int          `json:"baseDamage"`
	STAB           float64      `json:"stab"`
	TypeMultiplier float64      `json:"typeMultiplier"`
	Category       MoveCategory `json:"category"`
	MoveType       string       `json:"moveType"`
}

type DamageResult struct {
	Damage  int             `json:"damage"`
	Details DamageBreakdown `json:"details"`
}
