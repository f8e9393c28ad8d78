package service

import (
	"math"
	"strings"

	"pokeguide-backend/internal/model"
)

const (
	superEffective   = 2.0
	notVeryEffective = 0.5
	stabBonus        = 1.5
)

// TypeMultiplier composes the effectiveness of an attacking type against every
// distinct defending type: x2 per strength hit, x0.5 per weakness hit.
func TypeMultiplier(chart *model.TypeChart, defenderTypes []string) float64 {
	mult := 1.0
	for _, t := range uniqueTypes(defenderTypes) {
		if containsType(chart.Strengths, t) {
			mult *= superEffective
		}
		if containsType(chart.Weaknesses, t) {
			mult *= notVeryEffective
		}
	}
	return mult
}

func SameTypeBonus(moveType string, attackerTypes []string) float64 {
	if containsType(attackerTypes, moveType) {
		return stabBonus
	}
	return 1.0
}

// BattleStats picks the offensive and defensive stat for a damaging category.
// The defensive stat is never below 1. ok is false for non-damaging categories.
func BattleStats(category model.MoveCategory, attacker, defender model.BaseStats) (offense, defense int, ok bool) {
	switch category {
	case model.CategoryPhysical:
		offense, defense = attacker.Attack, defender.Defence
	case model.CategorySpecial:
		offense, defense = attacker.SpAtk, defender.SpDef
	default:
		return 0, 0, false
	}
	if defense < 1 {
		defense = 1
	}
	return offense, defense, true
}

// BaseDamage is the level/power/stat part of the formula before modifiers.
func BaseDamage(level, power, offense, defense int) float64 {
	levelFactor := 2*float64(level)/5 + 2
	return levelFactor*float64(power)*float64(offense)/float64(defense)/50 + 2
}

// FinalDamage applies STAB and type effectiveness and floors the result.
func FinalDamage(base, stab, typeMultiplier float64) int {
	return int(math.Floor(base * stab * typeMultiplier))
}

func uniqueTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if t == "" || containsType(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func containsType(types []string, t string) bool {
	for _, candidate := range types {
		if strings.EqualFold(candidate, t) {
			return true
		}
	}
	return false
}
