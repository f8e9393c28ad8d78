package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"pokeguide-backend/internal/metrics"
	"pokeguide-backend/internal/model"
	"pokeguide-backend/internal/repository"
	"pokeguide-backend/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	maxLookupNameLength = 100
	minLevel            = 1
	maxLevel            = 100
)

// PokedexStore resolves reference data by key. Results are not cached:
// every calculation reads current values.
type PokedexStore interface {
	GetPokemonByName(ctx context.Context, name string) (*model.Pokemon, error)
	GetMoveByName(ctx context.Context, name string) (*model.Move, error)
	GetTypeChart(ctx context.Context, typeName string) (*model.TypeChart, error)
	KnowsMove(ctx context.Context, pokemonID int, moveCode string) (bool, error)
}

type DamageService struct {
	pokedex PokedexStore
	log     *zap.Logger
}

func NewDamageService(pokedex PokedexStore, log *zap.Logger) *DamageService {
	return &DamageService{pokedex: pokedex, log: log}
}

// Compute validates req against reference data and returns the expected
// (non-random) damage of the move.
func (s *DamageService) Compute(ctx context.Context, req *model.DamageRequest) (*model.DamageResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.damage.compute",
		attribute.String("attacker", req.Attacker),
		attribute.String("defender", req.Defender),
		attribute.String("move", req.Move),
	)
	defer span.End()

	res, err := s.compute(ctx, req)
	switch {
	case err == nil:
		metrics.DamageCalculations.WithLabelValues(metrics.OutcomeSuccess).Inc()
	case errors.Is(err, ErrDataIntegrity):
		span.RecordError(err)
		metrics.DamageCalculations.WithLabelValues("integrity_error").Inc()
		s.log.Error("damage calculation hit bad reference data", zap.Error(err))
	default:
		metrics.DamageCalculations.WithLabelValues(metrics.OutcomeFailure).Inc()
	}
	return res, err
}

func (s *DamageService) compute(ctx context.Context, req *model.DamageRequest) (*model.DamageResult, error) {
	attackerName := strings.TrimSpace(req.Attacker)
	defenderName := strings.TrimSpace(req.Defender)
	moveName := strings.TrimSpace(req.Move)

	for _, f := range []struct{ field, value string }{
		{"attacker", attackerName},
		{"defender", defenderName},
		{"move", moveName},
	} {
		if f.value == "" {
			return nil, invalid(f.field + " is required")
		}
		if utf8.RuneCountInString(f.value) > maxLookupNameLength {
			return nil, invalid(fmt.Sprintf("%s must be at most %d characters", f.field, maxLookupNameLength))
		}
	}

	level, err := parseLevel(req.Level.String())
	if err != nil {
		return nil, err
	}

	attacker, err := s.pokedex.GetPokemonByName(ctx, attackerName)
	if err != nil {
		return nil, lookupError(err, "attacker pokemon not found")
	}
	defender, err := s.pokedex.GetPokemonByName(ctx, defenderName)
	if err != nil {
		return nil, lookupError(err, "defender pokemon not found")
	}
	move, err := s.pokedex.GetMoveByName(ctx, moveName)
	if err != nil {
		return nil, lookupError(err, "move not found")
	}
	if move.Power == nil || *move.Power <= 0 {
		return nil, invalid("move has no power; status moves deal no damage")
	}

	offense, defense, ok := BattleStats(move.Category, attacker.Stats, defender.Stats)
	if !ok {
		return nil, fmt.Errorf("%w: move %s has category %q", ErrDataIntegrity, move.Code, move.Category)
	}

	known, err := s.pokedex.KnowsMove(ctx, attacker.ID, move.Code)
	if err != nil {
		return nil, fmt.Errorf("check learnset: %w", err)
	}
	if !known {
		return nil, invalid(fmt.Sprintf("%s cannot learn %s", attacker.Name, move.Name))
	}

	chart, err := s.pokedex.GetTypeChart(ctx, move.Type)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: move %s has unknown type %q", ErrDataIntegrity, move.Code, move.Type)
		}
		return nil, fmt.Errorf("load type chart: %w", err)
	}

	mult := TypeMultiplier(chart, defender.Types)
	stab := SameTypeBonus(move.Type, attacker.Types)
	base := BaseDamage(level, *move.Power, offense, defense)

	return &model.DamageResult{
		Damage: FinalDamage(base, stab, mult),
		Details: model.DamageBreakdown{
			BaseDamage:     int(math.Floor(base)),
			STAB:           stab,
			TypeMultiplier: mult,
			Category:       move.Category,
			MoveType:       move.Type,
		},
	}, nil
}

func parseLevel(raw string) (int, error) {
	if raw == "" {
		return 0, invalid("level is required")
	}
	level, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("level must be a whole number")
	}
	if level < minLevel || level > maxLevel {
		return 0, invalid(fmt.Sprintf("level must be between %d and %d", minLevel, maxLevel))
	}
	return level, nil
}

func lookupError(err error, reason string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return invalid(reason)
	}
	return err
}
