package repository

import (
	"context"

	"pokeguide-backend/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PokedexRepository reads immutable reference data. Lookups by name are
// case-insensitive.
type PokedexRepository struct {
	pool *pgxpool.Pool
}

func NewPokedexRepository(pool *pgxpool.Pool) *PokedexRepository {
	return &PokedexRepository{pool: pool}
}

func (r *PokedexRepository) GetPokemonByName(ctx context.Context, name string) (*model.Pokemon, error) {
	p := &model.Pokemon{}
	err := r.pool.QueryRow(ctx, `
		SELECT p.id, p.name, p.hp, p.attack, p.defence, p.sp_atk, p.sp_def, p.speed,
		       COALESCE(ARRAY_AGG(pt.type_name ORDER BY pt.slot) FILTER (WHERE pt.type_name IS NOT NULL), '{}')
		FROM pokemon p
		LEFT JOIN pokemon_types pt ON pt.pokemon_id = p.id
		WHERE LOWER(p.name) = LOWER($1)
		GROUP BY p.id
	`, name).Scan(
		&p.ID, &p.Name, &p.Stats.HP, &p.Stats.Attack, &p.Stats.Defence,
		&p.Stats.SpAtk, &p.Stats.SpDef, &p.Stats.Speed, &p.Types,
	)
	if err != nil {
		return nil, notFound("repository.pokedex.GetPokemonByName", err)
	}
	return p, nil
}

// GetMoveByName matches either the display name ("Thunderbolt") or the code ("thunderbolt").
func (r *PokedexRepository) GetMoveByName(ctx context.Context, name string) (*model.Move, error) {
	m := &model.Move{}
	var category string
	err := r.pool.QueryRow(ctx, `
		SELECT code, name, power, accuracy, category, type_name
		FROM moves
		WHERE LOWER(name) = LOWER($1) OR code = LOWER($1)
		LIMIT 1
	`, name).Scan(&m.Code, &m.Name, &m.Power, &m.Accuracy, &category, &m.Type)
	if err != nil {
		return nil, notFound("repository.pokedex.GetMoveByName", err)
	}
	m.Category = model.MoveCategory(category)
	return m, nil
}

func (r *PokedexRepository) GetTypeChart(ctx context.Context, typeName string) (*model.TypeChart, error) {
	tc := &model.TypeChart{}
	err := r.pool.QueryRow(ctx, `
		SELECT name, strengths, weaknesses FROM types WHERE LOWER(name) = LOWER($1)
	`, typeName).Scan(&tc.Name, &tc.Strengths, &tc.Weaknesses)
	if err != nil {
		return nil, notFound("repository.pokedex.GetTypeChart", err)
	}
	return tc, nil
}

func (r *PokedexRepository) KnowsMove(ctx context.Context, pokemonID int, moveCode string) (bool, error) {
	var known bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM pokemon_moves WHERE pokemon_id = $1 AND move_code = $2)
	`, pokemonID, moveCode).Scan(&known)
	return known, err
}
