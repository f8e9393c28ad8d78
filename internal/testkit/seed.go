package testkit

import "pokeguide-backend/internal/model"

func power(n int) *int { return &n }

// SeededPokedex mirrors a slice of the reference data shipped in migrations.
func SeededPokedex() *Pokedex {
	p := NewPokedex()

	for _, tc := range []*model.TypeChart{
		{Name: "Normal", Weaknesses: []string{"Rock", "Steel", "Ghost"}},
		{Name: "Electric", Strengths: []string{"Water", "Flying"}, Weaknesses: []string{"Electric", "Grass", "Dragon", "Ground"}},
		{Name: "Water", Strengths: []string{"Fire", "Ground", "Rock"}, Weaknesses: []string{"Water", "Grass", "Dragon"}},
		{Name: "Grass", Strengths: []string{"Water", "Ground", "Rock"}, Weaknesses: []string{"Fire", "Grass", "Poison", "Flying", "Bug", "Dragon", "Steel"}},
		{Name: "Fire", Strengths: []string{"Grass", "Ice", "Bug", "Steel"}, Weaknesses: []string{"Fire", "Water", "Rock", "Dragon"}},
		{Name: "Rock", Strengths: []string{"Fire", "Ice", "Flying", "Bug"}, Weaknesses: []string{"Fighting", "Ground", "Steel"}},
		{Name: "Ground", Strengths: []string{"Fire", "Electric", "Poison", "Rock", "Steel"}, Weaknesses: []string{"Grass", "Bug", "Flying"}},
	} {
		p.AddType(tc)
	}

	for _, m := range []*model.Move{
		{Code: "thunderbolt", Name: "Thunderbolt", Power: power(90), Category: model.CategorySpecial, Type: "Electric"},
		{Code: "quick-attack", Name: "Quick Attack", Power: power(40), Category: model.CategoryPhysical, Type: "Normal"},
		{Code: "thunder-wave", Name: "Thunder Wave", Category: model.CategoryStatus, Type: "Electric"},
		{Code: "growl", Name: "Growl", Power: power(0), Category: model.CategoryStatus, Type: "Normal"},
		{Code: "surf", Name: "Surf", Power: power(90), Category: model.CategorySpecial, Type: "Water"},
		{Code: "razor-leaf", Name: "Razor Leaf", Power: power(55), Category: model.CategoryPhysical, Type: "Grass"},
		{Code: "ember", Name: "Ember", Power: power(40), Category: model.CategorySpecial, Type: "Fire"},
		{Code: "earthquake", Name: "Earthquake", Power: power(100), Category: model.CategoryPhysical, Type: "Ground"},
	} {
		p.AddMove(m)
	}

	p.AddPokemon(&model.Pokemon{ID: 25, Name: "Pikachu", Types: []string{"Electric"},
		Stats: model.BaseStats{HP: 35, Attack: 55, Defence: 40, SpAtk: 50, SpDef: 50, Speed: 90}},
		"thunderbolt", "quick-attack", "thunder-wave", "growl")
	p.AddPokemon(&model.Pokemon{ID: 74, Name: "Geodude", Types: []string{"Rock", "Ground"},
		Stats: model.BaseStats{HP: 40, Attack: 80, Defence: 100, SpAtk: 30, SpDef: 30, Speed: 20}},
		"earthquake")
	p.AddPokemon(&model.Pokemon{ID: 7, Name: "Squirtle", Types: []string{"Water"},
		Stats: model.BaseStats{HP: 44, Attack: 48, Defence: 65, SpAtk: 50, SpDef: 64, Speed: 43}},
		"surf")
	p.AddPokemon(&model.Pokemon{ID: 1, Name: "Bulbasaur", Types: []string{"Grass", "Poison"},
		Stats: model.BaseStats{HP: 45, Attack: 49, Defence: 49, SpAtk: 65, SpDef: 65, Speed: 45}},
		"razor-leaf", "growl")
	p.AddPokemon(&model.Pokemon{ID: 4, Name: "Charmander", Types: []string{"Fire"},
		Stats: model.BaseStats{HP: 39, Attack: 52, Defence: 43, SpAtk: 60, SpDef: 50, Speed: 65}},
		"ember", "growl")

	return p
}
