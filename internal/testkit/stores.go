// Package testkit provides in-memory stores for tests across packages.
package testkit

import (
	"context"
	"strings"
	"sync"
	"time"

	"pokeguide-backend/internal/model"
	"pokeguide-backend/internal/repository"
)

// UserStore is an in-memory service.UserStore.
type UserStore struct {
	mu    sync.Mutex
	Users map[string]*model.User
	Err   error
}

func NewUserStore() *UserStore {
	return &UserStore{Users: make(map[string]*model.User)}
}

func (s *UserStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.Users {
		if existing.Email == u.Email {
			return repository.ErrAlreadyExists
		}
	}
	cp := *u
	s.Users[u.ID] = &cp
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) UpdateRole(_ context.Context, id string, role model.Role) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (s *UserStore) CountTotal(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Users), nil
}

// RefreshTokenStore is an in-memory service.RefreshTokenStore.
type RefreshTokenStore struct {
	mu       sync.Mutex
	Tokens   map[string]*model.RefreshToken
	StoreErr error
}

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{Tokens: make(map[string]*model.RefreshToken)}
}

func (s *RefreshTokenStore) Store(_ context.Context, rt *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StoreErr != nil {
		return s.StoreErr
	}
	if _, ok := s.Tokens[rt.Token]; ok {
		return repository.ErrAlreadyExists
	}
	cp := *rt
	cp.CreatedAt = time.Now()
	s.Tokens[rt.Token] = &cp
	return nil
}

func (s *RefreshTokenStore) Consume(_ context.Context, token string) (*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.Tokens[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.Tokens, token)
	return rt, nil
}

func (s *RefreshTokenStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Tokens, token)
	return nil
}

func (s *RefreshTokenStore) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, rt := range s.Tokens {
		if rt.UserID == userID {
			delete(s.Tokens, token)
			n++
		}
	}
	return n, nil
}

func (s *RefreshTokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, rt := range s.Tokens {
		if !rt.ExpiresAt.After(now) {
			delete(s.Tokens, token)
			n++
		}
	}
	return n, nil
}

func (s *RefreshTokenStore) CountActive(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rt := range s.Tokens {
		if rt.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

// Has reports whether token is currently stored.
func (s *RefreshTokenStore) Has(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Tokens[token]
	return ok
}

// Pokedex is an in-memory service.PokedexStore.
type Pokedex struct {
	Pokemon   map[string]*model.Pokemon
	Moves     map[string]*model.Move
	Types     map[string]*model.TypeChart
	Learnsets map[int][]string
}

func NewPokedex() *Pokedex {
	return &Pokedex{
		Pokemon:   make(map[string]*model.Pokemon),
		Moves:     make(map[string]*model.Move),
		Types:     make(map[string]*model.TypeChart),
		Learnsets: make(map[int][]string),
	}
}

func (p *Pokedex) AddPokemon(pk *model.Pokemon, moves ...string) {
	p.Pokemon[strings.ToLower(pk.Name)] = pk
	p.Learnsets[pk.ID] = append(p.Learnsets[pk.ID], moves...)
}

func (p *Pokedex) AddMove(m *model.Move) {
	p.Moves[strings.ToLower(m.Name)] = m
}

func (p *Pokedex) AddType(tc *model.TypeChart) {
	p.Types[strings.ToLower(tc.Name)] = tc
}

func (p *Pokedex) GetPokemonByName(_ context.Context, name string) (*model.Pokemon, error) {
	pk, ok := p.Pokemon[strings.ToLower(name)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return pk, nil
}

func (p *Pokedex) GetMoveByName(_ context.Context, name string) (*model.Move, error) {
	if m, ok := p.Moves[strings.ToLower(name)]; ok {
		return m, nil
	}
	for _, m := range p.Moves {
		if m.Code == strings.ToLower(name) {
			return m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (p *Pokedex) GetTypeChart(_ context.Context, typeName string) (*model.TypeChart, error) {
	tc, ok := p.Types[strings.ToLower(typeName)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return tc, nil
}

func (p *Pokedex) KnowsMove(_ context.Context, pokemonID int, moveCode string) (bool, error) {
	for _, code := range p.Learnsets[pokemonID] {
		if code == moveCode {
			return true, nil
		}
	}
	return false, nil
}
