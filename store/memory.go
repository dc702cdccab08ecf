package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"worldroom/models"
)

type memData struct {
	nextID  uint
	rooms   map[uint]models.Room
	players map[uint]models.Player
	rounds  map[uint]models.Round
	games   map[uint]models.Game
	guesses map[uint]models.Guess
	events  []models.Event
}

func newMemData() *memData {
	return &memData{
		rooms:   make(map[uint]models.Room),
		players: make(map[uint]models.Player),
		rounds:  make(map[uint]models.Round),
		games:   make(map[uint]models.Game),
		guesses: make(map[uint]models.Guess),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		nextID:  d.nextID,
		rooms:   make(map[uint]models.Room, len(d.rooms)),
		players: make(map[uint]models.Player, len(d.players)),
		rounds:  make(map[uint]models.Round, len(d.rounds)),
		games:   make(map[uint]models.Game, len(d.games)),
		guesses: make(map[uint]models.Guess, len(d.guesses)),
		events:  append([]models.Event(nil), d.events...),
	}
	for k, v := range d.rooms {
		c.rooms[k] = v
	}
	for k, v := range d.players {
		c.players[k] = v
	}
	for k, v := range d.rounds {
		c.rounds[k] = v
	}
	for k, v := range d.games {
		c.games[k] = v
	}
	for k, v := range d.guesses {
		c.guesses[k] = v
	}
	return c
}

func (d *memData) id() uint {
	d.nextID++
	return d.nextID
}

// MemoryStore keeps everything in maps guarded by one mutex. It honours the
// same unique keys as the SQL schema and is used for tests and for running
// without a database.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData()}
}

func (m *MemoryStore) CreateRoom(ctx context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room.Code = strings.ToUpper(room.Code)
	for _, r := range m.data.rooms {
		if r.Code == room.Code {
			return ErrDuplicate
		}
	}
	now := time.Now()
	room.ID = m.data.id()
	room.CreatedAt, room.UpdatedAt = now, now
	stored := *room
	stored.Players, stored.Rounds = nil, nil
	m.data.rooms[room.ID] = stored
	return nil
}

func (m *MemoryStore) GetRoom(ctx context.Context, id uint) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, r := range m.data.rooms {
		if r.Code == code {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateRoom(ctx context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data.rooms[room.ID]
	if !ok {
		return ErrNotFound
	}
	r.Name = room.Name
	r.Status = room.Status
	r.ActiveRoundID = room.ActiveRoundID
	r.UpdatedAt = time.Now()
	m.data.rooms[room.ID] = r
	return nil
}

func (m *MemoryStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.data.players {
		if p.RoomID == player.RoomID && p.Name == player.Name {
			return ErrDuplicate
		}
	}
	now := time.Now()
	player.ID = m.data.id()
	player.CreatedAt, player.UpdatedAt = now, now
	m.data.players[player.ID] = *player
	return nil
}

func (m *MemoryStore) GetPlayer(ctx context.Context, id uint) (*models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.data.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ListPlayers(ctx context.Context, roomID uint) ([]models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Player
	for _, p := range m.data.players {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *MemoryStore) IncrementPlayerScore(ctx context.Context, playerID uint, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data.players[playerID]
	if !ok {
		return ErrNotFound
	}
	p.TotalScore += delta
	p.UpdatedAt = time.Now()
	m.data.players[playerID] = p
	return nil
}

func (m *MemoryStore) CreateRound(ctx context.Context, round *models.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.data.rounds {
		if r.RoomID == round.RoomID && r.Number == round.Number {
			return ErrDuplicate
		}
	}
	now := time.Now()
	round.ID = m.data.id()
	round.CreatedAt, round.UpdatedAt = now, now
	stored := *round
	stored.Games = nil
	m.data.rounds[round.ID] = stored
	return nil
}

func (m *MemoryStore) GetRound(ctx context.Context, id uint) (*models.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) ListRounds(ctx context.Context, roomID uint) ([]models.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Round
	for _, r := range m.data.rounds {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *MemoryStore) UpdateRound(ctx context.Context, round *models.Round, fromStatus models.RoundStatus, fromGame int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data.rounds[round.ID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != fromStatus || r.CurrentGame != fromGame {
		return ErrStale
	}
	r.Status = round.Status
	r.CurrentGame = round.CurrentGame
	r.StartedAt = round.StartedAt
	r.CompletedAt = round.CompletedAt
	r.UpdatedAt = time.Now()
	m.data.rounds[round.ID] = r
	return nil
}

func (m *MemoryStore) CreateGame(ctx context.Context, game *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.data.games {
		if g.RoundID == game.RoundID && g.Number == game.Number {
			return ErrDuplicate
		}
	}
	now := time.Now()
	game.ID = m.data.id()
	game.CreatedAt, game.UpdatedAt = now, now
	stored := *game
	stored.Guesses = nil
	m.data.games[game.ID] = stored
	return nil
}

func (m *MemoryStore) GetGame(ctx context.Context, id uint) (*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.data.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (m *MemoryStore) GetGameByNumber(ctx context.Context, roundID uint, number int) (*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.data.games {
		if g.RoundID == roundID && g.Number == number {
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListGames(ctx context.Context, roundID uint) ([]models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Game
	for _, g := range m.data.games {
		if g.RoundID == roundID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *MemoryStore) UpdateGame(ctx context.Context, game *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.data.games[game.ID]
	if !ok {
		return ErrNotFound
	}
	g.EndedAt = game.EndedAt
	g.UpdatedAt = time.Now()
	m.data.games[game.ID] = g
	return nil
}

func (m *MemoryStore) CreateGuess(ctx context.Context, guess *models.Guess) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.data.guesses {
		if g.GameID == guess.GameID && g.PlayerID == guess.PlayerID && g.AttemptNumber == guess.AttemptNumber {
			return ErrDuplicate
		}
	}
	guess.ID = m.data.id()
	m.data.guesses[guess.ID] = *guess
	return nil
}

func (m *MemoryStore) ListGuesses(ctx context.Context, gameID uint) ([]models.Guess, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Guess
	for _, g := range m.data.guesses {
		if g.GameID == gameID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) ListPlayerGuesses(ctx context.Context, gameID, playerID uint) ([]models.Guess, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Guess
	for _, g := range m.data.guesses {
		if g.GameID == gameID && g.PlayerID == playerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = m.data.id()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	m.data.events = append(m.data.events, *event)
	return nil
}

func (m *MemoryStore) ListEvents(ctx context.Context, roomID uint, limit int) ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Event
	for _, e := range m.data.events {
		if e.RoomID == roomID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Transaction holds the write lock for the whole of fn and runs it against a
// copy, which replaces the live data only if fn succeeds.
func (m *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MemoryStore{data: m.data.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.data = tx.data
	return nil
}
