package services

import (
	"context"

	"worldroom/models"
	"worldroom/realtime"
)

// RoomState is the snapshot every client reload fetches. The shared part is
// served from the state cache when possible. viewerID, when non-zero, adds
// that player's own guesses and status for the current game.
func (s *GameService) RoomState(ctx context.Context, code string, viewerID uint) (*models.RoomState, error) {
	shared, version, ok := s.cache.Get(ctx, code)
	if !ok {
		var err error
		if shared, err = s.loadRoomState(ctx, code); err != nil {
			return nil, err
		}
		s.cache.Set(ctx, code, version, shared)
	}

	state := *shared
	if viewerID == 0 {
		return &state, nil
	}

	member := false
	for _, p := range state.Players {
		if p.ID == viewerID {
			member = true
			break
		}
	}
	if !member {
		return nil, ErrNotInRoom
	}
	if state.CurrentGame != nil {
		guesses, err := s.store.ListPlayerGuesses(ctx, state.CurrentGame.ID, viewerID)
		if err != nil {
			return nil, storeError(err, ErrGameNotFound)
		}
		st := playerStatus(viewerID, guesses, state.CurrentGame.MaxAttempts)
		state.MyGuesses = guesses
		state.MyStatus = &st
	}
	return &state, nil
}

func (s *GameService) loadRoomState(ctx context.Context, code string) (*models.RoomState, error) {
	room, err := s.store.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, storeError(err, ErrRoomNotFound)
	}
	players, err := s.store.ListPlayers(ctx, room.ID)
	if err != nil {
		return nil, storeError(err, ErrRoomNotFound)
	}
	rounds, err := s.store.ListRounds(ctx, room.ID)
	if err != nil {
		return nil, storeError(err, ErrRoomNotFound)
	}

	state := &models.RoomState{
		Room:      *room,
		Players:   players,
		Rounds:    rounds,
		FetchedAt: s.now(),
	}
	if room.ActiveRoundID == nil {
		return state, nil
	}
	for i := range rounds {
		if rounds[i].ID == *room.ActiveRoundID {
			r := rounds[i]
			state.ActiveRound = &r
			break
		}
	}
	if state.ActiveRound == nil || state.ActiveRound.Status != models.RoundActive {
		return state, nil
	}

	game, err := s.store.GetGameByNumber(ctx, state.ActiveRound.ID, state.ActiveRound.CurrentGame)
	if err != nil {
		return nil, storeError(err, ErrGameNotFound)
	}
	flags, all, err := s.allPlayersStatus(ctx, s.store, room.ID, game)
	if err != nil {
		return nil, storeError(err, ErrGameNotFound)
	}
	state.CurrentGame = models.NewGameView(game)
	state.AllPlayersStatus = flags
	state.AllPlayersDone = all
	return state, nil
}

// RoomOfTopic resolves the room a notification topic belongs to.
func (s *GameService) RoomOfTopic(ctx context.Context, topic realtime.Topic) (uint, error) {
	switch topic.Scope {
	case realtime.ScopeRoom:
		room, err := s.store.GetRoom(ctx, topic.ID)
		if err != nil {
			return 0, storeError(err, ErrRoomNotFound)
		}
		return room.ID, nil
	case realtime.ScopeRound:
		round, err := s.store.GetRound(ctx, topic.ID)
		if err != nil {
			return 0, storeError(err, ErrRoundNotFound)
		}
		return round.RoomID, nil
	case realtime.ScopeGame:
		game, err := s.store.GetGame(ctx, topic.ID)
		if err != nil {
			return 0, storeError(err, ErrGameNotFound)
		}
		round, err := s.store.GetRound(ctx, game.RoundID)
		if err != nil {
			return 0, storeError(err, ErrRoundNotFound)
		}
		return round.RoomID, nil
	}
	return 0, validationError("unknown scope %q", topic.Scope)
}
