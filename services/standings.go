package services

import (
	"context"
	"sort"

	"worldroom/models"
)

// GetStandings aggregates a round per player. Every player in the room is
// listed, including those who joined late and skipped games.
func (s *GameService) GetStandings(ctx context.Context, roundID uint) ([]models.RoundStanding, error) {
	round, err := s.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, storeError(err, ErrRoundNotFound)
	}
	players, err := s.store.ListPlayers(ctx, round.RoomID)
	if err != nil {
		return nil, storeError(err, ErrRoomNotFound)
	}
	games, err := s.store.ListGames(ctx, round.ID)
	if err != nil {
		return nil, storeError(err, ErrRoundNotFound)
	}

	standings := make([]models.RoundStanding, len(players))
	index := make(map[uint]int, len(players))
	for i, p := range players {
		standings[i] = models.RoundStanding{RoundID: round.ID, PlayerID: p.ID, PlayerName: p.Name}
		index[p.ID] = i
	}

	for _, game := range games {
		guesses, err := s.store.ListGuesses(ctx, game.ID)
		if err != nil {
			return nil, storeError(err, ErrGameNotFound)
		}
		for playerID, gs := range groupByPlayer(guesses) {
			i, ok := index[playerID]
			if !ok {
				continue
			}
			st := playerStatus(playerID, gs, game.MaxAttempts)
			standings[i].TotalAttempts += st.Attempts
			if st.Completed {
				standings[i].GamesCompleted++
			}
			if st.Won {
				standings[i].GamesWon++
			}
			for _, g := range gs {
				standings[i].RoundScore += g.Score
			}
		}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.RoundScore != b.RoundScore {
			return a.RoundScore > b.RoundScore
		}
		if a.GamesWon != b.GamesWon {
			return a.GamesWon > b.GamesWon
		}
		return a.TotalAttempts < b.TotalAttempts
	})
	scores := make([]int, len(standings))
	for i, st := range standings {
		scores[i] = st.RoundScore
	}
	for i, rank := range denseRanks(scores) {
		standings[i].Rank = rank
	}
	return standings, nil
}

// denseRanks ranks scores sorted highest first. Equal scores share a rank
// and ranks have no gaps.
func denseRanks(scores []int) []int {
	ranks := make([]int, len(scores))
	for i, score := range scores {
		switch {
		case i == 0:
			ranks[i] = 1
		case score == scores[i-1]:
			ranks[i] = ranks[i-1]
		default:
			ranks[i] = ranks[i-1] + 1
		}
	}
	return ranks
}

// Leaderboard ranks every player of the room by cumulative score.
func (s *GameService) Leaderboard(ctx context.Context, roomID uint) ([]models.LeaderboardEntry, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, storeError(err, ErrRoomNotFound)
	}
	players, err := s.store.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, storeError(err, ErrRoomNotFound)
	}
	scores := make([]int, len(players))
	for i, p := range players {
		scores[i] = p.TotalScore
	}
	ranks := denseRanks(scores)
	entries := make([]models.LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = models.LeaderboardEntry{PlayerID: p.ID, Name: p.Name, TotalScore: p.TotalScore, IsHost: p.IsHost, Rank: ranks[i]}
	}
	return entries, nil
}

func (s *GameService) PlayerStatus(ctx context.Context, gameID, playerID uint) (*models.PlayerGameStatus, error) {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, storeError(err, ErrGameNotFound)
	}
	round, err := s.store.GetRound(ctx, game.RoundID)
	if err != nil {
		return nil, storeError(err, ErrRoundNotFound)
	}
	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, storeError(err, ErrPlayerNotFound)
	}
	if player.RoomID != round.RoomID {
		return nil, ErrNotInRoom
	}
	guesses, err := s.store.ListPlayerGuesses(ctx, gameID, playerID)
	if err != nil {
		return nil, storeError(err, ErrGameNotFound)
	}
	st := playerStatus(playerID, guesses, game.MaxAttempts)
	return &st, nil
}

// AllPlayersStatus maps each player of the game's room to whether they are
// done with it.
func (s *GameService) AllPlayersStatus(ctx context.Context, gameID uint) (map[uint]bool, error) {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, storeError(err, ErrGameNotFound)
	}
	round, err := s.store.GetRound(ctx, game.RoundID)
	if err != nil {
		return nil, storeError(err, ErrRoundNotFound)
	}
	flags, _, err := s.allPlayersStatus(ctx, s.store, round.RoomID, game)
	if err != nil {
		return nil, storeError(err, ErrGameNotFound)
	}
	return flags, nil
}
