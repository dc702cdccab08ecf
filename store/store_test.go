package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"worldroom/models"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, AutoMigrate(db))
	return NewGormStore(db)
}

func newMemStore(t *testing.T) Store { return NewMemoryStore() }

func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, mk := range map[string]func(*testing.T) Store{
		"gorm-sqlite": newSQLiteStore,
		"memory":      newMemStore,
	} {
		t.Run(name, func(t *testing.T) { fn(t, mk(t)) })
	}
}

func seedRoom(t *testing.T, s Store, code string) (*models.Room, *models.Player) {
	t.Helper()
	ctx := context.Background()
	room := &models.Room{Code: code, HostName: "host", Status: models.RoomWaiting}
	require.NoError(t, s.CreateRoom(ctx, room))
	host := &models.Player{RoomID: room.ID, Name: "host", IsHost: true, JoinedAt: time.Now()}
	require.NoError(t, s.CreatePlayer(ctx, host))
	return room, host
}

func TestRoomsAndPlayers(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		room, host := seedRoom(t, s, "abc123")
		assert.NotZero(t, room.ID)
		assert.Equal(t, "ABC123", room.Code)

		got, err := s.GetRoomByCode(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, room.ID, got.ID)

		_, err = s.GetRoomByCode(ctx, "NOPE00")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetRoom(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)

		err = s.CreateRoom(ctx, &models.Room{Code: "ABC123", HostName: "x", Status: models.RoomWaiting})
		assert.ErrorIs(t, err, ErrDuplicate)

		err = s.CreatePlayer(ctx, &models.Player{RoomID: room.ID, Name: "host", JoinedAt: time.Now()})
		assert.ErrorIs(t, err, ErrDuplicate)

		other, _ := seedRoom(t, s, "ZZZ999")
		require.NoError(t, s.CreatePlayer(ctx, &models.Player{RoomID: other.ID, Name: "alice", JoinedAt: time.Now()}))
		alice := &models.Player{RoomID: room.ID, Name: "alice", JoinedAt: time.Now().Add(time.Second)}
		require.NoError(t, s.CreatePlayer(ctx, alice))

		require.NoError(t, s.IncrementPlayerScore(ctx, alice.ID, 400))
		players, err := s.ListPlayers(ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, players, 2)
		assert.Equal(t, "alice", players[0].Name)
		assert.Equal(t, 400, players[0].TotalScore)
		assert.Equal(t, host.ID, players[1].ID)

		assert.ErrorIs(t, s.IncrementPlayerScore(ctx, 9999, 1), ErrNotFound)

		roundID := uint(42)
		room.Status = models.RoomPlaying
		room.ActiveRoundID = &roundID
		require.NoError(t, s.UpdateRoom(ctx, room))
		got, err = s.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoomPlaying, got.Status)
		require.NotNil(t, got.ActiveRoundID)
		assert.Equal(t, roundID, *got.ActiveRoundID)

		room.ActiveRoundID = nil
		require.NoError(t, s.UpdateRoom(ctx, room))
		got, err = s.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ActiveRoundID)
	})
}

func TestIncrementPlayerScoreIsAtomic(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, host := seedRoom(t, s, "ATOM01")

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.IncrementPlayerScore(ctx, host.ID, 50))
			}()
		}
		wg.Wait()

		p, err := s.GetPlayer(ctx, host.ID)
		require.NoError(t, err)
		assert.Equal(t, 1000, p.TotalScore)
	})
}

func TestRoundConditionalUpdate(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		room, _ := seedRoom(t, s, "ROUND1")
		round := &models.Round{RoomID: room.ID, Number: 1, GamesPerRound: 2, TimeLimitSeconds: 60, MaxAttemptsPerGame: 5, Status: models.RoundWaiting}
		require.NoError(t, s.CreateRound(ctx, round))
		assert.ErrorIs(t, s.CreateRound(ctx, &models.Round{RoomID: room.ID, Number: 1, Status: models.RoundWaiting}), ErrDuplicate)

		stale := *round
		_, err := round.Start(time.Now())
		require.NoError(t, err)
		require.NoError(t, s.UpdateRound(ctx, round, models.RoundWaiting, 0))

		_, err = stale.Start(time.Now())
		require.NoError(t, err)
		assert.ErrorIs(t, s.UpdateRound(ctx, &stale, models.RoundWaiting, 0), ErrStale)

		got, err := s.GetRound(ctx, round.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoundActive, got.Status)
		assert.Equal(t, 1, got.CurrentGame)
		assert.NotNil(t, got.StartedAt)

		missing := models.Round{ID: 9999}
		assert.ErrorIs(t, s.UpdateRound(ctx, &missing, models.RoundWaiting, 0), ErrNotFound)

		rounds, err := s.ListRounds(ctx, room.ID)
		require.NoError(t, err)
		assert.Len(t, rounds, 1)
	})
}

func TestGamesAndGuesses(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		room, host := seedRoom(t, s, "GAMES1")
		round := &models.Round{RoomID: room.ID, Number: 1, GamesPerRound: 2, TimeLimitSeconds: 60, MaxAttemptsPerGame: 5, Status: models.RoundWaiting}
		require.NoError(t, s.CreateRound(ctx, round))

		now := time.Now()
		for n := 2; n >= 1; n-- {
			g := &models.Game{RoundID: round.ID, Number: n, CountryCode: "FR", CountryName: "France", MaxAttempts: 5, StartedAt: now}
			require.NoError(t, s.CreateGame(ctx, g))
		}
		dup := &models.Game{RoundID: round.ID, Number: 1, CountryCode: "DE", CountryName: "Germany", MaxAttempts: 5, StartedAt: now}
		assert.ErrorIs(t, s.CreateGame(ctx, dup), ErrDuplicate)

		games, err := s.ListGames(ctx, round.ID)
		require.NoError(t, err)
		require.Len(t, games, 2)
		assert.Equal(t, 1, games[0].Number)

		first, err := s.GetGameByNumber(ctx, round.ID, 1)
		require.NoError(t, err)
		ended := now.Add(time.Minute)
		first.EndedAt = &ended
		require.NoError(t, s.UpdateGame(ctx, first))
		first, err = s.GetGame(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, first.Ended())

		for attempt := 1; attempt <= 2; attempt++ {
			g := &models.Guess{GameID: first.ID, PlayerID: host.ID, AttemptNumber: attempt, Guess: "Spain", CountryCode: "ES", SubmittedAt: now.Add(time.Duration(attempt) * time.Second)}
			require.NoError(t, s.CreateGuess(ctx, g))
		}
		again := &models.Guess{GameID: first.ID, PlayerID: host.ID, AttemptNumber: 2, Guess: "Italy", CountryCode: "IT", SubmittedAt: now}
		assert.ErrorIs(t, s.CreateGuess(ctx, again), ErrDuplicate)

		mine, err := s.ListPlayerGuesses(ctx, first.ID, host.ID)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, []int{1, 2}, []int{mine[0].AttemptNumber, mine[1].AttemptNumber})

		all, err := s.ListGuesses(ctx, first.ID)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestEventsNewestWindow(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		room, _ := seedRoom(t, s, "EVENT1")
		for _, typ := range []string{models.EventRoomCreated, models.EventPlayerJoined, models.EventRoundCreated} {
			require.NoError(t, s.AppendEvent(ctx, &models.Event{RoomID: room.ID, Type: typ}))
		}
		events, err := s.ListEvents(ctx, room.ID, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, models.EventPlayerJoined, events[0].Type)
		assert.Equal(t, models.EventRoundCreated, events[1].Type)
	})
}

func TestTransactionRollsBack(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		room, host := seedRoom(t, s, "TXN001")

		err := s.Transaction(ctx, func(tx Store) error {
			if err := tx.IncrementPlayerScore(ctx, host.ID, 100); err != nil {
				return err
			}
			return tx.CreatePlayer(ctx, &models.Player{RoomID: room.ID, Name: "host", JoinedAt: time.Now()})
		})
		assert.ErrorIs(t, err, ErrDuplicate)

		p, err := s.GetPlayer(ctx, host.ID)
		require.NoError(t, err)
		assert.Zero(t, p.TotalScore)

		require.NoError(t, s.Transaction(ctx, func(tx Store) error {
			return tx.IncrementPlayerScore(ctx, host.ID, 100)
		}))
		p, err = s.GetPlayer(ctx, host.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, p.TotalScore)
	})
}
