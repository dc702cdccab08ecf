package services

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const MaxHintLevel = 4

type Hint struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

var hintPrinter = message.NewPrinter(language.English)

// Hint reveals one fact about the target of a game: 1 continent, 2 capital,
// 3 population, 4 area.
func (s *GameService) Hint(ctx context.Context, gameID uint, level int) (*Hint, error) {
	if level < 1 || level > MaxHintLevel {
		return nil, ErrInvalidHintLevel
	}
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, storeError(err, ErrGameNotFound)
	}

	var text string
	switch level {
	case 1:
		continent := game.CountryContinent
		if continent == "" {
			if c, ok := s.catalog.LookupByCode(game.CountryCode); ok {
				continent = c.Continent
			}
		}
		text = "Continent: " + continent
	case 2:
		text = "Capital: " + game.CountryCapital
	case 3:
		text = hintPrinter.Sprintf("Population: %d", game.CountryPopulation)
	case 4:
		text = hintPrinter.Sprintf("Area: %v km²", game.CountryArea)
	}
	return &Hint{Level: level, Text: text}, nil
}
