package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"medgen-server/internal/db"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxCodeAttempts = 5

type gameImageView struct {
	ImageID  uint   `json:"imageId"`
	Path     string `json:"path"`
	Position int    `json:"position"`
}

type gameSession struct {
	GameID   string          `json:"gameId"`
	GameCode string          `json:"gameCode"`
	Images   []gameImageView `json:"images"`
}

type guessEntry struct {
	ImageID   uint   `json:"imageId"`
	GuessType string `json:"userGuessType"`
	Correct   bool   `json:"correct"`
}

type gameResults struct {
	GameID       string       `json:"gameId"`
	Score        float64      `json:"score"`
	CorrectCount int          `json:"correctCount"`
	Total        int          `json:"total"`
	Guesses      []guessEntry `json:"guesses"`
}

type gameView struct {
	GameID    string          `json:"gameId"`
	GameCode  string          `json:"gameCode"`
	Mode      string          `json:"mode"`
	Status    string          `json:"status"`
	Score     *float64        `json:"score,omitempty"`
	Results   json.RawMessage `json:"results,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	Images    []gameImageView `json:"images"`
}

func (s *Server) findUser(tx *gorm.DB, externalID string) (*db.User, error) {
	var user db.User
	if err := tx.Where("external_id = ?", externalID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", errNotFound, externalID)
		}
		return nil, err
	}
	return &user, nil
}

// selectImageMix picks imageCount images, half real and half AI. When one
// side runs out of inventory the other side fills the remainder.
func (s *Server) selectImageMix(tx *gorm.DB, imageCount int) ([]db.Image, error) {
	if imageCount <= 0 {
		return nil, fmt.Errorf("%w: image count must be positive", errInvalidInput)
	}
	realTarget := imageCount / 2

	var realImages []db.Image
	if err := tx.Where("type = ?", db.ImageTypeReal).
		Order("RANDOM()").Limit(realTarget).Find(&realImages).Error; err != nil {
		return nil, err
	}

	var aiImages []db.Image
	if err := tx.Where("type = ?", db.ImageTypeAI).
		Order("RANDOM()").Limit(imageCount - len(realImages)).Find(&aiImages).Error; err != nil {
		return nil, err
	}

	images := append(realImages, aiImages...)
	if missing := imageCount - len(images); missing > 0 {
		picked := make([]uint, 0, len(images))
		for _, image := range images {
			picked = append(picked, image.ID)
		}
		extra := tx.Where("type = ?", db.ImageTypeReal)
		if len(picked) > 0 {
			extra = extra.Where("id NOT IN ?", picked)
		}
		var backfill []db.Image
		if err := extra.Order("RANDOM()").Limit(missing).Find(&backfill).Error; err != nil {
			return nil, err
		}
		images = append(images, backfill...)
	}
	if len(images) < imageCount {
		return nil, fmt.Errorf("%w: requested %d images but only %d are available", errInvalidInput, imageCount, len(images))
	}

	rand.Shuffle(len(images), func(i, j int) {
		images[i], images[j] = images[j], images[i]
	})
	return images, nil
}

func (s *Server) uniqueGameCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := newGameCode()
		var count int64
		if err := tx.Model(&db.Game{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique game code")
}

func (s *Server) createGameWithImages(tx *gorm.DB, user *db.User, code, mode string, images []db.Image) (*db.Game, []gameImageView, error) {
	game := db.Game{
		PublicID:  uuid.NewString(),
		UserID:    &user.ID,
		Code:      code,
		Mode:      mode,
		Status:    db.GameStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(&game).Error; err != nil {
		return nil, nil, err
	}

	views := make([]gameImageView, 0, len(images))
	rows := make([]db.GameImage, 0, len(images))
	for i, image := range images {
		rows = append(rows, db.GameImage{GameID: game.ID, ImageID: image.ID, Position: i})
		views = append(views, gameImageView{ImageID: image.ID, Path: image.Path, Position: i})
	}
	if len(rows) > 0 {
		if err := tx.Create(&rows).Error; err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Model(user).UpdateColumn("games_started", gorm.Expr("games_started + 1")).Error; err != nil {
		return nil, nil, err
	}
	return &game, views, nil
}

func (s *Server) initializeClassicGame(externalID string, imageCount int) (*gameSession, error) {
	var session *gameSession
	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.findUser(tx, externalID)
		if err != nil {
			return err
		}
		images, err := s.selectImageMix(tx, imageCount)
		if err != nil {
			return err
		}
		code, err := s.uniqueGameCode(tx)
		if err != nil {
			return err
		}
		game, views, err := s.createGameWithImages(tx, user, code, db.GameModeClassic, images)
		if err != nil {
			return err
		}
		session = &gameSession{GameID: game.PublicID, GameCode: game.Code, Images: views}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.gamesStarted.WithLabelValues(db.GameModeClassic).Inc()
	return session, nil
}

// initializeGameWithCode joins the image set already bound to the code, or
// creates a fresh set under that code when nobody has used it yet.
func (s *Server) initializeGameWithCode(externalID, code string, imageCount int) (*gameSession, error) {
	if !isValidGameCode(code) {
		return nil, fmt.Errorf("%w: malformed game code", errInvalidInput)
	}
	var session *gameSession
	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.findUser(tx, externalID)
		if err != nil {
			return err
		}

		// Rejoin an active game this user already holds under the code.
		var existing db.Game
		err = tx.Where("code = ? AND user_id = ? AND status = ?", code, user.ID, db.GameStatusActive).
			First(&existing).Error
		if err == nil {
			views, loadErr := s.loadGameImages(tx, existing.ID)
			if loadErr != nil {
				return loadErr
			}
			session = &gameSession{GameID: existing.PublicID, GameCode: existing.Code, Images: views}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		images, err := s.imagesForCode(tx, code, imageCount)
		if err != nil {
			return err
		}
		game, views, err := s.createGameWithImages(tx, user, code, db.GameModeClassic, images)
		if err != nil {
			return err
		}
		session = &gameSession{GameID: game.PublicID, GameCode: game.Code, Images: views}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.gamesStarted.WithLabelValues(db.GameModeClassic).Inc()
	return session, nil
}

// imagesForCode returns the image set of the first game created under the
// code, so later joiners play the same set, or selects a new mix.
func (s *Server) imagesForCode(tx *gorm.DB, code string, imageCount int) ([]db.Image, error) {
	var seed db.Game
	err := tx.Where("code = ?", code).Order("id ASC").First(&seed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.selectImageMix(tx, imageCount)
	}
	if err != nil {
		return nil, err
	}
	var images []db.Image
	if err := tx.Table("images").
		Joins("JOIN game_images ON game_images.image_id = images.id").
		Where("game_images.game_id = ?", seed.ID).
		Order("game_images.position ASC").
		Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

func (s *Server) randomCompetitionGame(externalID string) (*gameSession, error) {
	var session *gameSession
	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.findUser(tx, externalID)
		if err != nil {
			return err
		}

		var template db.Game
		err = tx.Where("mode = ? AND user_id IS NULL", db.GameModeCompetition).
			Order("RANDOM()").First(&template).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no competition games available", errNotFound)
		}
		if err != nil {
			return err
		}

		var images []db.Image
		if err := tx.Table("images").
			Joins("JOIN game_images ON game_images.image_id = images.id").
			Where("game_images.game_id = ?", template.ID).
			Order("game_images.position ASC").
			Find(&images).Error; err != nil {
			return err
		}

		game, views, err := s.createGameWithImages(tx, user, template.Code, db.GameModeCompetition, images)
		if err != nil {
			return err
		}
		session = &gameSession{GameID: game.PublicID, GameCode: game.Code, Images: views}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.gamesStarted.WithLabelValues(db.GameModeCompetition).Inc()
	return session, nil
}

// finishClassicGame persists one guess per entry, scores the game and flips
// active to finished exactly once. A second finish attempt is rejected by the
// conditional status update rather than double-inserting guesses.
func (s *Server) finishClassicGame(externalID, gamePublicID string, entries []guessEntry) (*gameResults, error) {
	if gamePublicID == "" || len(entries) == 0 {
		return nil, fmt.Errorf("%w: missing required fields", errInvalidInput)
	}
	var results *gameResults
	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.findUser(tx, externalID)
		if err != nil {
			return err
		}

		var game db.Game
		err = tx.Where("public_id = ? AND user_id = ?", gamePublicID, user.ID).First(&game).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: game %s", errNotFound, gamePublicID)
		}
		if err != nil {
			return err
		}

		var gameImages []db.GameImage
		if err := tx.Where("game_id = ?", game.ID).Find(&gameImages).Error; err != nil {
			return err
		}
		inGame := make(map[uint]bool, len(gameImages))
		for _, gi := range gameImages {
			inGame[gi.ImageID] = true
		}

		seen := make(map[uint]bool, len(entries))
		correctCount := 0
		for _, entry := range entries {
			if entry.GuessType != db.ImageTypeReal && entry.GuessType != db.ImageTypeAI {
				return fmt.Errorf("%w: guess type must be real or ai", errInvalidInput)
			}
			if !inGame[entry.ImageID] {
				return fmt.Errorf("%w: image %d is not part of this game", errInvalidInput, entry.ImageID)
			}
			if seen[entry.ImageID] {
				return fmt.Errorf("%w: duplicate guess for image %d", errInvalidInput, entry.ImageID)
			}
			seen[entry.ImageID] = true
			if entry.Correct {
				correctCount++
			}
		}

		score := float64(correctCount) / float64(len(entries))
		results = &gameResults{
			GameID:       game.PublicID,
			Score:        score,
			CorrectCount: correctCount,
			Total:        len(entries),
			Guesses:      entries,
		}
		payload, err := json.Marshal(results)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		update := tx.Model(&db.Game{}).
			Where("id = ? AND status = ?", game.ID, db.GameStatusActive).
			Updates(map[string]any{
				"status":      db.GameStatusFinished,
				"score":       score,
				"results":     datatypes.JSON(payload),
				"finished_at": &now,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", errAlreadyFinished, gamePublicID)
		}

		rows := make([]db.Guess, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, db.Guess{
				GameID:    game.ID,
				ImageID:   entry.ImageID,
				GuessType: entry.GuessType,
				Correct:   entry.Correct,
				CreatedAt: now,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}

		return tx.Model(user).UpdateColumns(map[string]any{
			"games_finished": gorm.Expr("games_finished + 1"),
			"total_score":    gorm.Expr("total_score + ?", correctCount),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.metrics.gamesFinished.Inc()
	s.metrics.guessesRecorded.Add(float64(len(entries)))
	return results, nil
}

func (s *Server) getGame(externalID, gamePublicID string) (*gameView, error) {
	user, err := s.findUser(s.db, externalID)
	if err != nil {
		return nil, err
	}
	var game db.Game
	err = s.db.Where("public_id = ? AND user_id = ?", gamePublicID, user.ID).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: game %s", errNotFound, gamePublicID)
	}
	if err != nil {
		return nil, err
	}
	images, err := s.loadGameImages(s.db, game.ID)
	if err != nil {
		return nil, err
	}
	view := &gameView{
		GameID:    game.PublicID,
		GameCode:  game.Code,
		Mode:      game.Mode,
		Status:    game.Status,
		CreatedAt: game.CreatedAt,
		Images:    images,
	}
	if game.Status == db.GameStatusFinished {
		score := game.Score
		view.Score = &score
		view.Results = json.RawMessage(game.Results)
	}
	return view, nil
}

func (s *Server) loadGameImages(tx *gorm.DB, gameID uint) ([]gameImageView, error) {
	var views []gameImageView
	err := tx.Table("game_images").
		Select("game_images.image_id AS image_id, images.path AS path, game_images.position AS position").
		Joins("JOIN images ON images.id = game_images.image_id").
		Where("game_images.game_id = ?", gameID).
		Order("game_images.position ASC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}
