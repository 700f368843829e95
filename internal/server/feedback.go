package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"medgen-server/internal/db"

	"gorm.io/gorm"
)

// unresolvedCountExpr counts unresolved feedback per image. DISTINCT keeps a
// feedback row from being counted once per joined guess.
const unresolvedCountExpr = "COUNT(DISTINCT CASE WHEN feedback.resolved = FALSE THEN feedback.id END)"

type feedbackRow struct {
	ImageID          uint    `json:"image_id"`
	ImagePath        string  `json:"image_path"`
	ImageType        string  `json:"image_type"`
	UnresolvedCount  int     `json:"unresolved_count"`
	LastFeedbackTime *string `json:"last_feedback_time"`
	UploadTime       *string `json:"upload_time"`
	Gender           string  `json:"gender"`
	Race             string  `json:"race"`
	Age              int     `json:"age"`
	Disease          string  `json:"disease"`
}

var feedbackSortFields = map[string]string{
	"last_feedback_time": "last_feedback_time",
	"unresolved_count":   "unresolved_count",
	"upload_time":        "upload_time",
	"image_id":           "image_id",
}

func (s *Server) feedbackBaseQuery(imageType string) *gorm.DB {
	q := s.db.Table("images").
		Joins("LEFT JOIN guesses ON guesses.image_id = images.id").
		Joins("LEFT JOIN feedback_users ON feedback_users.guess_id = guesses.id").
		Joins("LEFT JOIN feedback ON feedback.id = feedback_users.feedback_id").
		Group("images.id, images.path, images.type, images.upload_time, images.gender, images.race, images.age, images.disease")
	if imageType != "" && imageType != "all" {
		q = q.Where("images.type = ?", imageType)
	}
	return q
}

func applyResolvedFilter(q *gorm.DB, resolved *bool) *gorm.DB {
	if resolved == nil {
		return q
	}
	if *resolved {
		return q.Having(unresolvedCountExpr + " = 0")
	}
	return q.Having(unresolvedCountExpr + " > 0")
}

// feedbackWithFilters builds the admin dashboard view: one row per image with
// its unresolved feedback count and last feedback time. The resolved filter is
// a condition on the aggregated unresolved count, so resolved=true means "no
// unresolved feedback left", including images that never had any.
func (s *Server) feedbackWithFilters(imageType string, resolved *bool, sortBy, sortOrder string, limit, offset int) ([]feedbackRow, error) {
	q := s.feedbackBaseQuery(imageType).
		Select("images.id AS image_id, images.path AS image_path, images.type AS image_type, " +
			unresolvedCountExpr + " AS unresolved_count, " +
			"MAX(feedback.created_at) AS last_feedback_time, " +
			"images.upload_time AS upload_time, images.gender AS gender, images.race AS race, images.age AS age, images.disease AS disease")
	q = applyResolvedFilter(q, resolved)

	if field, ok := feedbackSortFields[sortBy]; ok {
		direction := "ASC"
		if strings.EqualFold(sortOrder, "desc") {
			direction = "DESC"
		}
		q = q.Order(field + " " + direction)
	} else {
		q = q.Order("last_feedback_time DESC")
	}

	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var rows []feedbackRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// feedbackCount counts images matching the same filters as
// feedbackWithFilters. Counts are cached briefly when Redis is configured.
func (s *Server) feedbackCount(imageType string, resolved *bool) (int64, error) {
	if count, ok := s.cache.getCount(imageType, resolved); ok {
		return count, nil
	}

	sub := applyResolvedFilter(s.feedbackBaseQuery(imageType).Select("images.id"), resolved)
	var count int64
	if err := s.db.Table("(?) AS matched_images", sub).Count(&count).Error; err != nil {
		return 0, err
	}

	s.cache.setCount(imageType, resolved, count)
	return count, nil
}

// resolveAllFeedbackByImage marks every feedback entry reachable through the
// image's guesses as resolved. Re-running it is a no-op.
func (s *Server) resolveAllFeedbackByImage(imageID uint) (int64, error) {
	var resolvedCount int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var guessCount int64
		if err := tx.Model(&db.Guess{}).Where("image_id = ?", imageID).Count(&guessCount).Error; err != nil {
			return err
		}
		if guessCount == 0 {
			return fmt.Errorf("%w: no guesses found for image %d", errNotFound, imageID)
		}

		sub := tx.Table("feedback_users").
			Select("feedback_users.feedback_id").
			Joins("JOIN guesses ON guesses.id = feedback_users.guess_id").
			Where("guesses.image_id = ?", imageID)
		result := tx.Model(&db.Feedback{}).
			Where("id IN (?)", sub).
			Where("resolved = ?", false).
			Update("resolved", true)
		if result.Error != nil {
			return result.Error
		}
		resolvedCount = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.cache.invalidateCounts()
	return resolvedCount, nil
}

// submitFeedback records feedback text against one of the caller's guesses.
func (s *Server) submitFeedback(externalID string, guessID uint, text string) (uint, error) {
	text = strings.TrimSpace(text)
	if guessID == 0 || text == "" {
		return 0, fmt.Errorf("%w: guess id and text are required", errInvalidInput)
	}
	var feedbackID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var guess db.Guess
		err := tx.Joins("JOIN games ON games.id = guesses.game_id").
			Joins("JOIN users ON users.id = games.user_id").
			Where("guesses.id = ? AND users.external_id = ?", guessID, externalID).
			First(&guess).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: guess %d", errNotFound, guessID)
		}
		if err != nil {
			return err
		}

		feedback := db.Feedback{Text: text, CreatedAt: time.Now().UTC()}
		if err := tx.Create(&feedback).Error; err != nil {
			return err
		}
		if err := tx.Create(&db.FeedbackUser{FeedbackID: feedback.ID, GuessID: guess.ID}).Error; err != nil {
			return err
		}
		feedbackID = feedback.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.cache.invalidateCounts()
	return feedbackID, nil
}
