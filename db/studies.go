// ABOUTME: Study database operations
// ABOUTME: Handles study creation and lookups for session ownership
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/calsync/models"
)

func CreateStudy(db *sql.DB, study *models.Study) error {
	if study.ID == uuid.Nil {
		study.ID = uuid.New()
	}
	now := time.Now()
	study.CreatedAt = now
	study.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO studies (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, study.ID.String(), study.Name, study.CreatedAt, study.UpdatedAt)

	return err
}

func GetStudy(db *sql.DB, id uuid.UUID) (*models.Study, error) {
	study := &models.Study{}
	var idStr string

	err := db.QueryRow(`
		SELECT id, name, created_at, updated_at
		FROM studies
		WHERE id = ?
	`, id.String()).Scan(&idStr, &study.Name, &study.CreatedAt, &study.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study: %w", err)
	}

	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid study id %q: %w", idStr, err)
	}
	study.ID = parsed

	return study, nil
}

func FindStudyByName(db *sql.DB, name string) (*models.Study, error) {
	study := &models.Study{}
	var idStr string

	err := db.QueryRow(`
		SELECT id, name, created_at, updated_at
		FROM studies
		WHERE name = ?
		LIMIT 1
	`, name).Scan(&idStr, &study.Name, &study.CreatedAt, &study.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find study: %w", err)
	}

	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid study id %q: %w", idStr, err)
	}
	study.ID = parsed

	return study, nil
}
