package repository

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
)

//go:embed sql/get-mountains.sql
var getMountainsSQL string

//go:embed sql/get-mountain.sql
var getMountainSQL string

var ErrMountainNotFound = errors.New("mountain not found")

type MountainRepository interface {
	GetMountains() ([]types.Mountain, error)
	GetMountain(id string) (types.Mountain, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) MountainRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetMountains() ([]types.Mountain, error) {
	rows, err := r.db.Query(getMountainsSQL)
	if err != nil {
		return nil, fmt.Errorf("query mountains: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close mountains rows", "error", err)
		}
	}()

	var out []types.Mountain
	for rows.Next() {
		m, err := scanMountain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mountains: %w", err)
	}
	return out, nil
}

func (r *repositoryImpl) GetMountain(id string) (types.Mountain, error) {
	m, err := scanMountain(r.db.QueryRow(getMountainSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Mountain{}, fmt.Errorf("%w: %s", ErrMountainNotFound, id)
	}
	return m, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMountain(s scanner) (types.Mountain, error) {
	var m types.Mountain
	err := s.Scan(&m.ID, &m.Name, &m.LocalName, &m.Lat, &m.Lon, &m.Elevation, &m.Region)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Mountain{}, err
	}
	if err != nil {
		return types.Mountain{}, fmt.Errorf("scan mountain: %w", err)
	}
	return m, nil
}
