// persistence/postgresql.go
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/wfunc/radarserver/models"
)

// PostgreSQL 原生SQL实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建PostgreSQL数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// 设置连接池
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(100)
	db.SetConnMaxLifetime(time.Hour)

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS track_points (
            id BIGSERIAL PRIMARY KEY,
            device_id TEXT NOT NULL,
            room_id TEXT NOT NULL,
            coords JSONB NOT NULL,
            recorded_at TIMESTAMPTZ NOT NULL
        )`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_track_points_device
        ON track_points (device_id, recorded_at DESC)`)
	return err
}

// SaveTrackPoint 保存轨迹点
func (p *PostgreSQL) SaveTrackPoint(point *models.TrackPoint) error {
	coords, err := json.Marshal(point.Coords)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(
		`INSERT INTO track_points (device_id, room_id, coords, recorded_at)
         VALUES ($1, $2, $3, $4)`,
		point.DeviceID, point.RoomID, coords, point.RecordedAt,
	)
	return err
}

// LoadTrack 加载设备轨迹，按时间倒序
func (p *PostgreSQL) LoadTrack(deviceID string, limit int) ([]models.TrackPoint, error) {
	rows, err := p.db.Query(
		`SELECT device_id, room_id, coords, recorded_at
         FROM track_points
         WHERE device_id = $1
         ORDER BY recorded_at DESC
         LIMIT $2`,
		deviceID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.TrackPoint
	for rows.Next() {
		var point models.TrackPoint
		var coords []byte
		if err := rows.Scan(&point.DeviceID, &point.RoomID, &coords, &point.RecordedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(coords, &point.Coords); err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(points) == 0 {
		return nil, ErrRecordNotFound
	}
	return points, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
