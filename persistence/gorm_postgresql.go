// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/radarserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormTrackPoint{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveTrackPoint 保存轨迹点
func (p *GormPostgreSQL) SaveTrackPoint(point *models.TrackPoint) error {
	record := models.GormTrackPoint{
		DeviceID:   point.DeviceID,
		RoomID:     point.RoomID,
		Coords:     point.Coords,
		RecordedAt: point.RecordedAt,
	}
	return p.db.Create(&record).Error
}

// LoadTrack 加载设备轨迹，按时间倒序
func (p *GormPostgreSQL) LoadTrack(deviceID string, limit int) ([]models.TrackPoint, error) {
	var records []models.GormTrackPoint
	err := p.db.
		Where("device_id = ?", deviceID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}

	points := make([]models.TrackPoint, 0, len(records))
	for _, r := range records {
		points = append(points, models.TrackPoint{
			DeviceID:   r.DeviceID,
			RoomID:     r.RoomID,
			Coords:     r.Coords,
			RecordedAt: r.RecordedAt,
		})
	}
	return points, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction 事务支持
func (p *GormPostgreSQL) Transaction(fn func(tx *gorm.DB) error) error {
	return p.db.Transaction(fn)
}
