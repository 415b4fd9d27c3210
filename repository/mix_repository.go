package repository

import (
	"fmt"

	"autodj/db"
	"autodj/model"

	"gorm.io/gorm"
)

// MixRepository 混音记录数据访问层，基于GORM
type MixRepository struct {
	db *gorm.DB
}

// NewMixRepository 创建混音记录仓库
func NewMixRepository() *MixRepository {
	return &MixRepository{db: db.GormDB}
}

// Create 保存一条混音记录
func (r *MixRepository) Create(mix *model.Mix) error {
	if err := r.db.Create(mix).Error; err != nil {
		return fmt.Errorf("failed to create mix record: %w", err)
	}
	return nil
}

// GetByID 根据ID获取混音记录
func (r *MixRepository) GetByID(id int64) (*model.Mix, error) {
	var mix model.Mix
	err := r.db.First(&mix, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mix %d: %w", id, err)
	}
	return &mix, nil
}

// GetBySessionToken 获取某个会话产出的混音
func (r *MixRepository) GetBySessionToken(token string) (*model.Mix, error) {
	var mix model.Mix
	err := r.db.Where("session_token = ?", token).First(&mix).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mix for session %s: %w", token, err)
	}
	return &mix, nil
}

// Recent 获取最近的混音记录，按时间倒序
func (r *MixRepository) Recent(limit int) ([]model.Mix, error) {
	var mixes []model.Mix
	err := r.db.Order("created_at DESC").Limit(limit).Find(&mixes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent mixes: %w", err)
	}
	return mixes, nil
}
