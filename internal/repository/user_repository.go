// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"meslek-atlasi/internal/model"

	"gorm.io/gorm"
)

// UserRepository 接口定义了用户数据的持久化操作。
type UserRepository interface {
	Create(user *model.User) error
	FindByID(userID string) (*model.User, error)
	FindWithPagination(query string, offset, limit int) ([]model.User, int64, error)
	Delete(userID string) error
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 在数据库中创建一个新的用户记录，ID 由模型钩子生成。
func (r *userRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// FindByID 根据用户 ID 查找用户，不存在时返回 gorm.ErrRecordNotFound。
func (r *userRepository) FindByID(userID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindWithPagination 分页检索用户，query 非空时按 ID 模糊匹配。
// 它返回用户列表、总记录数和可能发生的错误。
func (r *userRepository) FindWithPagination(query string, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.Model(&model.User{})
	if query != "" {
		db = db.Where("id LIKE ?", "%"+query+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Delete 删除用户及其全部消息。
func (r *userRepository) Delete(userID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// 外键已声明级联删除，这里显式删除消息以兼容未开启外键的连接
		if err := tx.Where("user_id = ?", userID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", userID).Delete(&model.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
