package repository

import (
	"meslek-atlasi/internal/model"

	"gorm.io/gorm"
)

// Order 控制历史消息的排序方向。
type Order int

const (
	Ascending Order = iota
	Descending
)

// MessageFilter 描述管理后台的消息检索条件，零值字段表示不过滤。
type MessageFilter struct {
	Query    string
	Role     model.Role
	Feedback *int
	UserID   string
	Offset   int
	Limit    int
}

// MessageRepository 定义了会话消息的持久化操作。
type MessageRepository interface {
	Create(message *model.Message) error
	FindByID(id uint) (*model.Message, error)
	// FindByUser 按 ID 排序返回用户的消息；limit <= 0 表示不限制。
	FindByUser(userID string, limit int, order Order) ([]model.Message, error)
	UpdateFeedback(id uint, feedback int) error
	Update(message *model.Message) error
	Delete(id uint) error
	Search(filter MessageFilter) ([]model.Message, int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(message *model.Message) error {
	return r.db.Create(message).Error
}

func (r *messageRepository) FindByID(id uint) (*model.Message, error) {
	var msg model.Message
	if err := r.db.First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) FindByUser(userID string, limit int, order Order) ([]model.Message, error) {
	var messages []model.Message
	db := r.db.Where("user_id = ?", userID)
	if order == Descending {
		db = db.Order("id DESC")
	} else {
		db = db.Order("id ASC")
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// UpdateFeedback 只修改 feedback 字段。
func (r *messageRepository) UpdateFeedback(id uint, feedback int) error {
	res := r.db.Model(&model.Message{}).Where("id = ?", id).Update("feedback", feedback)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Update 保存消息的 role、content 与 feedback。
func (r *messageRepository) Update(message *model.Message) error {
	return r.db.Model(message).Select("role", "content", "feedback").Updates(message).Error
}

func (r *messageRepository) Delete(id uint) error {
	res := r.db.Delete(&model.Message{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Search 按条件分页检索消息，按 ID 倒序排列。
func (r *messageRepository) Search(filter MessageFilter) ([]model.Message, int64, error) {
	var messages []model.Message
	var total int64

	db := r.db.Model(&model.Message{})
	if filter.Query != "" {
		db = db.Where("content LIKE ?", "%"+filter.Query+"%")
	}
	if filter.Role != "" {
		db = db.Where("role = ?", filter.Role)
	}
	if filter.Feedback != nil {
		db = db.Where("feedback = ?", *filter.Feedback)
	}
	if filter.UserID != "" {
		db = db.Where("user_id = ?", filter.UserID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}
	if err := db.Order("id DESC").Offset(filter.Offset).Find(&messages).Error; err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}
