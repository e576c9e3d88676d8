package model

import "time"

// Role 标识消息的发送方。
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid 判断角色是否为已知取值。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// Message 是会话中的一条消息。ID 自增，按 ID 升序即为时间顺序。
type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	Role      Role      `gorm:"type:varchar(10);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Feedback  int       `gorm:"not null;default:0" json:"feedback"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}

// HistoryItem 是 /get_history 返回的单条记录。
type HistoryItem struct {
	ID       uint   `json:"id"`
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Feedback int    `json:"feedback"`
}

// ToHistoryItem 转换为对外暴露的结构。
func (m Message) ToHistoryItem() HistoryItem {
	return HistoryItem{ID: m.ID, Role: m.Role, Content: m.Content, Feedback: m.Feedback}
}
