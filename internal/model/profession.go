package model

// Profession 是职业数据集中的一行，列名即字段名。加载后只读。
type Profession map[string]string

// AutoMigrateModels 列出需要自动迁移的模型。
func AutoMigrateModels() []interface{} {
	return []interface{}{&User{}, &Message{}}
}
