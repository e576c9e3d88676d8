// Package service 包含了应用的业务逻辑层。
package service

import "errors"

var (
	// ErrUserNotFound 表示会话无法解析到一个已存在的用户。
	ErrUserNotFound = errors.New("user not found")
	// ErrMessageNotFound 同时覆盖消息不存在与消息不属于请求者两种情况，
	// 调用方无法据此判断消息是否存在。
	ErrMessageNotFound = errors.New("message not found")
	// ErrInvalidRole 表示消息角色不是 user 或 model。
	ErrInvalidRole = errors.New("invalid message role")
	// ErrInvalidCredentials 表示管理员用户名或密码错误。
	ErrInvalidCredentials = errors.New("invalid credentials")
)
