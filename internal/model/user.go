package model

import (
	"time"
)

// User 账号信息，学习数据保存在 UserRecord 中
// swagger:model User
type User struct {
	UUIDBase
	Username  string    `gorm:"size:100;not null" json:"username"`
	Name      string    `gorm:"size:100" json:"name"`
	Email     string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	LastLogin time.Time `json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName 未设置 name 时使用 username
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
