package entity

import (
	"database/sql/driver"
	"fmt"
)

// Role 用户角色（封闭枚举）
// 只允许 user / admin / moderator 三个值，RoleNone 表示"没有 profile"
type Role string

const (
	RoleNone      Role = ""
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// AllRoles 返回所有可持久化的角色
func AllRoles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleModerator}
}

// Valid 是否为可持久化的角色（RoleNone 不可持久化）
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	case RoleNone:
		return false
	}
	return false
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// ParseRole 解析角色字符串，未知值返回错误
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return RoleNone, fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Value 实现 driver.Valuer，拒绝写入非法角色
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("refusing to persist role %q", string(r))
	}
	return string(r), nil
}

// Scan 实现 sql.Scanner
// 数据库中出现非法角色属于脏数据，直接报错而不是静默降级
func (r *Role) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return fmt.Errorf("role column is NULL")
	default:
		return fmt.Errorf("unsupported role type %T", src)
	}

	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
