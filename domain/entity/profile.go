package entity

import "time"

// Profile 用户资料表（每个 Clerk 身份对应一行）
type Profile struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"` // Clerk user_id
	FullName  *string   `gorm:"size:255" json:"full_name"`
	AvatarURL *string   `gorm:"size:500" json:"avatar_url"`
	Role      Role      `gorm:"size:16;not null;default:user" json:"role"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

// TableName 固定表名
func (Profile) TableName() string {
	return "profiles"
}

// NewDefaultProfile 首次解析身份时创建的默认 profile
func NewDefaultProfile(identity *Identity, now time.Time) *Profile {
	fullName := identity.Metadata.FullName
	avatarURL := identity.Metadata.AvatarURL
	return &Profile{
		ID:        identity.ID,
		FullName:  &fullName,
		AvatarURL: &avatarURL,
		Role:      RoleUser,
		UpdatedAt: now.UTC(),
	}
}

// Clone 深拷贝，避免调用方共享可变指针
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.FullName != nil {
		v := *p.FullName
		c.FullName = &v
	}
	if p.AvatarURL != nil {
		v := *p.AvatarURL
		c.AvatarURL = &v
	}
	return &c
}

// DisplayName 列表展示用的名字
func (p *Profile) DisplayName() string {
	if p.FullName == nil || *p.FullName == "" {
		return "Unnamed User"
	}
	return *p.FullName
}

// ProfileUpdate 部分字段更新，nil 表示不修改
type ProfileUpdate struct {
	FullName  *string
	AvatarURL *string
	Role      *Role
}

// Empty 是否没有任何字段需要更新
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.AvatarURL == nil && u.Role == nil
}

// ProfileOrder 列表排序
type ProfileOrder struct {
	Column     string
	Descending bool
}

// OrderByRecentlyUpdated 管理后台默认排序：最近更新在前
var OrderByRecentlyUpdated = ProfileOrder{Column: "updated_at", Descending: true}

// ProfileForm 用户自助编辑的表单
type ProfileForm struct {
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// FormFrom 从 profile 生成编辑表单（NULL 视为空串）
func FormFrom(p *Profile) ProfileForm {
	var form ProfileForm
	if p.FullName != nil {
		form.FullName = *p.FullName
	}
	if p.AvatarURL != nil {
		form.AvatarURL = *p.AvatarURL
	}
	return form
}
