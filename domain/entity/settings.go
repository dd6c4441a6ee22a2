package entity

import (
	"time"

	"gorm.io/datatypes"
)

// SettingsKeyGeneral 通用站点设置的行 key
const SettingsKeyGeneral = "general"

// DefaultSiteTitle 未保存过设置时的站点标题
const DefaultSiteTitle = "Your App"

// SettingsRecord 站点设置表（key -> JSON 文档）
type SettingsRecord struct {
	Key       string         `gorm:"primaryKey;size:64"`
	Value     datatypes.JSON
	UpdatedAt time.Time
	UpdatedBy string `gorm:"size:64"`
}

// TableName 固定表名
func (SettingsRecord) TableName() string {
	return "site_settings"
}

// SiteSettings 通用设置文档
type SiteSettings struct {
	SiteTitle string    `json:"site_title"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// DefaultSiteSettings 默认设置
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{SiteTitle: DefaultSiteTitle}
}
