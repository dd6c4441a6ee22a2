package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"profilegate-go-server/domain/entity"
	domainErrors "profilegate-go-server/domain/errors"
	"profilegate-go-server/domain/repository"

	"gorm.io/datatypes"
)

const maxSiteTitleRunes = 100

// SettingsUseCase 站点设置
type SettingsUseCase struct {
	repo repository.SettingsRepository
	now  func() time.Time
}

func NewSettingsUseCase(repo repository.SettingsRepository) *SettingsUseCase {
	return &SettingsUseCase{repo: repo, now: time.Now}
}

// Get 读取设置，未保存过时返回默认值
func (uc *SettingsUseCase) Get(ctx context.Context) (*entity.SiteSettings, error) {
	record, err := uc.repo.Get(ctx, entity.SettingsKeyGeneral)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if record == nil {
		s := entity.DefaultSiteSettings()
		return &s, nil
	}

	var s entity.SiteSettings
	if err := json.Unmarshal(record.Value, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrSettingsInvalid, err)
	}
	s.UpdatedAt = record.UpdatedAt
	s.UpdatedBy = record.UpdatedBy
	return &s, nil
}

// Save 校验并保存设置
func (uc *SettingsUseCase) Save(ctx context.Context, actor *entity.Profile, in entity.SiteSettings) (*entity.SiteSettings, error) {
	if actor == nil || actor.Role != entity.RoleAdmin {
		return nil, domainErrors.ErrForbidden
	}

	title := strings.TrimSpace(in.SiteTitle)
	if title == "" {
		return nil, fmt.Errorf("%w: site_title is required", domainErrors.ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxSiteTitleRunes {
		return nil, fmt.Errorf("%w: site_title longer than %d characters", domainErrors.ErrValidation, maxSiteTitleRunes)
	}

	value, err := json.Marshal(entity.SiteSettings{SiteTitle: title})
	if err != nil {
		return nil, err
	}

	record := &entity.SettingsRecord{
		Key:       entity.SettingsKeyGeneral,
		Value:     datatypes.JSON(value),
		UpdatedAt: uc.now().UTC(),
		UpdatedBy: actor.ID,
	}
	if err := uc.repo.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	log.Printf("[Settings] 💾 %s 更新了站点设置", actor.ID)
	return &entity.SiteSettings{SiteTitle: title, UpdatedAt: record.UpdatedAt, UpdatedBy: record.UpdatedBy}, nil
}
