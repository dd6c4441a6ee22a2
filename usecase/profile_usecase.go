package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"unicode/utf8"

	"profilegate-go-server/domain/entity"
	domainErrors "profilegate-go-server/domain/errors"
	"profilegate-go-server/domain/repository"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

const (
	maxFullNameRunes = 255
	maxAvatarURLLen  = 500
)

// ProfileUseCase 用户自助编辑 profile
type ProfileUseCase struct {
	resolver *ProfileResolver
	repo     repository.ProfileRepository
	accessor repository.SessionAccessor
}

// NewProfileUseCase 构造函数，依赖注入
func NewProfileUseCase(resolver *ProfileResolver, repo repository.ProfileRepository, accessor repository.SessionAccessor) *ProfileUseCase {
	return &ProfileUseCase{resolver: resolver, repo: repo, accessor: accessor}
}

// Get 当前用户的 profile（首次访问时创建）
func (uc *ProfileUseCase) Get(ctx context.Context, identity *entity.Identity) (*entity.Profile, error) {
	return uc.resolver.Resolve(ctx, identity)
}

// UpdateOwn 保存编辑表单
// 先写 profile 表，再同步到身份服务的 metadata，任意一步失败都返回错误
func (uc *ProfileUseCase) UpdateOwn(ctx context.Context, identity *entity.Identity, form entity.ProfileForm) (*entity.Profile, error) {
	form.FullName = strings.TrimSpace(form.FullName)
	form.AvatarURL = strings.TrimSpace(form.AvatarURL)
	if err := ValidateProfileForm(form); err != nil {
		return nil, err
	}

	// 确保行存在
	if _, err := uc.resolver.Resolve(ctx, identity); err != nil {
		return nil, err
	}

	updated, err := uc.repo.Update(ctx, identity.ID, entity.ProfileUpdate{
		FullName:  &form.FullName,
		AvatarURL: &form.AvatarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("update profile %s: %w", identity.ID, err)
	}

	meta := entity.UserMetadata{FullName: form.FullName, AvatarURL: form.AvatarURL}
	if err := uc.accessor.UpdateIdentityMetadata(ctx, identity.ID, meta); err != nil {
		log.Printf("[Profile] ⚠️ 用户 %s 的身份 metadata 同步失败: %v", identity.ID, err)
		return nil, fmt.Errorf("sync identity metadata %s: %w", identity.ID, err)
	}

	log.Printf("[Profile] ✅ 用户 %s 已更新 profile", identity.ID)
	return updated, nil
}

// PatchOwn 对 {full_name, avatar_url} 文档应用 JSON Merge Patch (RFC 7386)
func (uc *ProfileUseCase) PatchOwn(ctx context.Context, identity *entity.Identity, patch []byte) (*entity.Profile, error) {
	current, err := uc.resolver.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	original, err := json.Marshal(entity.FormFrom(current))
	if err != nil {
		return nil, err
	}

	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid merge patch: %v", domainErrors.ErrValidation, err)
	}

	var form entity.ProfileForm
	if err := json.Unmarshal(merged, &form); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrValidation, err)
	}
	return uc.UpdateOwn(ctx, identity, form)
}

// ValidateProfileForm 表单校验
func ValidateProfileForm(form entity.ProfileForm) error {
	if utf8.RuneCountInString(form.FullName) > maxFullNameRunes {
		return fmt.Errorf("%w: full_name longer than %d characters", domainErrors.ErrValidation, maxFullNameRunes)
	}
	if form.AvatarURL == "" {
		return nil
	}
	if len(form.AvatarURL) > maxAvatarURLLen {
		return fmt.Errorf("%w: avatar_url longer than %d characters", domainErrors.ErrValidation, maxAvatarURLLen)
	}
	u, err := url.Parse(form.AvatarURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: avatar_url must be an absolute http(s) URL", domainErrors.ErrValidation)
	}
	return nil
}
