package errors

import "errors"

// ================= 业务领域错误定义 =================
// 所有业务逻辑相关的错误统一在此定义，避免跨包重复定义

// ErrProfileNotFound profile 不存在
// 可恢复：解析器据此触发默认 profile 的创建
var ErrProfileNotFound = errors.New("profile not found")

// ErrProfileConflict 插入时主键冲突（并发首次解析）
// 可恢复：解析器据此重新读取已存在的行
var ErrProfileConflict = errors.New("profile already exists")

// ErrServiceUnavailable 认证服务或存储不可达 / 未授权
var ErrServiceUnavailable = errors.New("service unavailable")

// ErrIdentityRequired 调用方必须提供已登录身份
var ErrIdentityRequired = errors.New("authenticated identity required")

// ErrValidation 表单校验失败
var ErrValidation = errors.New("validation failed")

// ErrInvalidRole 非法角色
var ErrInvalidRole = errors.New("invalid role")

// ErrSelfRoleChange 管理员不能修改自己的角色
var ErrSelfRoleChange = errors.New("cannot change own role")

// ErrForbidden 操作者没有权限
var ErrForbidden = errors.New("forbidden")

// ErrSettingsInvalid 站点设置文档损坏
var ErrSettingsInvalid = errors.New("stored settings are malformed")
