package usecase

import "profilegate-go-server/domain/entity"

// Destination 命名路由目标
type Destination string

const (
	DestinationSignIn         Destination = "sign-in"
	DestinationHome           Destination = "home"
	DestinationProfile        Destination = "profile"
	DestinationAdminDashboard Destination = "admin-dashboard"
	DestinationAdminUsers     Destination = "admin-users"
	DestinationAdminSettings  Destination = "admin-settings"
)

// destinationPaths 前端路由路径
var destinationPaths = map[Destination]string{
	DestinationSignIn:         "/auth/login",
	DestinationHome:           "/",
	DestinationProfile:        "/profile",
	DestinationAdminDashboard: "/admin",
	DestinationAdminUsers:     "/admin/users",
	DestinationAdminSettings:  "/admin/settings",
}

// Path 目标对应的前端路径，未知目标回到首页
func (d Destination) Path() string {
	if p, ok := destinationPaths[d]; ok {
		return p
	}
	return destinationPaths[DestinationHome]
}

// Known 是否为已定义的目标
func (d Destination) Known() bool {
	_, ok := destinationPaths[d]
	return ok
}

// ViewRequirement 页面的访问要求
type ViewRequirement struct {
	Session bool        // 需要已登录（任意角色）
	Role    entity.Role // 需要的角色（精确匹配），RoleNone 表示不限
}

var viewRequirements = map[Destination]ViewRequirement{
	DestinationSignIn:         {},
	DestinationHome:           {},
	DestinationProfile:        {Session: true},
	DestinationAdminDashboard: {Session: true, Role: entity.RoleAdmin},
	DestinationAdminUsers:     {Session: true, Role: entity.RoleAdmin},
	DestinationAdminSettings:  {Session: true, Role: entity.RoleAdmin},
}

// RequirementFor 查询页面要求
func RequirementFor(d Destination) (ViewRequirement, bool) {
	req, ok := viewRequirements[d]
	return req, ok
}

// Decision 授权结果
type Decision struct {
	Allowed  bool
	Redirect Destination // 仅在拒绝时有效
}

// Allow 放行
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny 拒绝并跳转
func Deny(to Destination) Decision {
	return Decision{Redirect: to}
}

// Outcome 指标标签
func (d Decision) Outcome() string {
	if d.Allowed {
		return "allow"
	}
	return "deny-" + string(d.Redirect)
}

// Decide 授权闸门（纯函数）
// 1. 不要求角色：放行
// 2. 没有 profile：跳转登录页
// 3. 角色不精确匹配（moderator 不满足 admin）：跳转首页
// 4. 放行
func Decide(profile *entity.Profile, required entity.Role) Decision {
	if required == entity.RoleNone {
		return Allow()
	}
	if profile == nil {
		return Deny(DestinationSignIn)
	}

	switch profile.Role {
	case entity.RoleUser, entity.RoleAdmin, entity.RoleModerator:
		if profile.Role == required {
			return Allow()
		}
		return Deny(DestinationHome)
	case entity.RoleNone:
		return Deny(DestinationHome)
	}
	// 脏数据，不可能通过 Role.Scan，仍然拒绝
	return Deny(DestinationHome)
}

// DecideView 按页面要求做授权决策
// 未知页面一律拒绝到首页
func DecideView(profile *entity.Profile, d Destination) Decision {
	req, ok := viewRequirements[d]
	if !ok {
		return Deny(DestinationHome)
	}
	if req.Session && profile == nil {
		return Deny(DestinationSignIn)
	}
	return Decide(profile, req.Role)
}
