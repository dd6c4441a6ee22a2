package bootstrap

import (
	"log"

	"github.com/clerk/clerk-sdk-go/v2"
)

// InitClerk 配置 Clerk SDK 的全局密钥
// 内存模式下允许不配置，此时所有 token 都验证失败，请求按匿名处理
func InitClerk(secret string) {
	if secret == "" {
		log.Println("⚠️ 未配置 CLERK_SECRET_KEY，所有请求将按未登录处理")
		return
	}
	clerk.SetKey(secret)

	log.Println("Clerk初始化成功")
}
