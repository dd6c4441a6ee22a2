package bootstrap

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// MemoryDatabaseURL 使用内存存储（本地开发，不持久化）
const MemoryDatabaseURL = "memory"

// defaultAllowedOrigins 本地前端开发服务器
var defaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// Env 环境变量配置结构
type Env struct {
	DatabaseURL    string   // PostgreSQL / MySQL 连接字符串，或 memory
	ClerkSecretKey string   // Clerk API 密钥
	WebhookSecret  string   // Clerk Webhook 签名密钥
	Port           string   // 服务端口
	RedisURL       string   // 可选，配置后启用多实例身份事件广播
	AllowedOrigins []string // CORS 与 WebSocket 的来源白名单
	GinMode        string   // debug / release / test
}

// MemoryMode 是否使用内存存储
func (e *Env) MemoryMode() bool {
	return e.DatabaseURL == MemoryDatabaseURL
}

// Debug 是否为开发模式（影响 SQL 日志级别）
func (e *Env) Debug() bool {
	return e.GinMode == "" || e.GinMode == "debug"
}

// LoadEnv 加载环境变量
// 开发环境从 .env 文件加载，生产环境从系统环境变量读取
func LoadEnv() *Env {
	// 尝试加载 .env 文件（生产环境可能没有）
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env 文件未找到，将使用系统环境变量")
	}

	env, err := ParseEnv(os.Getenv)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	log.Printf("✅ 环境变量加载完成, 端口: %s, 内存模式: %v, Redis: %v",
		env.Port, env.MemoryMode(), env.RedisURL != "")
	return env
}

// ParseEnv 从 getenv 读取配置并校验
func ParseEnv(getenv func(string) string) (*Env, error) {
	env := &Env{
		DatabaseURL:    strings.TrimSpace(getenv("DATABASE_URL")),
		ClerkSecretKey: getenv("CLERK_SECRET_KEY"),
		WebhookSecret:  getenv("CLERK_WEBHOOK_SECRET"),
		Port:           getenv("PORT"),
		RedisURL:       strings.TrimSpace(getenv("REDIS_URL")),
		AllowedOrigins: splitOrigins(getenv("ALLOWED_ORIGINS")),
		GinMode:        getenv("GIN_MODE"),
	}

	// 默认端口
	if env.Port == "" {
		env.Port = "8080"
	}
	if len(env.AllowedOrigins) == 0 {
		env.AllowedOrigins = defaultAllowedOrigins
	}

	// 必需变量检查
	if env.DatabaseURL == "" {
		return nil, errors.New("缺少必需环境变量: DATABASE_URL")
	}
	if env.ClerkSecretKey == "" && !env.MemoryMode() {
		return nil, errors.New("缺少必需环境变量: CLERK_SECRET_KEY")
	}
	return env, nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
