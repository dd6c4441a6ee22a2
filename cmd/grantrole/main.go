package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"profilegate-go-server/bootstrap"
	"profilegate-go-server/domain/entity"
	domainErrors "profilegate-go-server/domain/errors"
	"profilegate-go-server/repository"

	"github.com/joho/godotenv"
)

// grantrole 运维工具：直接在数据库里修改用户角色
// 第一个管理员只能这样产生（管理后台需要已有管理员）
func main() {
	userID := flag.String("user", "", "Clerk 用户 ID（必填）")
	role := flag.String("role", "admin", "目标角色: user / admin / moderator")
	force := flag.Bool("force", false, "跳过确认提示")
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	parsed, err := entity.ParseRole(*role)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ 未找到 .env 文件，使用系统环境变量")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" || dsn == bootstrap.MemoryDatabaseURL {
		log.Fatal("❌ DATABASE_URL 必须指向真实数据库")
	}

	db := bootstrap.NewDatabase(dsn, false)
	repo := repository.NewProfileRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	current, err := repo.GetByID(ctx, *userID)
	if errors.Is(err, domainErrors.ErrProfileNotFound) {
		log.Fatalf("❌ 用户 %s 还没有 profile，请先登录一次", *userID)
	}
	if err != nil {
		log.Fatalf("❌ 读取 profile 失败: %v", err)
	}

	// 确认提示
	if !*force {
		fmt.Printf("⚠️  将用户 %s (%s) 的角色从 %s 改为 %s\n",
			current.ID, current.DisplayName(), current.Role, parsed)
		fmt.Print("确认执行？(yes/no): ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))

		if input != "yes" && input != "y" {
			fmt.Println("❌ 操作已取消")
			return
		}
	}

	updated, err := repo.Update(ctx, *userID, entity.ProfileUpdate{Role: &parsed})
	if err != nil {
		log.Fatalf("❌ 修改角色失败: %v", err)
	}

	fmt.Printf("🎉 用户 %s 当前角色: %s (updated_at=%s)\n",
		updated.ID, updated.Role, updated.UpdatedAt.Format(time.RFC3339Nano))
}
