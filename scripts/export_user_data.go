// 手动导出某个用户的学习数据为 xlsx
//
// 用于排查问题或用户申请导出时，不经过 HTTP 接口直接读取文档存储。
//
// 用法: go run scripts/export_user_data.go -user <userId> [-out notebook.xlsx]

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"study_notebook_backend/internal/app"
	"study_notebook_backend/internal/config"
	"study_notebook_backend/internal/service"
	"study_notebook_backend/internal/util"
	"time"
)

func main() {
	userID := flag.String("user", "", "用户ID")
	out := flag.String("out", "", "输出文件，默认按用户和时间生成")
	flag.Parse()

	if *userID == "" {
		log.Fatal("必须指定 -user")
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rec, err := application.Records.Load(ctx, *userID)
	if err != nil {
		log.Fatalf("读取用户数据失败: %v", err)
	}

	export := service.NewExportService(nil, util.NewMonotonicClock())
	buf, err := export.Workbook(rec)
	if err != nil {
		log.Fatalf("生成 xlsx 失败: %v", err)
	}

	filename := *out
	if filename == "" {
		filename = export.Filename(*userID)
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		log.Fatalf("写入文件失败: %v", err)
	}

	log.Printf("已导出 %d 条错题、%d 个目标、%d 个日程、%d 条成绩到 %s",
		len(rec.WrongAnswers), len(rec.Goals), len(rec.CalendarEvents), len(rec.ScoreRecords), filename)
}
