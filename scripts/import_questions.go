// 导入题库与学习资料
//
// 首次部署或更新题库后手动执行，学习资料按 slug 覆盖更新，附件上传到配置的存储。
//
// 用法: go run scripts/import_questions.go -file data/civics.yaml

package main

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/internal/service"
	"civics_quiz_backend/pkg/database"
	"civics_quiz_backend/pkg/logger"
	"context"
	"flag"
	"log"
	"mime"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type bank struct {
	Questions []model.Question     `yaml:"questions"`
	Sections  []model.StudySection `yaml:"sections"`
}

func main() {
	file := flag.String("file", "data/civics.yaml", "题库 YAML 文件")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, true)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("无法读取题库文件: %v", err)
	}
	var b bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		log.Fatalf("解析题库文件失败: %v", err)
	}

	// 导入前校验，任何一题不合法都不写入
	for i := range b.Questions {
		if _, err := b.Questions[i].ToQuiz(); err != nil {
			log.Fatalf("第 %d 题不合法: %v", i+1, err)
		}
	}

	ctx := context.Background()
	storage := service.NewStorageService(&cfg.Storage)
	baseDir := filepath.Dir(*file)
	for i := range b.Sections {
		section := &b.Sections[i]
		if section.AssetKey == "" {
			continue
		}
		local := filepath.Join(baseDir, section.AssetKey)
		key := "sections/" + section.Slug + filepath.Ext(local)
		if _, err := storage.UploadFile(ctx, key, local, mime.TypeByExtension(filepath.Ext(local))); err != nil {
			log.Fatalf("上传附件 %s 失败: %v", local, err)
		}
		section.AssetKey = key
	}

	if len(b.Questions) > 0 {
		if err := repository.NewQuestionRepository(db).CreateBatch(ctx, b.Questions); err != nil {
			log.Fatalf("导入题目失败: %v", err)
		}
	}
	if len(b.Sections) > 0 {
		if err := repository.NewContentRepository(db).UpsertBySlug(ctx, b.Sections); err != nil {
			log.Fatalf("导入学习资料失败: %v", err)
		}
	}
	log.Printf("完成！题目 %d 道，学习资料 %d 篇", len(b.Questions), len(b.Sections))
}
