package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/datatypes"

	"github.com/approva/simulado-backend/internal/db"
	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/logger"
	"github.com/approva/simulado-backend/internal/repos"
	"github.com/approva/simulado-backend/internal/services"
)

// examFile is the on-disk shape of one fixed exam.
type examFile struct {
	ExamID      string                `json:"exam_id"`
	IsActive    *bool                 `json:"is_active"`
	IsAdaptive  *bool                 `json:"is_adaptive"`
	Module1     []domain.ExamQuestion `json:"module_1"`
	Module2Easy []domain.ExamQuestion `json:"module_2_easy"`
	Module2Hard []domain.ExamQuestion `json:"module_2_hard"`
	Metadata    *domain.ExamMetadata  `json:"metadata"`
}

func main() {
	var dir string
	var dryRun bool
	flag.StringVar(&dir, "dir", "exams", "directory of exam JSON files")
	flag.BoolVar(&dryRun, "dry-run", false, "validate files without writing")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Error("read exam dir", "dir", dir, "error", err)
		os.Exit(1)
	}

	var examService services.OriginalExamService
	if !dryRun {
		pg, err := db.NewPostgresService(log)
		if err != nil {
			log.Error("postgres init failed", "error", err)
			os.Exit(1)
		}
		if err := pg.AutoMigrateAll(); err != nil {
			log.Error("postgres automigrate failed", "error", err)
			os.Exit(1)
		}
		examService = services.NewOriginalExamService(
			repos.NewOriginalExamRepo(pg.DB(), log),
			repos.NewUserExamHistoryRepo(pg.DB(), log),
			log,
		)
	}

	ctx := context.Background()
	seeded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		exam, err := loadExamFile(path)
		if err != nil {
			log.Error("skipping exam file", "file", path, "error", err)
			continue
		}
		if dryRun {
			log.Info("validated exam", "file", path, "exam_id", exam.ExamID)
			continue
		}
		if _, err := examService.UpsertExam(ctx, exam); err != nil {
			log.Error("upsert exam failed", "exam_id", exam.ExamID, "error", err)
			os.Exit(1)
		}
		log.Info("seeded exam", "exam_id", exam.ExamID)
		seeded++
	}
	log.Info("exam seeding done", "seeded", seeded)
}

func loadExamFile(path string) (*domain.OriginalExam, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file examFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(file.ExamID) == "" {
		return nil, fmt.Errorf("%s: missing exam_id", path)
	}
	if len(file.Module1) == 0 {
		return nil, fmt.Errorf("%s: module_1 is empty", path)
	}
	if len(file.Module2Easy) == 0 || len(file.Module2Hard) == 0 {
		return nil, fmt.Errorf("%s: both module 2 variants are required", path)
	}

	exam := &domain.OriginalExam{
		ExamID:     file.ExamID,
		IsActive:   true,
		IsAdaptive: true,
	}
	if file.IsActive != nil {
		exam.IsActive = *file.IsActive
	}
	if file.IsAdaptive != nil {
		exam.IsAdaptive = *file.IsAdaptive
	}
	if exam.Module1, err = marshalModule(file.Module1); err != nil {
		return nil, err
	}
	if exam.Module2Easy, err = marshalModule(file.Module2Easy); err != nil {
		return nil, err
	}
	if exam.Module2Hard, err = marshalModule(file.Module2Hard); err != nil {
		return nil, err
	}
	if file.Metadata != nil {
		raw, err := json.Marshal(file.Metadata)
		if err != nil {
			return nil, err
		}
		exam.Metadata = datatypes.JSON(raw)
	}
	return exam, nil
}

func marshalModule(questions []domain.ExamQuestion) (datatypes.JSON, error) {
	for i := range questions {
		questions[i].Topic = services.NormalizeLabel(questions[i].Topic)
		questions[i].Subskill = services.NormalizeLabel(questions[i].Subskill)
		questions[i].Structure = services.NormalizeLabel(questions[i].Structure)
	}
	raw, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
