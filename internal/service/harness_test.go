package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/repository"
	"github.com/byggkalk/quotation-api/internal/service"
)

// setupServiceTestDB opens an isolated in-memory database per test.
// The shared cache keeps the database alive across the pool's
// connections for the duration of the test.
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// One connection serializes concurrent writers; sqlite's shared
	// cache reports lock errors instead of waiting otherwise.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.Project{},
		&domain.Document{},
		&domain.DocumentSpecification{},
		&domain.Element{},
		&domain.Quote{},
		&domain.QuoteItem{},
		&domain.QuoteActivity{},
	))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// serviceHarness wires repositories and services against one test
// database the same way cmd/api does.
type serviceHarness struct {
	db              *gorm.DB
	projectRepo     *repository.ProjectRepository
	documentRepo    *repository.DocumentRepository
	elementRepo     *repository.ElementRepository
	quoteRepo       *repository.QuoteRepository
	activityRepo    *repository.QuoteActivityRepository
	projectService  *service.ProjectService
	documentService *service.DocumentService
	quoteService    *service.QuoteService
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()

	db := setupServiceTestDB(t)
	log := zap.NewNop()

	projectRepo := repository.NewProjectRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	elementRepo := repository.NewElementRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	activityRepo := repository.NewQuoteActivityRepository(db)

	return &serviceHarness{
		db:              db,
		projectRepo:     projectRepo,
		documentRepo:    documentRepo,
		elementRepo:     elementRepo,
		quoteRepo:       quoteRepo,
		activityRepo:    activityRepo,
		projectService:  service.NewProjectService(projectRepo, log),
		documentService: service.NewDocumentService(documentRepo, elementRepo, log),
		quoteService:    service.NewQuoteService(quoteRepo, activityRepo, projectRepo, log),
	}
}

func (h *serviceHarness) createProject(t *testing.T, name string) *domain.Project {
	t.Helper()

	project := &domain.Project{
		Name:   name,
		Status: domain.ProjectStatusActive,
	}
	require.NoError(t, h.projectRepo.Create(context.Background(), project))
	return project
}

func (h *serviceHarness) createDocument(t *testing.T, projectID *uuid.UUID) *domain.Document {
	t.Helper()

	document := &domain.Document{
		Filename:    "floorplan.pdf",
		ContentType: "application/pdf",
		Size:        2048,
		StoragePath: "ab/cd/floorplan.pdf",
		ProjectID:   projectID,
	}
	_, err := h.documentService.CreateDocument(context.Background(), document)
	require.NoError(t, err)
	return document
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string {
	return &s
}
