package repositories

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/async-cv-evaluator/internal/models"
)

type DocumentRepository interface {
	Create(document *models.Document) error
	FindByID(id uuid.UUID) (*models.Document, error)
	Delete(id uuid.UUID) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create implements DocumentRepository.
func (d *documentRepository) Create(document *models.Document) error {
	if err := d.db.Create(document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// FindByID implements DocumentRepository.
func (d *documentRepository) FindByID(id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := d.db.Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, models.ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return &doc, nil
}

// Delete implements DocumentRepository.
func (d *documentRepository) Delete(id uuid.UUID) error {
	if err := d.db.Delete(&models.Document{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return nil
}

// memoryDocumentRepository is used when no database is configured.
type memoryDocumentRepository struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]models.Document
}

func NewMemoryDocumentRepository() DocumentRepository {
	return &memoryDocumentRepository{docs: make(map[uuid.UUID]models.Document)}
}

// Create implements DocumentRepository.
func (m *memoryDocumentRepository) Create(document *models.Document) error {
	if document.ID == uuid.Nil {
		document.ID = uuid.New()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[document.ID] = *document

	return nil
}

// FindByID implements DocumentRepository.
func (m *memoryDocumentRepository) FindByID(id uuid.UUID) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrDocumentNotFound)
	}

	return &doc, nil
}

// Delete implements DocumentRepository.
func (m *memoryDocumentRepository) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)

	return nil
}
