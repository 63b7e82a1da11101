// Package storage defines the persistence interface for purchase requisitions and their items.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/prtrack/internal/models"
)

var (
	// ErrNotFound is returned when a requisition or item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName is returned when a requisition with the same name already exists.
	ErrDuplicateName = errors.New("requisition name already exists")
)

// Storage defines requisition persistence operations.
type Storage interface {
	// Requisition operations
	CreateRequisition(ctx context.Context, pr *models.PurchaseRequisition) error
	GetRequisition(ctx context.Context, id string) (*models.PurchaseRequisition, error)
	GetRequisitionByName(ctx context.Context, name string) (*models.PurchaseRequisition, error)
	UpdateRequisition(ctx context.Context, pr *models.PurchaseRequisition) error
	DeleteRequisition(ctx context.Context, id string) error
	DeleteRequisitions(ctx context.Context, ids []string) (int64, error)
	ListRequisitions(ctx context.Context, filter models.ListFilter) ([]*models.Summary, error)
	AllRequisitions(ctx context.Context) ([]*models.PurchaseRequisition, error)

	// Item operations
	SearchItems(ctx context.Context, query string, limit int) ([]*models.ItemHit, error)
	GetItemHits(ctx context.Context, itemIDs []string) ([]*models.ItemHit, error)

	// Stats
	CountRequisitions(ctx context.Context) (int64, error)
	CountItems(ctx context.Context) (int64, error)

	Close() error
}
