package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	domainRepo "github.com/sangkips/tillpoint-api/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) domainRepo.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	return dbFrom(ctx, r.db).Create(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	var product entity.Product
	err := dbFrom(ctx, r.db).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &product, err
}

func (r *productRepository) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	var product entity.Product
	err := dbFrom(ctx, r.db).First(&product, "sku = ?", sku).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &product, err
}

// LockByIDs issues SELECT ... FOR UPDATE with ids sorted, so two checkouts
// touching the same products always lock them in the same order.
// SQLite has no row locks; its single writer connection serializes instead.
func (r *productRepository) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Product, error) {
	if len(ids) == 0 {
		return []entity.Product{}, nil
	}
	sorted := make([]string, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, id.String())
	}
	sort.Strings(sorted)

	query := dbFrom(ctx, r.db)
	if query.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var products []entity.Product
	err := query.Where("id IN ?", sorted).Order("id").Find(&products).Error
	return products, err
}

func (r *productRepository) Update(ctx context.Context, product *entity.Product) error {
	return dbFrom(ctx, r.db).Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return dbFrom(ctx, r.db).Delete(&entity.Product{}, "id = ?", id).Error
}

var productSortColumns = map[string]string{
	"name":          "name",
	"sku":           "sku",
	"category":      "category",
	"quantity":      "quantity",
	"selling_price": "selling_price",
	"created_at":    "created_at",
}

func (r *productRepository) List(ctx context.Context, params *domainRepo.ProductFilterParams) ([]entity.Product, int64, error) {
	var products []entity.Product
	var total int64

	query := dbFrom(ctx, r.db).Model(&entity.Product{}).
		Scopes(Search(params.Search, "name", "sku", "category"))

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.LowStock > 0 {
		query = query.Where("quantity < ?", params.LowStock)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := "name"
	if col, ok := productSortColumns[params.SortBy]; ok {
		sortBy = col
	}
	sortOrder := "ASC"
	if params.SortOrder == "desc" || params.SortOrder == "DESC" {
		sortOrder = "DESC"
	}

	err := query.Scopes(Paginate(params.Pagination)).
		Order(sortBy + " " + sortOrder).
		Find(&products).Error

	return products, total, err
}

func (r *productRepository) Search(ctx context.Context, q string, limit int) ([]entity.Product, error) {
	var products []entity.Product
	err := dbFrom(ctx, r.db).
		Scopes(Search(q, "name", "sku")).
		Order("name").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepository) ListInStock(ctx context.Context) ([]entity.Product, error) {
	var products []entity.Product
	err := dbFrom(ctx, r.db).Where("quantity > 0").Order("name").Find(&products).Error
	return products, err
}

func (r *productRepository) ListLowStock(ctx context.Context, threshold int) ([]entity.Product, error) {
	var products []entity.Product
	err := dbFrom(ctx, r.db).Where("quantity < ?", threshold).Order("quantity, name").Find(&products).Error
	return products, err
}

func (r *productRepository) ListOutOfStock(ctx context.Context) ([]entity.Product, error) {
	var products []entity.Product
	err := dbFrom(ctx, r.db).Where("quantity = 0").Order("name").Find(&products).Error
	return products, err
}

// DecrementStock runs
// UPDATE products SET quantity = quantity - amount WHERE id = ? AND quantity >= amount
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, amount int) (bool, error) {
	result := dbFrom(ctx, r.db).Model(&entity.Product{}).
		Where("id = ? AND quantity >= ?", id, amount).
		Update("quantity", gorm.Expr("quantity - ?", amount))

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *productRepository) TotalStock(ctx context.Context) (int64, error) {
	var total int64
	err := dbFrom(ctx, r.db).Model(&entity.Product{}).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}
